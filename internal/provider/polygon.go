package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"optionscout/internal/domain"
)

const (
	polygonBaseURL   = "https://api.polygon.io"
	polygonPageSize  = 250
	maxListingPages  = 4
	expirationLayout = "2006-01-02"
)

// Requester is the queue PolygonClient funnels every call through.
type Requester interface {
	Enqueue(ctx context.Context, url string) (RequestOutcome, error)
}

// PolygonClient maps typed quote and option-chain lookups onto queued Polygon.io calls.
// It owns no network code of its own.
type PolygonClient struct {
	queue         Requester
	baseURL       string
	apiKey        string
	defaultMaxDTE int
	tracer        trace.Tracer
	log           *zap.Logger
	now           func() time.Time
}

func NewPolygonClient(queue Requester, baseURL, apiKey string, defaultMaxDTE int, tracer trace.Tracer, log *zap.Logger) *PolygonClient {
	if baseURL == "" {
		baseURL = polygonBaseURL
	}
	if defaultMaxDTE <= 0 {
		defaultMaxDTE = 60
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PolygonClient{
		queue:         queue,
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		defaultMaxDTE: defaultMaxDTE,
		tracer:        tracer,
		log:           log.Named("polygon"),
		now:           time.Now,
	}
}

// GetQuote looks up the last trade and the previous-day aggregate, in that order.
// The previous close stands in for the price when the last trade is unavailable.
func (c *PolygonClient) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	ctx, span := c.tracer.Start(ctx, "polygon.get-quote")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	var last lastTradeResponse
	lastErr := c.getJSON(ctx, "/v2/last/trade/"+url.PathEscape(symbol), nil, &last)

	var prev prevAggResponse
	prevErr := c.getJSON(ctx, "/v2/aggs/ticker/"+url.PathEscape(symbol)+"/prev", url.Values{"adjusted": {"true"}}, &prev)

	hasLast := lastErr == nil && last.Results.Price > 0
	hasPrev := prevErr == nil && len(prev.Results) > 0 && prev.Results[0].Close > 0

	if !hasLast && !hasPrev {
		c.log.Warn("quote unavailable",
			zap.String("symbol", symbol),
			zap.NamedError("last_trade_error", lastErr),
			zap.NamedError("prev_close_error", prevErr),
		)
		for _, err := range []error{lastErr, prevErr} {
			if coe, ok := IsCircuitOpen(err); ok {
				return nil, coe
			}
		}
		return nil, fmt.Errorf("%s: %w", symbol, ErrQuoteUnavailable)
	}

	quote := &domain.Quote{Symbol: symbol, Timestamp: c.now().UTC()}
	if hasPrev {
		agg := prev.Results[0]
		quote.Open = agg.Open
		quote.High = agg.High
		quote.Low = agg.Low
		quote.PrevClose = agg.Close
		quote.Volume = agg.Volume
	}

	if hasLast {
		quote.Price = last.Results.Price
		quote.Source = "last_trade"
		if last.Results.Timestamp > 0 {
			quote.Timestamp = time.Unix(0, last.Results.Timestamp).UTC()
		}
	} else {
		quote.Price = quote.PrevClose
		quote.Source = "prev_close"
	}

	if quote.PrevClose > 0 {
		quote.Change = round(quote.Price-quote.PrevClose, 4)
		quote.ChangePercent = round((quote.Price-quote.PrevClose)/quote.PrevClose*100, 4)
	}
	return quote, nil
}

// GetQuotes fetches quotes one symbol at a time. Symbols without a quote are omitted.
// An open circuit stops the batch and is returned with the quotes gathered so far.
func (c *PolygonClient) GetQuotes(ctx context.Context, symbols []string) (map[string]*domain.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "polygon.get-quotes")
	defer span.End()

	result := make(map[string]*domain.Quote, len(symbols))
	for _, symbol := range symbols {
		quote, err := c.GetQuote(ctx, symbol)
		if err != nil {
			if coe, ok := IsCircuitOpen(err); ok {
				return result, coe
			}
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}
		result[quote.Symbol] = quote
	}
	return result, nil
}

// GetOptionChain returns priced contracts of contractType expiring within maxDTE days,
// sorted by ROI descending. Listed contracts without real pricing are dropped.
func (c *PolygonClient) GetOptionChain(ctx context.Context, underlying string, contractType domain.ContractType, maxDTE int) ([]domain.OptionContract, error) {
	underlying = strings.ToUpper(strings.TrimSpace(underlying))
	if underlying == "" {
		return nil, fmt.Errorf("underlying is required")
	}
	if contractType != domain.ContractPut && contractType != domain.ContractCall {
		return nil, fmt.Errorf("unsupported contract type: %q", contractType)
	}
	if maxDTE <= 0 {
		maxDTE = c.defaultMaxDTE
	}

	ctx, span := c.tracer.Start(ctx, "polygon.get-option-chain")
	defer span.End()
	span.SetAttributes(
		attribute.String("underlying", underlying),
		attribute.String("contract_type", string(contractType)),
		attribute.Int("max_dte", maxDTE),
	)

	quote, err := c.GetQuote(ctx, underlying)
	if err != nil {
		return nil, fmt.Errorf("resolve spot for %s: %w", underlying, err)
	}

	now := c.now().UTC()
	from := now.Format(expirationLayout)
	to := now.AddDate(0, 0, maxDTE).Format(expirationLayout)

	refs, err := c.listContracts(ctx, underlying, contractType, from, to)
	if err != nil {
		return nil, fmt.Errorf("list contracts for %s: %w", underlying, err)
	}
	if len(refs) == 0 {
		return []domain.OptionContract{}, nil
	}

	snapshots, err := c.snapshot(ctx, underlying, contractType, to)
	if err != nil {
		return nil, fmt.Errorf("snapshot for %s: %w", underlying, err)
	}

	contracts := make([]domain.OptionContract, 0, len(refs))
	dropped := 0
	for _, ref := range refs {
		snap, ok := snapshots[ref.Ticker]
		if !ok {
			dropped++
			continue
		}
		contract, err := buildContract(ref, snap, quote, now)
		if err != nil {
			if !errors.Is(err, ErrNoPricingData) {
				c.log.Debug("skip contract", zap.String("ticker", ref.Ticker), zap.Error(err))
			}
			dropped++
			continue
		}
		contracts = append(contracts, contract)
	}

	sort.SliceStable(contracts, func(i, j int) bool {
		return contracts[i].ROI > contracts[j].ROI
	})

	c.log.Debug("option chain built",
		zap.String("underlying", underlying),
		zap.String("type", string(contractType)),
		zap.Int("listed", len(refs)),
		zap.Int("priced", len(contracts)),
		zap.Int("dropped", dropped),
	)
	span.SetAttributes(attribute.Int("contracts", len(contracts)))
	return contracts, nil
}

func (c *PolygonClient) listContracts(ctx context.Context, underlying string, contractType domain.ContractType, from, to string) ([]contractRef, error) {
	params := url.Values{
		"underlying_ticker":   {underlying},
		"contract_type":       {string(contractType)},
		"expiration_date.gte": {from},
		"expiration_date.lte": {to},
		"expired":             {"false"},
		"limit":               {strconv.Itoa(polygonPageSize)},
	}

	var refs []contractRef
	next := c.endpoint("/v3/reference/options/contracts", params)
	for page := 0; next != "" && page < maxListingPages; page++ {
		var resp contractsResponse
		if err := c.fetch(ctx, next, &resp); err != nil {
			return nil, err
		}
		refs = append(refs, resp.Results...)
		next = c.withKey(resp.NextURL)
	}
	return refs, nil
}

func (c *PolygonClient) snapshot(ctx context.Context, underlying string, contractType domain.ContractType, to string) (map[string]optionSnapshot, error) {
	params := url.Values{
		"contract_type":       {string(contractType)},
		"expiration_date.lte": {to},
		"limit":               {strconv.Itoa(polygonPageSize)},
	}

	byTicker := make(map[string]optionSnapshot)
	next := c.endpoint("/v3/snapshot/options/"+url.PathEscape(underlying), params)
	for page := 0; next != "" && page < maxListingPages; page++ {
		var resp snapshotResponse
		if err := c.fetch(ctx, next, &resp); err != nil {
			return nil, err
		}
		for _, snap := range resp.Results {
			if snap.Details.Ticker != "" {
				byTicker[snap.Details.Ticker] = snap
			}
		}
		next = c.withKey(resp.NextURL)
	}
	return byTicker, nil
}

func buildContract(ref contractRef, snap optionSnapshot, quote *domain.Quote, now time.Time) (domain.OptionContract, error) {
	expiration, err := time.Parse(expirationLayout, ref.ExpirationDate)
	if err != nil {
		return domain.OptionContract{}, fmt.Errorf("parse expiration %q: %w", ref.ExpirationDate, err)
	}
	if Expired(expiration, now) {
		return domain.OptionContract{}, fmt.Errorf("contract %s expired", ref.Ticker)
	}
	contractType, err := domain.ParseContractType(ref.ContractType)
	if err != nil {
		return domain.OptionContract{}, err
	}
	if ref.StrikePrice <= 0 {
		return domain.OptionContract{}, ErrNoPricingData
	}

	var bid, ask, last float64
	if snap.LastQuote != nil {
		bid, ask = snap.LastQuote.Bid, snap.LastQuote.Ask
	}
	if snap.LastTrade != nil && snap.LastTrade.Price > 0 {
		last = snap.LastTrade.Price
	} else if snap.Day != nil {
		last = snap.Day.Close
	}
	mid, premium, err := SelectPremium(bid, ask, last)
	if err != nil {
		return domain.OptionContract{}, err
	}

	spot := quote.Price
	if spot <= 0 && snap.UnderlyingAsset != nil {
		spot = snap.UnderlyingAsset.Price
	}

	contract := domain.OptionContract{
		Ticker:              ref.Ticker,
		Underlying:          quote.Symbol,
		Type:                contractType,
		Strategy:            contractType.Strategy(),
		Strike:              ref.StrikePrice,
		Expiration:          expiration,
		DTE:                 DaysToExpiration(expiration, now),
		Bid:                 bid,
		Ask:                 ask,
		Mid:                 mid,
		Last:                last,
		Premium:             premium,
		OpenInterest:        int64(snap.OpenInterest),
		SpotPrice:           spot,
		UnderlyingChangePct: quote.ChangePercent,
		LastUpdated:         now,
	}
	if snap.Day != nil {
		contract.Volume = int64(snap.Day.Volume)
	}
	if snap.Greeks != nil {
		contract.Greeks.Delta = snap.Greeks.Delta
		contract.Greeks.Gamma = snap.Greeks.Gamma
		contract.Greeks.Theta = snap.Greeks.Theta
		contract.Greeks.Vega = snap.Greeks.Vega
	}
	contract.Greeks.IV = snap.ImpliedVolatility

	return DeriveReturns(contract), nil
}

func (c *PolygonClient) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	return c.fetch(ctx, c.endpoint(path, params), dst)
}

func (c *PolygonClient) fetch(ctx context.Context, rawURL string, dst any) error {
	out, err := c.queue.Enqueue(ctx, rawURL)
	if err != nil {
		return err
	}
	c.log.Debug("provider response",
		zap.String("url", redactURL(rawURL)),
		zap.Int("status", out.HTTPStatus),
		zap.Int64("latency_ms", out.LatencyMs()),
		zap.Int("attempts", out.Attempts),
	)
	if err := json.Unmarshal(out.Body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", redactURL(rawURL), err)
	}
	return nil
}

func (c *PolygonClient) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
	}
	return c.baseURL + path + "?" + params.Encode()
}

// withKey adds the API key to a pagination cursor, which Polygon returns without it.
func (c *PolygonClient) withKey(next string) string {
	if next == "" || c.apiKey == "" {
		return next
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	query := u.Query()
	query.Set("apiKey", c.apiKey)
	u.RawQuery = query.Encode()
	return u.String()
}
