package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"optionscout/internal/alert"
	"optionscout/internal/cache"
	"optionscout/internal/domain"
	"optionscout/internal/provider"
	"optionscout/internal/scoring"
)

const (
	quoteCacheTTL = 60 * time.Second
	chainCacheTTL = 5 * time.Minute
)

// ErrInvalidInput marks caller mistakes such as an empty symbol.
var ErrInvalidInput = errors.New("invalid input")

// MarketData is the market data facade the service reads through.
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	GetOptionChain(ctx context.Context, underlying string, contractType domain.ContractType, maxDTE int) ([]domain.OptionContract, error)
}

type QueueStatusSource interface {
	Status() domain.QueueStatus
}

// OpportunityService orchestrates market data fetching, caching and scoring.
type OpportunityService struct {
	tracer        trace.Tracer
	market        MarketData
	scorer        *scoring.Engine
	redis         cache.KV
	status        QueueStatusSource
	log           *zap.Logger
	defaultMaxDTE int
}

func NewOpportunityService(
	tracer trace.Tracer,
	market MarketData,
	scorer *scoring.Engine,
	redisClient cache.KV,
	status QueueStatusSource,
	log *zap.Logger,
	defaultMaxDTE int,
) *OpportunityService {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultMaxDTE <= 0 {
		defaultMaxDTE = 60
	}
	return &OpportunityService{
		tracer:        tracer,
		market:        market,
		scorer:        scorer,
		redis:         redisClient,
		status:        status,
		log:           log.Named("opportunities"),
		defaultMaxDTE: defaultMaxDTE,
	}
}

// GetQuote returns the cached quote for symbol, falling back to the provider.
func (s *OpportunityService) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "opportunity-service.get-quote")
	defer span.End()

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}

	key := "quote:" + symbol
	var cached domain.Quote
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	quote, err := s.market.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, quote, quoteCacheTTL)
	return quote, nil
}

// GetOptionChain returns the priced chain, ROI descending, through the chain cache.
func (s *OpportunityService) GetOptionChain(ctx context.Context, underlying string, contractType domain.ContractType, maxDTE int) ([]domain.OptionContract, error) {
	ctx, span := s.tracer.Start(ctx, "opportunity-service.get-option-chain")
	defer span.End()

	underlying = normalizeSymbol(underlying)
	if underlying == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if maxDTE <= 0 {
		maxDTE = s.defaultMaxDTE
	}
	span.SetAttributes(attribute.String("underlying", underlying), attribute.Int("max_dte", maxDTE))

	key := fmt.Sprintf("chain:%s:%s:%d", underlying, contractType, maxDTE)
	var cached []domain.OptionContract
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	contracts, err := s.market.GetOptionChain(ctx, underlying, contractType, maxDTE)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, contracts, chainCacheTTL)
	return contracts, nil
}

// GetOpportunities scores the chain and orders it by overall score. Equal scores keep
// ROI order. sc carries caller-supplied IV rank and earnings timing for the underlying.
func (s *OpportunityService) GetOpportunities(ctx context.Context, underlying string, contractType domain.ContractType, maxDTE int, sc scoring.Context) ([]domain.Opportunity, error) {
	ctx, span := s.tracer.Start(ctx, "opportunity-service.get-opportunities")
	defer span.End()

	contracts, err := s.GetOptionChain(ctx, underlying, contractType, maxDTE)
	if err != nil {
		return nil, err
	}
	return s.scorer.ScoreAllWith(contracts, sc), nil
}

// TopOpportunities scans symbols in order and returns the best limit opportunities
// scoring at least minScore. An open circuit ends the scan early and is returned
// alongside whatever was collected.
func (s *OpportunityService) TopOpportunities(ctx context.Context, symbols []string, contractType domain.ContractType, maxDTE, limit, minScore int) ([]domain.Opportunity, error) {
	ctx, span := s.tracer.Start(ctx, "opportunity-service.top-opportunities")
	defer span.End()

	var all []domain.Opportunity
	var scanErr error
	for _, symbol := range symbols {
		opps, err := s.GetOpportunities(ctx, symbol, contractType, maxDTE, scoring.Context{})
		if err != nil {
			if _, ok := provider.IsCircuitOpen(err); ok {
				scanErr = err
				break
			}
			if ctx.Err() != nil {
				scanErr = ctx.Err()
				break
			}
			s.log.Warn("skip symbol", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		for _, opp := range opps {
			if opp.Score.Overall >= minScore {
				all = append(all, opp)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score.Overall > all[j].Score.Overall
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	span.SetAttributes(attribute.Int("results", len(all)))
	return all, scanErr
}

// MatchCriteria returns the opportunities on one chain that satisfy criteria. It is a
// preview, so the criteria's enabled flag is ignored.
func (s *OpportunityService) MatchCriteria(ctx context.Context, criteria domain.AlertCriteria, underlying string, contractType domain.ContractType, maxDTE int) ([]domain.Opportunity, error) {
	criteria.Enabled = true
	opps, err := s.GetOpportunities(ctx, underlying, contractType, maxDTE, scoring.Context{})
	if err != nil {
		return nil, err
	}
	return alert.Filter(opps, criteria), nil
}

func (s *OpportunityService) QueueStatus() domain.QueueStatus {
	if s.status == nil {
		return domain.QueueStatus{}
	}
	return s.status.Status()
}

func (s *OpportunityService) readCache(ctx context.Context, key string, dst any) bool {
	if s.redis == nil {
		return false
	}
	found, err := cache.GetJSON(ctx, s.redis, key, dst)
	if err != nil {
		s.log.Warn("redis cache read error", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (s *OpportunityService) writeCache(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.redis == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.redis, key, v, ttl); err != nil {
		s.log.Warn("redis cache write error", zap.String("key", key), zap.Error(err))
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
