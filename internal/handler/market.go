package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"optionscout/internal/domain"
	"optionscout/internal/scoring"
)

const (
	defaultTopLimit = 20
	maxTopLimit     = 100
	maxDTELimit     = 365
)

// GetQuote godoc
// @Summary      Get the latest underlying quote
// @Description  Returns the last trade price with the previous session's OHLC
// @Tags         market
// @Produce      json
// @Param        symbol  path  string  true  "Underlying symbol (e.g., AAPL)"
// @Success      200  {object}  domain.Quote
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/quotes/{symbol} [get]
func (h *Handler) GetQuote(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-quote")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	quote, err := h.opportunities.GetQuote(ctx, symbol)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// GetChain godoc
// @Summary      Get a priced option chain
// @Description  Returns contracts expiring within max_dte days, ordered by ROI
// @Tags         market
// @Produce      json
// @Param        symbol   path   string  true   "Underlying symbol"
// @Param        type     query  string  false  "put or call"  default(put)
// @Param        max_dte  query  int     false  "Maximum days to expiration"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/chains/{symbol} [get]
func (h *Handler) GetChain(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-chain")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	contractType, maxDTE, ok := chainParams(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("type", string(contractType)))

	contracts, err := h.opportunities.GetOptionChain(ctx, symbol, contractType, maxDTE)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"type":      contractType,
		"count":     len(contracts),
		"contracts": contracts,
	})
}

// GetOpportunities godoc
// @Summary      Score one option chain
// @Description  Returns every contract on the chain with its opportunity score, best first
// @Tags         opportunities
// @Produce      json
// @Param        symbol     path   string  true   "Underlying symbol"
// @Param        type       query  string  false  "put or call"  default(put)
// @Param        max_dte    query  int     false  "Maximum days to expiration"
// @Param        min_score  query  int     false  "Drop opportunities scoring below this"
// @Param        iv_rank           query  number  false  "Underlying IV rank, 0-100"
// @Param        days_to_earnings  query  int     false  "Days until the next earnings report"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/opportunities/{symbol} [get]
func (h *Handler) GetOpportunities(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-opportunities")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	contractType, maxDTE, ok := chainParams(c)
	if !ok {
		return
	}
	minScore, ok := intQuery(c, "min_score", 0, 0, 100)
	if !ok {
		return
	}
	sc, ok := scoreContext(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	opps, err := h.opportunities.GetOpportunities(ctx, symbol, contractType, maxDTE, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	filtered := opps[:0]
	for _, opp := range opps {
		if opp.Score.Overall >= minScore {
			filtered = append(filtered, opp)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":        symbol,
		"type":          contractType,
		"opportunities": filtered,
	})
}

// GetTopOpportunities godoc
// @Summary      Best opportunities across a watchlist
// @Description  Scans the given symbols (or the configured watchlist) and returns the highest scores
// @Tags         opportunities
// @Produce      json
// @Param        symbols    query  string  false  "Comma-separated symbols"
// @Param        type       query  string  false  "put or call"  default(put)
// @Param        max_dte    query  int     false  "Maximum days to expiration"
// @Param        min_score  query  int     false  "Minimum overall score"  default(70)
// @Param        limit      query  int     false  "Maximum results"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/opportunities [get]
func (h *Handler) GetTopOpportunities(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-top-opportunities")
	defer span.End()

	contractType, maxDTE, ok := chainParams(c)
	if !ok {
		return
	}
	minScore, ok := intQuery(c, "min_score", scoring.DefaultMinScore, 0, 100)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultTopLimit, 1, maxTopLimit)
	if !ok {
		return
	}
	symbols := splitSymbols(c.Query("symbols"))
	if len(symbols) == 0 {
		symbols = h.watchlist
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no symbols requested"})
		return
	}
	span.SetAttributes(attribute.StringSlice("symbols", symbols))

	opps, err := h.opportunities.TopOpportunities(ctx, symbols, contractType, maxDTE, limit, minScore)
	if err != nil && len(opps) == 0 {
		writeError(c, err)
		return
	}
	resp := gin.H{"opportunities": opps, "partial": err != nil}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func chainParams(c *gin.Context) (domain.ContractType, int, bool) {
	contractType, err := domain.ParseContractType(c.DefaultQuery("type", "put"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", 0, false
	}
	maxDTE, ok := intQuery(c, "max_dte", 0, 1, maxDTELimit)
	if !ok {
		return "", 0, false
	}
	return contractType, maxDTE, true
}

// intQuery parses an optional integer query parameter. An absent parameter yields
// fallback; a present one must fall within [lo, hi].
func intQuery(c *gin.Context, key string, fallback, lo, hi int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be an integer between %d and %d", key, lo, hi)})
		return 0, false
	}
	return n, true
}

// scoreContext reads the optional iv_rank and days_to_earnings overrides.
func scoreContext(c *gin.Context) (scoring.Context, bool) {
	var sc scoring.Context
	if raw := strings.TrimSpace(c.Query("iv_rank")); raw != "" {
		rank, err := strconv.ParseFloat(raw, 64)
		if err != nil || rank < 0 || rank > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "iv_rank must be a number between 0 and 100"})
			return sc, false
		}
		sc.IVRank = &rank
	}
	if strings.TrimSpace(c.Query("days_to_earnings")) != "" {
		days, ok := intQuery(c, "days_to_earnings", 0, 0, 365)
		if !ok {
			return sc, false
		}
		sc.DaysToEarnings = &days
	}
	return sc, true
}

func splitSymbols(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.ToUpper(strings.TrimSpace(part)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
