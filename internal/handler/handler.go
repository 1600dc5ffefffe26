package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"optionscout/internal/domain"
	"optionscout/internal/provider"
	"optionscout/internal/repository"
	"optionscout/internal/scoring"
	"optionscout/internal/service"
)

// Opportunities is the read side of the opportunity service.
type Opportunities interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
	GetOptionChain(ctx context.Context, underlying string, contractType domain.ContractType, maxDTE int) ([]domain.OptionContract, error)
	GetOpportunities(ctx context.Context, underlying string, contractType domain.ContractType, maxDTE int, sc scoring.Context) ([]domain.Opportunity, error)
	TopOpportunities(ctx context.Context, symbols []string, contractType domain.ContractType, maxDTE, limit, minScore int) ([]domain.Opportunity, error)
	MatchCriteria(ctx context.Context, criteria domain.AlertCriteria, underlying string, contractType domain.ContractType, maxDTE int) ([]domain.Opportunity, error)
	QueueStatus() domain.QueueStatus
}

type AlertStore interface {
	GetCriteria(ctx context.Context, id string) (domain.AlertCriteria, error)
	UpsertCriteria(ctx context.Context, c domain.AlertCriteria) error
	RecentAlerts(ctx context.Context, userID string, limit int) ([]domain.Alert, error)
}

type Handler struct {
	tracer        trace.Tracer
	opportunities Opportunities
	alerts        AlertStore
	watchlist     []string
}

func New(tracer trace.Tracer, opportunities Opportunities, alerts AlertStore, watchlist []string) *Handler {
	return &Handler{
		tracer:        tracer,
		opportunities: opportunities,
		alerts:        alerts,
		watchlist:     watchlist,
	}
}

// RegisterRoutes mounts the public routes on r and the data routes on api.
func (h *Handler) RegisterRoutes(r *gin.Engine, api *gin.RouterGroup) {
	r.GET("/health", h.Health)

	api.GET("/status", h.GetStatus)
	api.GET("/quotes/:symbol", h.GetQuote)
	api.GET("/chains/:symbol", h.GetChain)
	api.GET("/opportunities", h.GetTopOpportunities)
	api.GET("/opportunities/:symbol", h.GetOpportunities)
	api.POST("/alerts/match", h.MatchAlert)
	api.POST("/alerts/criteria", h.SaveCriteria)
	api.GET("/alerts/criteria/:id", h.GetCriteria)
	api.GET("/alerts/:user_id", h.GetAlerts)
}

// writeError maps service and provider errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	if coe, ok := provider.IsCircuitOpen(err); ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":            coe.Error(),
			"retry_after_secs": int(coe.RetryAfter.Seconds()),
		})
		return
	}

	var rle *provider.RateLimitError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, provider.ErrQuoteUnavailable), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &rle):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
