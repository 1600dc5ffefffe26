package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"optionscout/internal/domain"
)

type matchRequest struct {
	Symbol   string               `json:"symbol" binding:"required"`
	Type     string               `json:"type"`
	MaxDTE   int                  `json:"max_dte"`
	Criteria domain.AlertCriteria `json:"criteria"`
}

// MatchAlert godoc
// @Summary      Preview alert criteria against a live chain
// @Description  Scores the chain for symbol and returns the opportunities the criteria would trigger on
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        request  body  matchRequest  true  "Symbol and criteria"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/alerts/match [post]
func (h *Handler) MatchAlert(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.match-alert")
	defer span.End()

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contractType, err := domain.ParseContractType(defaultString(req.Type, "put"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxDTE < 0 || req.MaxDTE > maxDTELimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_dte out of range"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	span.SetAttributes(attribute.String("symbol", symbol))

	matches, err := h.opportunities.MatchCriteria(ctx, req.Criteria, symbol, contractType, req.MaxDTE)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"count":   len(matches),
		"matches": matches,
	})
}

// SaveCriteria godoc
// @Summary      Create or update alert criteria
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        criteria  body  domain.AlertCriteria  true  "Alert criteria"
// @Success      200  {object}  domain.AlertCriteria
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/alerts/criteria [post]
func (h *Handler) SaveCriteria(c *gin.Context) {
	if h.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert storage unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.save-criteria")
	defer span.End()

	var criteria domain.AlertCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(criteria.UserID) == "" || strings.TrimSpace(criteria.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and name are required"})
		return
	}
	freq, err := domain.ParseFrequency(string(criteria.Frequency))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	criteria.Frequency = freq
	if criteria.ID == "" {
		criteria.ID = uuid.NewString()
	}

	if err := h.alerts.UpsertCriteria(ctx, criteria); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

// GetCriteria godoc
// @Summary      Fetch saved alert criteria
// @Tags         alerts
// @Produce      json
// @Param        id  path  string  true  "Criteria ID"
// @Success      200  {object}  domain.AlertCriteria
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/alerts/criteria/{id} [get]
func (h *Handler) GetCriteria(c *gin.Context) {
	if h.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert storage unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-criteria")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("criteria.id", id))
	criteria, err := h.alerts.GetCriteria(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

// GetAlerts godoc
// @Summary      Recent alerts for a user
// @Tags         alerts
// @Produce      json
// @Param        user_id  path   string  true   "User ID"
// @Param        limit    query  int     false  "Maximum alerts"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/alerts/{user_id} [get]
func (h *Handler) GetAlerts(c *gin.Context) {
	if h.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert storage unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-alerts")
	defer span.End()

	userID := c.Param("user_id")
	limit, ok := intQuery(c, "limit", 50, 1, 500)
	if !ok {
		return
	}

	alerts, err := h.alerts.RecentAlerts(ctx, userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "alerts": alerts})
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
