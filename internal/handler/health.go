package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Reports degraded while the market data circuit is open
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	circuit := h.opportunities.QueueStatus().Circuit
	status := "healthy"
	if circuit.Open {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "circuit_open": circuit.Open})
}

// GetStatus godoc
// @Summary      Provider egress status
// @Description  Returns circuit breaker state, pending queue depth and recent request outcomes
// @Tags         health
// @Produce      json
// @Success      200  {object}  domain.QueueStatus
// @Router       /api/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.opportunities.QueueStatus())
}
