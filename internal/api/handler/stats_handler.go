package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/engine"
)

// StatsHandler serves the aggregate platform statistics.
type StatsHandler struct {
	engine *engine.Engine
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(eng *engine.Engine) *StatsHandler {
	return &StatsHandler{engine: eng}
}

// Get godoc
// GET /api/stats
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}
