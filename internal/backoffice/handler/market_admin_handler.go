package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/engine"
)

// MarketAdminHandler serves /admin/markets endpoints.
type MarketAdminHandler struct {
	engine *engine.Engine
}

// NewMarketAdminHandler creates a MarketAdminHandler.
func NewMarketAdminHandler(eng *engine.Engine) *MarketAdminHandler {
	return &MarketAdminHandler{engine: eng}
}

// List godoc
// GET /admin/markets?status=open
func (h *MarketAdminHandler) List(c *gin.Context) {
	markets, err := h.engine.ListMarkets(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	if status := c.Query("status"); status != "" {
		filtered := markets[:0]
		for _, m := range markets {
			if string(m.Status) == status {
				filtered = append(filtered, m)
			}
		}
		markets = filtered
	}
	respondSuccess(c, http.StatusOK, markets)
}

// Detail godoc
// GET /admin/markets/:id — the market plus its dust once resolved.
func (h *MarketAdminHandler) Detail(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	market, err := h.engine.GetMarket(ctx, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	out := gin.H{"market": market}
	if market.IsResolved() {
		if dust, err := h.engine.Dust(ctx, id); err == nil {
			out["dust"] = dust
		}
	}
	respondSuccess(c, http.StatusOK, out)
}

// Resolve godoc
// POST /admin/markets/:id/resolve
// Body: {"winner": "YES"}
func (h *MarketAdminHandler) Resolve(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		Winner string `json:"winner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.engine.Resolve(c.Request.Context(), id, domain.Side(body.Winner)); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"status":    "resolved",
		"market_id": id,
		"winner":    body.Winner,
	})
}

// Cancel godoc
// POST /admin/markets/:id/cancel
func (h *MarketAdminHandler) Cancel(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	if err := h.engine.Cancel(c.Request.Context(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "cancelled", "market_id": id})
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parseMarketID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return 0, false
	}
	return id, true
}
