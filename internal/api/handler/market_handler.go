package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/api/middleware"
	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/engine"
	"github.com/shopspring/decimal"
)

// MarketHandler serves market creation, staking, claiming and query endpoints.
type MarketHandler struct {
	engine *engine.Engine
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(eng *engine.Engine) *MarketHandler {
	return &MarketHandler{engine: eng}
}

// ──────────────────────────────────────────────────────────────────────────────
// Request types
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarketRequest is the body of POST /api/markets. Amount is a decimal
// string of base units.
type CreateMarketRequest struct {
	Question   string `json:"question"    binding:"required"`
	Category   string `json:"category"`
	Side       string `json:"side"        binding:"required"`
	Amount     string `json:"amount"      binding:"required"`
	UnlockTime int64  `json:"unlock_time" binding:"required"` // epoch seconds
}

// StakeRequest is the body of POST /api/markets/:id/stake.
type StakeRequest struct {
	Side   string `json:"side"   binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// List godoc
// GET /api/markets?status=open
func (h *MarketHandler) List(c *gin.Context) {
	markets, err := h.engine.ListMarkets(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list markets")
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

// GetByID godoc
// GET /api/markets/:id
func (h *MarketHandler) GetByID(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	market, err := h.engine.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, market)
}

// GetMyStake godoc
// GET /api/markets/:id/stake — the caller's own stake in this market.
func (h *MarketHandler) GetMyStake(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	stake, err := h.engine.GetStake(c.Request.Context(), id, middleware.GetAddress(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stake)
}

// GetDust godoc
// GET /api/markets/:id/dust — the undistributed rounding remainder of a
// resolved market's prize pool.
func (h *MarketHandler) GetDust(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	dust, err := h.engine.Dust(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": id, "dust": dust})
}

// ──────────────────────────────────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────────────────────────────────

// Create godoc
// POST /api/markets
func (h *MarketHandler) Create(c *gin.Context) {
	var req CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid amount")
		return
	}

	id, err := h.engine.CreateMarket(
		c.Request.Context(),
		middleware.GetAddress(c),
		req.Question,
		domain.Category(req.Category),
		domain.Side(req.Side),
		amount,
		time.Unix(req.UnlockTime, 0).UTC(),
	)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"market_id": id})
}

// Stake godoc
// POST /api/markets/:id/stake
func (h *MarketHandler) Stake(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	var req StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid amount")
		return
	}

	err = h.engine.Stake(c.Request.Context(), middleware.GetAddress(c), id, domain.Side(req.Side), amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"market_id": id, "staked": amount})
}

// Claim godoc
// POST /api/markets/:id/claim
func (h *MarketHandler) Claim(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	payout, err := h.engine.Claim(c.Request.Context(), middleware.GetAddress(c), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": id, "payout": payout})
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
