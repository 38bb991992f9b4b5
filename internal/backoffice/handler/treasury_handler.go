package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/engine"
	"github.com/shopspring/decimal"
)

// TreasuryHandler serves the treasury balance, withdrawal, and stats reports.
type TreasuryHandler struct {
	engine *engine.Engine
}

// NewTreasuryHandler creates a TreasuryHandler.
func NewTreasuryHandler(eng *engine.Engine) *TreasuryHandler {
	return &TreasuryHandler{engine: eng}
}

// Get godoc
// GET /admin/treasury
func (h *TreasuryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	balance, err := h.engine.Treasury(ctx)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	burned, err := h.engine.TotalBurned(ctx)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"treasury_balance": balance,
		"total_burned":     burned,
	})
}

// Withdraw godoc
// POST /admin/treasury/withdraw
// Body: {"amount": "350000000"}
func (h *TreasuryHandler) Withdraw(c *gin.Context) {
	var body struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil || !amount.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "amount must be a positive decimal")
		return
	}

	if err := h.engine.WithdrawTreasury(c.Request.Context(), amount); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "withdrawn", "amount": amount})
}

// Stats godoc
// GET /admin/stats
func (h *TreasuryHandler) Stats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}
