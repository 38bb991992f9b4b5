package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/auth"
	"github.com/outcomely/timelock/internal/domain"
)

// TokenHandler mints dev tokens for arbitrary addresses. Mounted only outside
// production, where token provisioning is handled by the identity system.
type TokenHandler struct {
	tokens *auth.TokenService
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens *auth.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// TokenRequest is the body of POST /api/auth/token.
type TokenRequest struct {
	Address string `json:"address" binding:"required"`
}

// Issue godoc
// POST /api/auth/token (development only)
func (h *TokenHandler) Issue(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	token, err := h.tokens.Issue(domain.Address(req.Address), auth.RoleUser)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not issue token")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"access_token": token})
}
