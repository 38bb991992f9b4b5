package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/auth"
	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/platform/authz"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxAddress = "address"
	CtxRole    = "role"
)

// JWTMiddleware validates the Bearer token in the Authorization header.
// On success it stores the proven account address and role in the gin context,
// and injects the address into the request context so the engine's
// authorization guard can re-check it.
func JWTMiddleware(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrTokenInvalid.Error(),
			})
			return
		}

		address := domain.Address(claims.Subject)
		c.Set(CtxAddress, address)
		c.Set(CtxRole, claims.Role)
		c.Request = c.Request.WithContext(
			authz.WithIdentity(c.Request.Context(), address))
		c.Next()
	}
}

// AdminMiddleware allows only admin tokens through. Must be placed after
// JWTMiddleware in the chain.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != auth.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}
		c.Next()
	}
}

// GetAddress retrieves the authenticated account address from the gin
// context. Returns "" if the middleware was not applied.
func GetAddress(c *gin.Context) domain.Address {
	v, exists := c.Get(CtxAddress)
	if !exists {
		return ""
	}
	a, _ := v.(domain.Address)
	return a
}

// GetRole retrieves the authenticated role string from the gin context.
func GetRole(c *gin.Context) string {
	v, _ := c.Get(CtxRole)
	r, _ := v.(string)
	return r
}
