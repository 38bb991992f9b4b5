// Package backoffice builds the admin HTTP surface: market resolution and
// cancellation, treasury withdrawal, and operational reports. It binds to its
// own port and is protected by an IP whitelist plus admin-role tokens.
package backoffice

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/auth"
	"github.com/outcomely/timelock/internal/backoffice/handler"
	"github.com/outcomely/timelock/internal/config"
	"github.com/outcomely/timelock/internal/domain"
	"github.com/outcomely/timelock/internal/engine"
	"github.com/outcomely/timelock/internal/platform/authz"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	Engine *engine.Engine
	Tokens *auth.TokenService
	Cfg    *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	marketH := handler.NewMarketAdminHandler(deps.Engine)
	treasuryH := handler.NewTreasuryHandler(deps.Engine)

	admin := r.Group("/admin")
	admin.Use(adminJWTMiddleware(deps.Tokens))
	{
		// Markets
		m := admin.Group("/markets")
		{
			m.GET("", marketH.List)
			m.GET("/:id", marketH.Detail)
			m.POST("/:id/resolve", marketH.Resolve)
			m.POST("/:id/cancel", marketH.Cancel)
		}

		// Treasury
		admin.GET("/treasury", treasuryH.Get)
		admin.POST("/treasury/withdraw", treasuryH.Withdraw)

		// Reports
		admin.GET("/stats", treasuryH.Stats)
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

// adminJWTMiddleware validates a JWT, requires the admin role, and injects
// the token's account address into the request context so the engine's
// authorization guard sees the proven identity.
func adminJWTMiddleware(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Role != auth.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		address := domain.Address(claims.Subject)
		c.Set("address", address)
		c.Set("role", claims.Role)
		c.Request = c.Request.WithContext(
			authz.WithIdentity(c.Request.Context(), address))
		c.Next()
	}
}
