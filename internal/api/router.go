// Package api builds the public HTTP surface: market queries, authenticated
// staking and claiming, stats, and the websocket event feed.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/outcomely/timelock/internal/api/handler"
	"github.com/outcomely/timelock/internal/api/middleware"
	"github.com/outcomely/timelock/internal/auth"
	"github.com/outcomely/timelock/internal/config"
	"github.com/outcomely/timelock/internal/engine"
	"github.com/outcomely/timelock/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	Engine *engine.Engine
	Tokens *auth.TokenService
	Hub    *ws.Hub
	Cfg    *config.Config
}

// SetupRouter creates and configures the public Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	marketH := handler.NewMarketHandler(deps.Engine)
	statsH := handler.NewStatsHandler(deps.Engine)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.Tokens)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	writeRL := middleware.RateLimitMiddleware(10) // 10 req/s per IP for mutations

	api := r.Group("/api")
	{
		// ── Dev-only token minting ───────────────────────────────────────────
		if !deps.Cfg.IsProd() {
			tokenH := handler.NewTokenHandler(deps.Tokens)
			api.POST("/auth/token", tokenH.Issue)
		}

		// ── Markets (public reads) ───────────────────────────────────────────
		markets := api.Group("/markets")
		{
			markets.GET("", marketH.List)
			markets.GET("/:id", marketH.GetByID)
			markets.GET("/:id/dust", marketH.GetDust)
		}

		api.GET("/stats", statsH.Get)

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			authed.GET("/markets/:id/stake", marketH.GetMyStake)

			mutations := authed.Group("")
			mutations.Use(writeRL)
			{
				mutations.POST("/markets", marketH.Create)
				mutations.POST("/markets/:id/stake", marketH.Stake)
				mutations.POST("/markets/:id/claim", marketH.Claim)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured ones.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := map[string]bool{
				"https://outcomely.io":     true,
				"https://www.outcomely.io": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
