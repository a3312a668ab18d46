package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/tiktok-events-service/internal/auth"
	"github.com/PratikDhanave/tiktok-events-service/internal/config"
	"github.com/PratikDhanave/tiktok-events-service/internal/cookies"
	"github.com/PratikDhanave/tiktok-events-service/internal/handlers"
	"github.com/PratikDhanave/tiktok-events-service/internal/store"
	"github.com/PratikDhanave/tiktok-events-service/internal/tiktok"
)

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready
// Authenticated: /events/:type, /metrics
// visitors may be nil when no Redis is configured.
func NewRouter(cfg config.Config, st *store.PostgresStore, visitors *cookies.VisitorStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestIDMiddleware())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB (and Redis, when configured) are reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		if visitors != nil {
			if err := visitors.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	authGroup := r.Group("/")
	authGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	handlers.RegisterEventRoutes(authGroup, handlers.EventDeps{
		Store:           st,
		Visitors:        visitors,
		DefaultSettings: tiktok.Settings{HideClientIP: cfg.HideClientIP},
		CookieMaxAge:    cfg.VisitorTTL,
	})
	handlers.RegisterMetricRoutes(authGroup, st)

	return r
}
