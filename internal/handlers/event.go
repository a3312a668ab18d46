package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/tiktok-events-service/internal/auth"
	"github.com/PratikDhanave/tiktok-events-service/internal/cookies"
	"github.com/PratikDhanave/tiktok-events-service/internal/models"
	"github.com/PratikDhanave/tiktok-events-service/internal/store"
	"github.com/PratikDhanave/tiktok-events-service/internal/tiktok"
)

// EventDeps are the collaborators of the build endpoint.
type EventDeps struct {
	Store *store.PostgresStore
	// Visitors is optional.
	Visitors        *cookies.VisitorStore
	DefaultSettings tiktok.Settings
	// CookieMaxAge applies to cookies echoed via Set-Cookie.
	CookieMaxAge time.Duration
}

// reservedID draws a random event id and binds it to an idempotency key,
// so retries of the same event reuse the first id.
type reservedID struct {
	ctx      context.Context
	st       *store.PostgresStore
	tenantID string
	key      string
}

func (r reservedID) NewID() (string, error) {
	candidate, err := tiktok.RandomID()
	if err != nil {
		return "", err
	}
	return r.st.ReserveEventID(r.ctx, r.tenantID, r.key, candidate)
}

// RegisterEventRoutes registers the build endpoint.
//
// POST /events/:type
// - Requires X-API-Key (tenant context)
// - Returns the Events API request body; nothing is sent upstream
// - Idempotency-Key header pins the generated event_id across retries
func RegisterEventRoutes(r gin.IRoutes, deps EventDeps) {
	r.POST("/events/:type", func(c *gin.Context) {
		tenantID := auth.TenantID(c)
		if tenantID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req models.BuildRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		eventType := c.Param("type")
		ctx := c.Request.Context()

		settings := deps.DefaultSettings
		if req.Settings != nil {
			settings = *req.Settings
		}

		var fallback cookies.Store
		if deps.Visitors != nil && req.Event.Client.VisitorID != "" {
			fallback = deps.Visitors.For(ctx, req.Event.Client.VisitorID)
		}
		jar := cookies.NewJar(req.Event.Client.Cookies, fallback)

		builder := tiktok.NewBuilder()
		if key := c.GetHeader("Idempotency-Key"); key != "" {
			builder = tiktok.NewBuilder(tiktok.WithIDGenerator(reservedID{
				ctx:      ctx,
				st:       deps.Store,
				tenantID: tenantID,
				key:      key,
			}))
		}

		res, err := builder.Build(eventType, req.Event.ToEvent(jar), settings)
		if err != nil {
			log.Printf("request_id=%s build failed: %v", RequestID(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "build failed"})
			return
		}

		data := res.Data()
		if _, err := deps.Store.RecordBuild(ctx, tenantID, data.EventID, data.Event, res.EventTime, data.Properties); err != nil {
			log.Printf("request_id=%s record build failed: %v", RequestID(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		writes := jar.Writes()
		for name, value := range writes {
			c.SetCookie(name, value, int(deps.CookieMaxAge.Seconds()), "/", "", true, false)
		}

		c.JSON(http.StatusOK, models.BuildResponse{
			Body:       res.Body,
			Payload:    res.Payload,
			SetCookies: writes,
		})
	})
}
