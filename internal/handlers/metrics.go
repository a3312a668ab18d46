package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/tiktok-events-service/internal/auth"
	"github.com/PratikDhanave/tiktok-events-service/internal/store"
)

// parseWindow reads the half-open [from,to) window from RFC3339 query params.
func parseWindow(c *gin.Context) (time.Time, time.Time, string) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, "from, to are required"
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, "from must be RFC3339"
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, "to must be RFC3339"
	}

	from, to = from.UTC(), to.UTC()
	if !from.Before(to) {
		return time.Time{}, time.Time{}, "from must be < to"
	}
	return from, to, ""
}

// RegisterMetricRoutes registers the build counters.
//
// GET /metrics?from=...&to=...[&event_name=...]
// - Requires X-API-Key (tenant context)
// - With event_name: {"event_name", "count"} for builds in [from,to)
// - Without: {"counts": {name: count}} across all event names
func RegisterMetricRoutes(r gin.IRoutes, st *store.PostgresStore) {
	r.GET("/metrics", func(c *gin.Context) {
		tenantID := auth.TenantID(c)
		if tenantID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		from, to, msg := parseWindow(c)
		if msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}

		eventName := c.Query("event_name")
		if eventName == "" {
			counts, err := st.CountBuildsByName(c.Request.Context(), tenantID, from, to)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"counts": counts})
			return
		}

		count, err := st.CountBuilds(c.Request.Context(), tenantID, eventName, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"event_name": eventName,
			"count":      count,
		})
	})
}
