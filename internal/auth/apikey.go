package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// tenantCtxKey is the Gin context key used to store the authenticated tenant ID.
const tenantCtxKey = "tenant_id"

// APIKey extracts the caller's key from X-API-Key, falling back to an
// "Authorization: Bearer" header as sent by server-side tag hosts.
func APIKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// APIKeyMiddleware maps the caller's API key to a tenant and rejects unknown keys.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := keys[APIKey(c.Request)]
		if !ok || tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(tenantCtxKey, tenantID)
		c.Next()
	}
}

// TenantID returns the authenticated tenant ID from the request context.
func TenantID(c *gin.Context) string {
	return c.GetString(tenantCtxKey)
}
