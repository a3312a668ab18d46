package handlers

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDCtxKey = "request_id"
)

// RequestIDMiddleware tags each request with an id (the caller's, when
// supplied) and logs one line per request.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDCtxKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		log.Printf("request_id=%s method=%s path=%s status=%d latency=%s",
			id, c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// RequestID returns the id assigned by RequestIDMiddleware.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDCtxKey)
}
