// Package middleware holds the gin middleware chain: request ids, JWT auth,
// tenant resolution and per-client rate limiting.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/infrastructure/logger"
)

// RequestIDHeader is the inbound/outbound request id header
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to every request: the caller's when
// provided, a generated one otherwise. The id is placed on the request
// context for log enrichment and echoed in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}

		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// generateRequestID returns 128 random bits in hex
func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(bytes)
}
