package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/infrastructure/ratelimit"
	"github.com/sapflow/backend/internal/infrastructure/telemetry"
	"github.com/sapflow/backend/internal/interfaces/http/dto"
)

// RateLimit enforces the per-client budget before any work happens. The
// client is the authenticated tenant when known, the remote address
// otherwise. Rejections carry Retry-After. Metrics may be nil.
func RateLimit(limiter *ratelimit.Limiter, metrics *telemetry.PostingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("tenant_id")
		if clientID == "" {
			clientID = c.GetString(JWTTenantIDKey)
		}
		if clientID == "" {
			clientID = c.ClientIP()
		}

		if !limiter.Allow(clientID) {
			rlErr := shared.NewRateLimitError(clientID, limiter.WaitTime(clientID))
			retryAfter := int(math.Ceil(rlErr.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			if metrics != nil {
				metrics.RecordRateLimited(c.Request.Context(), clientID)
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse("RATE_LIMITED", rlErr.Error()))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(clientID)))
		c.Next()
	}
}
