package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/infrastructure/auth"
	"github.com/sapflow/backend/internal/infrastructure/logger"
	"github.com/sapflow/backend/internal/interfaces/http/dto"
)

// Context keys set after successful authentication
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"

	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// defaultSkipPaths never require authentication
var defaultSkipPaths = []string{"/health", "/healthz", "/ready"}

// JWTAuth validates the bearer token and stores its claims on the gin
// context. The authenticated user id is also placed on the request context
// for log enrichment.
func JWTAuth(svc *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range defaultSkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}

		header := c.GetHeader(authHeaderKey)
		if header == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := svc.Validate(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			abortUnauthorized(c, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", message))
}

// ClaimsFromContext returns the validated claims, or nil outside an
// authenticated request.
func ClaimsFromContext(c *gin.Context) *auth.Claims {
	value, ok := c.Get(JWTClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*auth.Claims)
	return claims
}
