package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/infrastructure/logger"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
	"github.com/sapflow/backend/internal/interfaces/http/dto"
)

// TenantHeader optionally overrides the tenant from the JWT claims, for
// service accounts allowed to act across tenants.
const TenantHeader = "X-Tenant-ID"

// Tenant resolves the request's tenant against the registry and places the
// tenant context on the request: every downstream gateway call routes through
// it. Requests without a resolvable tenant are rejected.
func Tenant(registry *tenant.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(TenantHeader)
		if tenantID == "" {
			tenantID = c.GetString(JWTTenantIDKey)
		}
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse("TENANT_REQUIRED", "No tenant in token or X-Tenant-ID header"))
			return
		}

		conn, err := registry.Resolve(tenantID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity,
				dto.NewErrorResponse("UNKNOWN_TENANT", "Tenant is not configured: "+tenantID))
			return
		}

		ctx := tenant.WithContext(c.Request.Context(), tenant.Context{
			TenantID:    conn.TenantID,
			CompanyCode: conn.CompanyCode,
			UserID:      c.GetString(JWTUserIDKey),
		})
		ctx = logger.WithTenant(ctx, conn.TenantID, conn.CompanyCode)

		c.Set("tenant_id", conn.TenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
