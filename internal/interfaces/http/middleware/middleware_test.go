package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapflow/backend/internal/infrastructure/auth"
	"github.com/sapflow/backend/internal/infrastructure/config"
	"github.com/sapflow/backend/internal/infrastructure/ratelimit"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-at-least-32-characters",
		Issuer:     "sapflow-test",
		Expiration: time.Hour,
	})
}

func testRegistry() *tenant.Registry {
	return tenant.NewRegistry([]tenant.Connection{
		{TenantID: "acme-prod", BaseURL: "http://gateway.local", CompanyCode: "1000"},
	})
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRequestIDEchoesCallerID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := serve(engine, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	engine := gin.New()
	engine.Use(JWTAuth(testJWTService()))
	engine.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthRejectsGarbageToken(t *testing.T) {
	engine := gin.New()
	engine.Use(JWTAuth(testJWTService()))
	engine.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := serve(engine, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthAcceptsValidTokenAndSetsClaims(t *testing.T) {
	svc := testJWTService()
	token, _, err := svc.Generate("user-1", "acme-prod", "ap.clerk")
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(JWTAuth(svc))
	engine.GET("/api", func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		require.NotNil(t, claims)
		assert.Equal(t, "acme-prod", claims.TenantID)
		assert.Equal(t, "acme-prod", c.GetString(JWTTenantIDKey))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(engine, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthSkipsHealthProbes(t *testing.T) {
	engine := gin.New()
	engine.Use(JWTAuth(testJWTService()))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenantRequiresAnID(t *testing.T) {
	engine := gin.New()
	engine.Use(Tenant(testRegistry()))
	engine.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantRejectsUnknownTenant(t *testing.T) {
	engine := gin.New()
	engine.Use(Tenant(testRegistry()))
	engine.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set(TenantHeader, "nobody")
	w := serve(engine, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTenantPlacesContextOnRequest(t *testing.T) {
	engine := gin.New()
	engine.Use(Tenant(testRegistry()))
	engine.GET("/api", func(c *gin.Context) {
		tc, ok := tenant.FromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, "acme-prod", tc.TenantID)
		assert.Equal(t, "1000", tc.CompanyCode)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set(TenantHeader, "acme-prod")
	w := serve(engine, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	limiter := ratelimit.New(1)
	defer limiter.Stop()

	engine := gin.New()
	engine.Use(RateLimit(limiter, nil))
	engine.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := serve(engine, httptest.NewRequest(http.MethodGet, "/api", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := serve(engine, httptest.NewRequest(http.MethodGet, "/api", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
}

func TestCORSAnswersPreflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"https://app.example.com"}))
	engine.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(engine, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresDisallowedOrigin(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(nil))
	engine.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := serve(engine, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
