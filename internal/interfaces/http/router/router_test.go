package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appfi "github.com/sapflow/backend/internal/application/fi"
	appmm "github.com/sapflow/backend/internal/application/mm"
	"github.com/sapflow/backend/internal/application/sapops"
	appsd "github.com/sapflow/backend/internal/application/sd"
	"github.com/sapflow/backend/internal/application/workflow"
	dworkflow "github.com/sapflow/backend/internal/domain/workflow"
	"github.com/sapflow/backend/internal/infrastructure/auth"
	"github.com/sapflow/backend/internal/infrastructure/breaker"
	"github.com/sapflow/backend/internal/infrastructure/config"
	"github.com/sapflow/backend/internal/infrastructure/gateway"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
	"github.com/sapflow/backend/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testEngine() *gin.Engine {
	cfg := &config.Config{}
	cfg.App.Name = "sapflow-backend"
	cfg.App.Env = "test"

	registry := tenant.NewRegistry([]tenant.Connection{
		{TenantID: "acme-prod", BaseURL: "http://gateway.local", CompanyCode: "1000"},
	})
	deps := sapops.Deps{
		Connectors: gateway.NewFactory(registry, gateway.Options{Timeout: time.Second}),
		Breakers:   breaker.NewPool(breaker.DefaultConfig()),
	}

	accounts := appfi.NewAccountsPayable(deps)
	purchasing := appmm.NewPurchaseOrders(deps)
	sales := appsd.NewSalesOrders(deps)

	thresholds := workflow.DefaultThresholds()
	p2p := workflow.NewProcureToPay(purchasing, accounts, workflow.ProcureToPayOptions{
		Thresholds: &thresholds,
		Tracker:    dworkflow.NewTracker(8),
	})
	invoices := workflow.NewInvoiceProcessing(accounts, purchasing, workflow.InvoiceProcessingOptions{
		Thresholds: &thresholds,
	})

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-at-least-32-characters",
		Issuer:     "sapflow-test",
		Expiration: time.Hour,
	})

	return New(Deps{
		Config:        cfg,
		Logger:        zap.NewNop(),
		JWT:           jwtService,
		Registry:      registry,
		System:        handler.NewSystemHandler(cfg, registry),
		Invoices:      handler.NewInvoiceHandler(accounts),
		PurchaseOrder: handler.NewPurchaseOrderHandler(purchasing),
		SalesOrder:    handler.NewSalesOrderHandler(sales),
		Workflows:     handler.NewWorkflowHandler(p2p, invoices, nil),
		Transactions:  handler.NewTransactionHandler(accounts, purchasing, sales),
	})
}

func TestHealthIsPublic(t *testing.T) {
	w := httptest.NewRecorder()
	testEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sapflow-backend")
}

func TestAPIRequiresAuthentication(t *testing.T) {
	w := httptest.NewRecorder()
	testEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/5100000123", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRequiresResolvableTenant(t *testing.T) {
	engine := testEngine()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-at-least-32-characters",
		Issuer:     "sapflow-test",
		Expiration: time.Hour,
	})
	token, _, err := jwtService.Generate("user-1", "ghost-tenant", "ap.clerk")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/unknown", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWorkflowLookupThroughFullChain(t *testing.T) {
	engine := testEngine()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-at-least-32-characters",
		Issuer:     "sapflow-test",
		Expiration: time.Hour,
	})
	token, _, err := jwtService.Generate("user-1", "acme-prod", "ap.clerk")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/P2P-missing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
