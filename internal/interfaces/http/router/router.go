// Package router assembles the gin engine: the middleware chain and the
// versioned route table.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/infrastructure/auth"
	"github.com/sapflow/backend/internal/infrastructure/config"
	"github.com/sapflow/backend/internal/infrastructure/logger"
	"github.com/sapflow/backend/internal/infrastructure/ratelimit"
	"github.com/sapflow/backend/internal/infrastructure/telemetry"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
	"github.com/sapflow/backend/internal/interfaces/http/handler"
	"github.com/sapflow/backend/internal/interfaces/http/middleware"
)

// Deps carries everything the route table needs. Limiter and Metrics may be
// nil when the corresponding feature is disabled.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	JWT      *auth.JWTService
	Registry *tenant.Registry
	Limiter  *ratelimit.Limiter
	Metrics  *telemetry.PostingMetrics

	System        *handler.SystemHandler
	Invoices      *handler.InvoiceHandler
	PurchaseOrder *handler.PurchaseOrderHandler
	SalesOrder    *handler.SalesOrderHandler
	Workflows     *handler.WorkflowHandler
	Transactions  *handler.TransactionHandler
}

// New builds the engine. Health probes sit outside the authenticated group;
// everything under /api/v1 requires a valid token and a resolvable tenant.
func New(deps Deps) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(deps.Config.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(deps.Config.HTTP.TrustedProxies)
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(deps.Logger),
		logger.Recovery(deps.Logger),
		middleware.CORS(deps.Config.HTTP.CORSOrigins),
	)

	engine.GET("/health", deps.System.Health)
	engine.GET("/healthz", deps.System.Health)

	api := engine.Group("/api/v1")
	api.Use(
		middleware.JWTAuth(deps.JWT),
		middleware.Tenant(deps.Registry),
	)
	if deps.Config.RateLimit.Enabled && deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter, deps.Metrics))
	}

	invoices := api.Group("/invoices")
	{
		invoices.POST("", deps.Invoices.Post)
		invoices.POST("/batch", deps.Invoices.PostBatch)
		invoices.GET("/:document", deps.Invoices.Get)
		invoices.POST("/:document/reverse", deps.Invoices.Reverse)
	}

	vendors := api.Group("/vendors")
	{
		vendors.GET("/:code/balance", deps.Invoices.VendorBalance)
		vendors.GET("/:code/open-items", deps.Invoices.OpenItems)
		vendors.POST("/:code/payments", deps.Invoices.Pay)
	}

	purchaseOrders := api.Group("/purchase-orders")
	{
		purchaseOrders.POST("", deps.PurchaseOrder.Create)
		purchaseOrders.GET("/:po", deps.PurchaseOrder.Get)
		purchaseOrders.PUT("/:po", deps.PurchaseOrder.Update)
		purchaseOrders.POST("/:po/goods-receipt", deps.PurchaseOrder.GoodsReceipt)
	}

	salesOrders := api.Group("/sales-orders")
	{
		salesOrders.POST("", deps.SalesOrder.Create)
		salesOrders.GET("/:document", deps.SalesOrder.Get)
		salesOrders.PUT("/:document", deps.SalesOrder.Update)
	}

	workflows := api.Group("/workflows")
	{
		workflows.POST("/procure-to-pay", deps.Workflows.ProcureToPay)
		workflows.POST("/invoices", deps.Workflows.ProcessInvoice)
		workflows.GET("/:id", deps.Workflows.GetExecution)
	}

	api.GET("/transactions/:module", deps.Transactions.History)

	return engine
}
