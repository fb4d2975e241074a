package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/application/ai"
	appfi "github.com/sapflow/backend/internal/application/fi"
	appmm "github.com/sapflow/backend/internal/application/mm"
	"github.com/sapflow/backend/internal/application/sapops"
	appsd "github.com/sapflow/backend/internal/application/sd"
	"github.com/sapflow/backend/internal/application/workflow"
	"github.com/sapflow/backend/internal/domain/shared"
	dworkflow "github.com/sapflow/backend/internal/domain/workflow"
	"github.com/sapflow/backend/internal/infrastructure/alerting"
	"github.com/sapflow/backend/internal/infrastructure/audit"
	"github.com/sapflow/backend/internal/infrastructure/auth"
	"github.com/sapflow/backend/internal/infrastructure/breaker"
	"github.com/sapflow/backend/internal/infrastructure/cache"
	"github.com/sapflow/backend/internal/infrastructure/config"
	"github.com/sapflow/backend/internal/infrastructure/gateway"
	"github.com/sapflow/backend/internal/infrastructure/logger"
	"github.com/sapflow/backend/internal/infrastructure/ratelimit"
	"github.com/sapflow/backend/internal/infrastructure/telemetry"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
	"github.com/sapflow/backend/internal/interfaces/http/handler"
	"github.com/sapflow/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Int("tenants", len(cfg.Tenants)),
	)

	connections := make([]tenant.Connection, 0, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		connections = append(connections, tenant.Connection{
			TenantID:    t.ID,
			BaseURL:     t.BaseURL,
			Client:      t.Client,
			SystemID:    t.SystemID,
			CompanyCode: t.CompanyCode,
			Language:    t.Language,
		})
	}
	registry := tenant.NewRegistry(connections)

	connectors := gateway.NewFactory(registry, gateway.Options{
		Timeout:         cfg.Gateway.Timeout,
		MaxResponseSize: cfg.Gateway.MaxResponseSize,
	})

	breakers := breaker.NewPool(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	})

	var dedup shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		switch cfg.Idempotency.Backend {
		case "redis":
			store, err := cache.NewRedisIdempotencyStore(cache.RedisOptions{
				Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				log.Fatal("Failed to connect idempotency store", zap.Error(err))
			}
			dedup = store
		default:
			dedup = cache.NewInMemoryIdempotencyStore()
		}
	}

	var auditSink sapops.AuditSink
	if cfg.Audit.Enabled {
		store, err := audit.Open(&cfg.Audit, log)
		if err != nil {
			log.Fatal("Failed to open audit store", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		auditSink = store
	}

	var alerts alerting.Notifier = alerting.NopNotifier{}
	if cfg.Alerting.Enabled {
		alerts = alerting.NewWebhookNotifier(cfg.Alerting.WebhookURL, cfg.Alerting.Timeout, log)
	}

	metrics, err := telemetry.NewPostingMetrics(otel.GetMeterProvider().Meter("sapflow-backend"))
	if err != nil {
		log.Fatal("Failed to create metrics", zap.Error(err))
	}

	deps := sapops.Deps{
		Connectors:  connectors,
		Breakers:    breakers,
		Metrics:     metrics,
		Audit:       auditSink,
		Alerts:      alerts,
		Idempotency: dedup,
		IdempotencyCfg: shared.IdempotencyConfig{
			Enabled: cfg.Idempotency.Enabled,
			TTL:     cfg.Idempotency.TTL,
		},
	}

	accounts := appfi.NewAccountsPayable(deps)
	purchasing := appmm.NewPurchaseOrders(deps)
	sales := appsd.NewSalesOrders(deps)

	thresholds := workflow.ThresholdsFromConfig(cfg.Workflow)
	tracker := dworkflow.NewTracker(1024)

	procureToPay := workflow.NewProcureToPay(purchasing, accounts, workflow.ProcureToPayOptions{
		Classifier: ai.NewRuleClassifier(),
		Detector:   ai.NewVarianceDetector(),
		Alerts:     alerts,
		Thresholds: &thresholds,
		Tracker:    tracker,
	})
	invoiceProcessing := workflow.NewInvoiceProcessing(accounts, purchasing, workflow.InvoiceProcessingOptions{
		Extractor:  ai.NewRegexExtractor(),
		Dedup:      dedup,
		Alerts:     alerts,
		Thresholds: &thresholds,
	})

	jwtService := auth.NewJWTService(cfg.JWT)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerMinute)
		defer limiter.Stop()
	}

	engine := router.New(router.Deps{
		Config:        cfg,
		Logger:        log,
		JWT:           jwtService,
		Registry:      registry,
		Limiter:       limiter,
		Metrics:       metrics,
		System:        handler.NewSystemHandler(cfg, registry),
		Invoices:      handler.NewInvoiceHandler(accounts),
		PurchaseOrder: handler.NewPurchaseOrderHandler(purchasing),
		SalesOrder:    handler.NewSalesOrderHandler(sales),
		Workflows:     handler.NewWorkflowHandler(procureToPay, invoiceProcessing, metrics),
		Transactions:  handler.NewTransactionHandler(accounts, purchasing, sales),
	})

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
