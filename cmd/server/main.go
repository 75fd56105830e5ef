package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gobill/billing-service/internal/adapters/postgres"
	"github.com/gobill/billing-service/internal/adapters/secrets"
	stripeadapter "github.com/gobill/billing-service/internal/adapters/stripe"
	"github.com/gobill/billing-service/internal/config"
	billingHandler "github.com/gobill/billing-service/internal/handlers/billing"
	cronHandler "github.com/gobill/billing-service/internal/handlers/cron"
	webhookHandler "github.com/gobill/billing-service/internal/handlers/webhook"
	"github.com/gobill/billing-service/internal/services/hooks"
	"github.com/gobill/billing-service/internal/services/lifecycle"
	"github.com/gobill/billing-service/internal/services/plansync"
	"github.com/gobill/billing-service/internal/services/reconcile"
	"github.com/gobill/billing-service/internal/services/resolver"
	webhookService "github.com/gobill/billing-service/internal/services/webhook"
	"github.com/gobill/billing-service/pkg/logging"
	"github.com/gobill/billing-service/pkg/observability"
	"github.com/gobill/billing-service/pkg/resilience"
	"github.com/gobill/billing-service/pkg/shutdown"
)

func main() {
	// Initialize logger
	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting billing service",
		zap.String("version", "0.1.0"),
	)

	// Load configuration from environment
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Resolve the provider API key: environment first, Secrets Manager
	// when only a secret name is configured.
	apiKey := cfg.Stripe.SecretKey
	if apiKey == "" {
		loader, err := secrets.NewLoader(ctx, logger)
		if err != nil {
			logger.Fatal("Failed to initialize secrets loader", zap.Error(err))
		}
		apiKey, err = loader.GetSecret(ctx, cfg.Stripe.SecretName)
		if err != nil {
			logger.Fatal("Failed to load provider API key", zap.Error(err))
		}
	}

	// Initialize database connection pool
	dbConfig := postgres.DefaultConfig(cfg.Database.ConnectionString())
	dbConfig.MaxConns = cfg.Database.MaxConns
	dbConfig.MinConns = cfg.Database.MinConns

	db, err := postgres.NewAdapter(ctx, dbConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Initialize dependencies
	domainLogger := logging.NewZapLogger(logger)
	timeouts := resilience.DefaultTimeoutConfig()

	httpClient := &http.Client{Timeout: time.Duration(cfg.Stripe.Timeout) * time.Second}
	gateway := stripeadapter.NewGateway(apiKey, httpClient)

	accounts := postgres.NewAccountRepository()
	plans := postgres.NewPlanRepository()
	subscriptions := postgres.NewSubscriptionRepository()
	charges := postgres.NewChargeRepository()

	// Webhook pipeline: reconciliation handlers register first so local
	// projections are current before any application hooks run.
	registry := hooks.NewRegistry(domainLogger)
	engine := reconcile.NewEngine(
		reconcile.Config{DefaultPlanCode: cfg.Billing.DefaultPlanCode},
		db.Pool(), db,
		accounts, plans, subscriptions, charges,
		gateway, domainLogger,
	)
	engine.Register(registry)

	entityResolver := resolver.NewResolver(gateway, domainLogger)
	ingress := webhookService.NewIngress(registry, entityResolver, domainLogger)

	ipSource := stripeadapter.NewIPSource(httpClient)
	allowlist := webhookService.NewAllowlist(ipSource, cfg.Webhook.AllowedIPs, cfg.Webhook.RefreshInterval, domainLogger)
	allowlistCtx, stopAllowlist := context.WithCancel(ctx)
	allowlist.Start(allowlistCtx)

	syncer := plansync.NewSyncer(db.Pool(), db, plans, gateway, domainLogger)

	lifecycleService := lifecycle.NewService(db.Pool(), db,
		accounts, plans, subscriptions, charges,
		gateway, domainLogger)

	// HTTP server: the webhook endpoint, the billing API for the
	// application backend, and the scheduler-invoked plan sync endpoint.
	webhooks := webhookHandler.NewHandler(allowlist, ingress, timeouts, logger)
	billing := billingHandler.NewHandler(lifecycleService, timeouts, logger)
	planSync := cronHandler.NewPlanSyncHandler(syncer, timeouts, logger, cfg.Server.CronSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/payment", webhooks.HandleEvent)
	mux.HandleFunc("/api/v1/subscriptions", billing.Subscribe)
	mux.HandleFunc("/api/v1/subscriptions/cancel", billing.Cancel)
	mux.HandleFunc("/api/v1/charges", billing.CreateChargeOrList)
	mux.HandleFunc("/api/v1/charges/history", billing.ChargeHistory)
	mux.HandleFunc("/api/v1/customers", billing.EnsureCustomer)
	mux.HandleFunc("/cron/sync-plans", planSync.SyncPlans)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Metrics and health endpoints on a separate port
	healthChecker := observability.NewHealthChecker(db.Pool())
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker)

	// Graceful shutdown: reverse registration order, so inbound traffic
	// stops before the pool closes.
	shutdownManager := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	shutdownManager.Register("database", func(shutdownCtx context.Context) error {
		db.Close()
		return nil
	})
	shutdownManager.Register("allowlist-refresher", func(shutdownCtx context.Context) error {
		stopAllowlist()
		return nil
	})
	shutdownManager.Register("metrics-server", func(shutdownCtx context.Context) error {
		return observability.ShutdownMetricsServer(metricsServer)
	})
	shutdownManager.Register("http-server", func(shutdownCtx context.Context) error {
		return httpServer.Shutdown(shutdownCtx)
	})

	shutdownManager.WaitForShutdown()
}

func initLogger() *zap.Logger {
	env := os.Getenv("ENVIRONMENT")

	if env == "production" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, _ := zapCfg.Build()
		return logger
	}

	logger, _ := zap.NewDevelopment()
	return logger
}
