package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/designpulse/feedback-backend/internal/apps"
	"github.com/designpulse/feedback-backend/internal/apps/projects"
	"github.com/designpulse/feedback-backend/internal/catalog"
	"github.com/designpulse/feedback-backend/internal/config"
	"github.com/designpulse/feedback-backend/internal/database"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/handlers"
	"github.com/designpulse/feedback-backend/internal/logging"
	"github.com/designpulse/feedback-backend/internal/metrics"
	"github.com/designpulse/feedback-backend/internal/middleware"
	"github.com/designpulse/feedback-backend/internal/routes"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}
	if cfg.StripeWebhookSecret == "" {
		slog.Warn("STRIPE_WEBHOOK_SECRET not set, subscription webhooks are disabled")
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// Migrate shared models
	if err := database.MigrateShared(); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// Plan catalog: the free plan must exist before the first resolution
	catalogFile, err := catalog.LoadOrDefault(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load plan catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	err = catalog.Apply(seedCtx, database.DB, catalogFile, cfg.FreePlanSlug)
	cancelSeed()
	if err != nil {
		slog.Error("failed to apply plan catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("plan catalog applied", "plans", len(catalogFile.Plans))

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout, cfg.AppEnv),
		pgLogHandler,
	)))

	// Log cleanup
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Services
	userService := services.NewUserService(database.DB)
	catalogService := services.NewCatalogService(database.DB)
	overrideService := services.NewOverrideService(database.DB)
	subscriptionService := services.NewSubscriptionService(database.DB)

	engine := entitlement.NewEngine(services.NewEntitlementStore(database.DB), entitlement.Options{
		FreePlanSlug: cfg.FreePlanSlug,
		Timeout:      cfg.StoreTimeout,
		Recorder:     m,
	})
	gate := middleware.NewEntitlementGate(engine, m)

	// Register plugins
	plugins := []apps.Plugin{
		projects.New(),
	}

	// Migrate plugin models
	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.PingContext, catalogService, cfg.FreePlanSlug)
	planHandler := handlers.NewPlanHandler(catalogService)
	entitlementHandler := handlers.NewEntitlementHandler(engine)
	overrideHandler := handlers.NewOverrideHandler(engine, overrideService)
	webhookHandler := handlers.NewWebhookHandler(subscriptionService, cfg.StripeWebhookSecret, m)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(m.Middleware())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, cfg, userService, healthHandler, planHandler, entitlementHandler, overrideHandler, webhookHandler, m.Handler(), plugins, apps.Deps{
		DB:       database.DB,
		Config:   cfg,
		Gate:     gate,
		Resolver: engine,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "request_id", c.GetRespHeader(fiber.HeaderXRequestID), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
