package routes

import (
	"time"

	"github.com/designpulse/feedback-backend/internal/apps"
	"github.com/designpulse/feedback-backend/internal/config"
	"github.com/designpulse/feedback-backend/internal/handlers"
	"github.com/designpulse/feedback-backend/internal/middleware"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	users *services.UserService,
	healthHandler *handlers.HealthHandler,
	planHandler *handlers.PlanHandler,
	entitlementHandler *handlers.EntitlementHandler,
	overrideHandler *handlers.OverrideHandler,
	webhookHandler *handlers.WebhookHandler,
	metricsHandler fiber.Handler,
	plugins []apps.Plugin,
	deps apps.Deps,
) {
	// Prometheus scrape endpoint, outside the API rate limit
	app.Get("/metrics", metricsHandler)

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Public
	api.Get("/health", healthHandler.Check)
	api.Get("/plans", planHandler.List)

	// Caller's own entitlement (JWT required, applied per route so public
	// routes stay public)
	api.Get("/entitlements", middleware.JWTProtected(cfg), middleware.EnsureProfile(users), entitlementHandler.Mine)

	// Admin (JWT or admin token, then admin check)
	admin := api.Group("/admin", middleware.JWTOrAdminToken(cfg), middleware.AdminRequired(users, cfg))
	admin.Get("/users/:id/entitlements", entitlementHandler.ForUser)
	admin.Get("/users/:id/overrides", overrideHandler.List)
	admin.Post("/users/:id/overrides", overrideHandler.Grant)

	// Webhooks: Stripe signature, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", webhookHandler.HandleStripe)

	// Plugin routes under a protected group
	protected := api.Group("/p", middleware.JWTProtected(cfg), middleware.EnsureProfile(users))
	for _, p := range plugins {
		p.RegisterRoutes(protected, deps)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, deps)
		}
	}
}
