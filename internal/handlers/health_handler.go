package handlers

import (
	"context"
	"time"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type PlanFinder interface {
	FindPlanBySlug(ctx context.Context, slug string) (*models.Plan, error)
}

type HealthHandler struct {
	ping     func(ctx context.Context) error
	plans    PlanFinder
	freeSlug string
}

func NewHealthHandler(ping func(ctx context.Context) error, plans PlanFinder, freeSlug string) *HealthHandler {
	return &HealthHandler{ping: ping, plans: plans, freeSlug: freeSlug}
}

// Check reports database reachability and whether the free plan that
// resolution falls back to is present.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "ok",
		Catalog:   "ok",
	}

	if err := h.ping(ctx); err != nil {
		resp.DB = "unhealthy: " + err.Error()
		resp.Catalog = "unknown"
	} else if _, err := h.plans.FindPlanBySlug(ctx, h.freeSlug); err != nil {
		resp.Catalog = "free plan " + h.freeSlug + " unavailable: " + err.Error()
	}

	if resp.DB != "ok" || resp.Catalog != "ok" {
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
