package handlers

import (
	"context"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type PlanLister interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

type PlanHandler struct {
	plans PlanLister
}

func NewPlanHandler(plans PlanLister) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// List returns the catalog with active prices only (public).
func (h *PlanHandler) List(c *fiber.Ctx) error {
	plans, err := h.plans.ListPlans(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch plans",
		})
	}
	return c.JSON(plans)
}
