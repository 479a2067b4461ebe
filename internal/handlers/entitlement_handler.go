package handlers

import (
	"context"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/identity"
	"github.com/designpulse/feedback-backend/internal/middleware"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// EntitlementEngine is the subset of entitlement.Engine used by handlers.
type EntitlementEngine interface {
	GetEffectiveEntitlement(ctx context.Context, userID uuid.UUID) (*entitlement.EffectiveEntitlement, error)
	GrantOverride(ctx context.Context, req entitlement.GrantRequest) (*models.FeatureOverride, error)
}

type EntitlementHandler struct {
	engine EntitlementEngine
}

func NewEntitlementHandler(engine EntitlementEngine) *EntitlementHandler {
	return &EntitlementHandler{engine: engine}
}

// Mine returns the caller's effective entitlement.
func (h *EntitlementHandler) Mine(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	return h.respond(c, userID)
}

// ForUser returns the effective entitlement of the user in the :id path param.
func (h *EntitlementHandler) ForUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}
	return h.respond(c, userID)
}

func (h *EntitlementHandler) respond(c *fiber.Ctx, userID uuid.UUID) error {
	ent, err := h.engine.GetEffectiveEntitlement(c.UserContext(), userID)
	if err != nil {
		return middleware.EntitlementFailure(c, err)
	}
	return c.JSON(ent)
}
