package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/middleware"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OverrideLister interface {
	ListOverrides(ctx context.Context, userID uuid.UUID) ([]models.FeatureOverride, error)
}

type OverrideHandler struct {
	engine    EntitlementEngine
	overrides OverrideLister
	now       func() time.Time
}

func NewOverrideHandler(engine EntitlementEngine, overrides OverrideLister) *OverrideHandler {
	return &OverrideHandler{engine: engine, overrides: overrides, now: time.Now}
}

// Grant inserts a feature override for the user in the :id path param.
func (h *OverrideHandler) Grant(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}

	var req dto.GrantOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil && req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "expires_in must be a positive duration such as 72h",
			})
		}
		t := h.now().UTC().Add(d)
		expiresAt = &t
	}

	o, err := h.engine.GrantOverride(c.UserContext(), entitlement.GrantRequest{
		UserID:    userID,
		Feature:   req.Feature,
		Value:     req.Value,
		Reason:    req.Reason,
		ExpiresAt: expiresAt,
	})
	switch {
	case err == nil:
	case errors.Is(err, entitlement.ErrMalformedOverride):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, entitlement.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "User not found",
		})
	case entitlement.IsStoreUnavailable(err):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "Override store temporarily unavailable",
		})
	default:
		middleware.ReportFault(c, err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to grant override",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toOverrideResponse(o))
}

// List returns every override row of a user, expired ones included.
func (h *OverrideHandler) List(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}

	rows, err := h.overrides.ListOverrides(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch overrides",
		})
	}

	out := make([]dto.OverrideResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toOverrideResponse(&rows[i]))
	}
	return c.JSON(out)
}

func toOverrideResponse(o *models.FeatureOverride) dto.OverrideResponse {
	return dto.OverrideResponse{
		ID:        o.ID.String(),
		UserID:    o.UserID.String(),
		Feature:   o.Feature,
		Value:     []byte(o.Value),
		Reason:    o.Reason,
		CreatedAt: o.CreatedAt,
		ExpiresAt: o.ExpiresAt,
		Known:     entitlement.Feature(o.Feature).Known(),
	}
}
