package middleware

import (
	"context"
	"errors"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/identity"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const entitlementKey = "entitlement"

// Resolver is the part of entitlement.Engine the HTTP layer depends on.
type Resolver interface {
	GetEffectiveEntitlement(ctx context.Context, userID uuid.UUID) (*entitlement.EffectiveEntitlement, error)
}

type DenialRecorder interface {
	Denied(capability string)
}

// EntitlementGate turns entitlement predicates into route middleware.
type EntitlementGate struct {
	resolver Resolver
	denials  DenialRecorder
}

func NewEntitlementGate(resolver Resolver, denials DenialRecorder) *EntitlementGate {
	return &EntitlementGate{resolver: resolver, denials: denials}
}

// Require resolves the caller's entitlement and lets the request through only
// when pred holds. Resolution failures deny: 503 when the store is
// unavailable, 500 for anything else. The resolved entitlement is stored for
// handlers, see FromContext.
func (g *EntitlementGate) Require(capability string, pred func(*entitlement.EffectiveEntitlement) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := identity.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		ent, err := g.resolver.GetEffectiveEntitlement(c.UserContext(), userID)
		if err != nil {
			g.deny(capability)
			return EntitlementFailure(c, err)
		}
		if !entitlement.Allowed(ent, nil, pred) {
			g.deny(capability)
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Your plan does not include " + capability,
			})
		}

		c.Locals(entitlementKey, ent)
		return c.Next()
	}
}

func (g *EntitlementGate) deny(capability string) {
	if g.denials != nil {
		g.denials.Denied(capability)
	}
}

// FromContext returns the entitlement resolved by Require, or nil.
func FromContext(c *fiber.Ctx) *entitlement.EffectiveEntitlement {
	ent, _ := c.Locals(entitlementKey).(*entitlement.EffectiveEntitlement)
	return ent
}

// EntitlementFailure writes the fail-closed response for a resolution error.
func EntitlementFailure(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Entitlements could not be resolved"
	switch {
	case entitlement.IsStoreUnavailable(err):
		status = fiber.StatusServiceUnavailable
		message = "Entitlements temporarily unavailable"
	case errors.Is(err, entitlement.ErrNotFound):
		status = fiber.StatusNotFound
		message = "Entitlement data not found"
	case entitlement.IsConfigurationFault(err):
		ReportFault(c, err)
	}

	return c.Status(status).JSON(dto.EntitlementErrorResponse{
		Error:        true,
		Message:      message,
		Capabilities: entitlement.DeniedCapabilities(),
	})
}

// ReportFault sends err to Sentry through the request hub when one is bound.
func ReportFault(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}
