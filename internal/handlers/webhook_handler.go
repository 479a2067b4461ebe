package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	webhookApplied  = "applied"
	webhookIgnored  = "ignored"
	webhookFailed   = "failed"
	webhookRejected = "rejected"
)

// SubscriptionSyncer mirrors processor state into local subscriptions.
type SubscriptionSyncer interface {
	ApplyStripeSubscription(ctx context.Context, remote *stripe.Subscription) (*models.Subscription, error)
	SetStatusByExternalID(ctx context.Context, externalID string, status models.SubscriptionStatus) error
}

type WebhookRecorder interface {
	WebhookEvent(eventType, result string)
}

type WebhookHandler struct {
	subscriptions SubscriptionSyncer
	secret        string
	recorder      WebhookRecorder
}

func NewWebhookHandler(subscriptions SubscriptionSyncer, secret string, recorder WebhookRecorder) *WebhookHandler {
	return &WebhookHandler{
		subscriptions: subscriptions,
		secret:        secret,
		recorder:      recorder,
	}
}

// HandleStripe verifies the Stripe-Signature header and reconciles
// subscription and invoice events. Events that can never apply are
// acknowledged so Stripe stops retrying them; store failures return 500 so
// it retries.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	if h.secret == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhooks not configured",
		})
	}

	event, err := webhook.ConstructEventWithOptions(c.Body(), c.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.record("unknown", webhookRejected)
		slog.Warn("stripe webhook rejected", "action", "stripe_webhook", "error", err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook signature",
		})
	}

	eventType := string(event.Type)
	if err := h.dispatch(c.UserContext(), event); err != nil {
		if reason, ok := ignorable(err); ok {
			h.record(eventType, webhookIgnored)
			slog.Warn("stripe webhook ignored", "action", "stripe_webhook", "event_id", event.ID, "event_type", eventType, "error", err.Error())
			return c.JSON(dto.WebhookResponse{Received: true, Ignored: reason})
		}
		h.record(eventType, webhookFailed)
		slog.Error("webhook processing failed", "action", "stripe_webhook", "event_id", event.ID, "event_type", eventType, "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	h.record(eventType, webhookApplied)
	slog.Info("webhook processed", "action", "stripe_webhook", "event_id", event.ID, "event_type", eventType)
	return c.JSON(dto.WebhookResponse{Received: true})
}

var errUnhandledEvent = errors.New("unhandled event type")

func (h *WebhookHandler) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		_, err := h.subscriptions.ApplyStripeSubscription(ctx, &sub)
		return err

	case stripe.EventTypeInvoicePaymentFailed, stripe.EventTypeInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return errUnhandledEvent
		}
		status := models.SubscriptionActive
		if event.Type == stripe.EventTypeInvoicePaymentFailed {
			status = models.SubscriptionPastDue
		}
		return h.subscriptions.SetStatusByExternalID(ctx, inv.Subscription.ID, status)
	}
	return errUnhandledEvent
}

// ignorable maps errors that a redelivery cannot fix to a short reason.
func ignorable(err error) (string, bool) {
	switch {
	case errors.Is(err, errUnhandledEvent):
		return "unhandled_event", true
	case errors.Is(err, services.ErrUnknownStripePrice), errors.Is(err, services.ErrMissingStripePrice):
		return "unknown_price", true
	case errors.Is(err, services.ErrUnmappedStripeStatus):
		return "unmapped_status", true
	case errors.Is(err, services.ErrSubscriberNotFound):
		return "unknown_subscriber", true
	case errors.Is(err, services.ErrInvalidTransition):
		return "invalid_transition", true
	case errors.Is(err, entitlement.ErrNotFound):
		return "unknown_subscription", true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "malformed_object", true
	}
	return "", false
}

func (h *WebhookHandler) record(eventType, result string) {
	if h.recorder != nil {
		h.recorder.WebhookEvent(eventType, result)
	}
}
