package dto

import (
	"encoding/json"
	"time"

	"github.com/designpulse/feedback-backend/internal/entitlement"
)

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Catalog   string `json:"catalog"`
}

// EntitlementErrorResponse is returned when resolution fails. Capabilities
// are all false so clients that read them fail closed.
type EntitlementErrorResponse struct {
	Error        bool                         `json:"error"`
	Message      string                       `json:"message"`
	Capabilities map[entitlement.Feature]bool `json:"capabilities"`
}

// GrantOverrideRequest is the admin payload for a feature override. Value is
// kept raw so unknown features and future value shapes are stored as sent.
// ExpiresIn is a Go duration ("72h") and is ignored when ExpiresAt is set.
type GrantOverrideRequest struct {
	Feature   string          `json:"feature"`
	Value     json.RawMessage `json:"value"`
	Reason    string          `json:"reason"`
	ExpiresAt *time.Time      `json:"expires_at"`
	ExpiresIn string          `json:"expires_in"`
}

type OverrideResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Feature   string          `json:"feature"`
	Value     json.RawMessage `json:"value"`
	Reason    *string         `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Known     bool            `json:"known"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Ignored  string `json:"ignored,omitempty"`
}
