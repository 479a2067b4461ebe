package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionCanceled, SubscriptionPastDue:
		return true
	}
	return false
}

// CanTransitionTo reports whether the processor may move a subscription from
// s to next. canceled is terminal. Staying in the same state is allowed so
// that replayed webhook deliveries are no-ops.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	if s == next {
		return next.Valid()
	}
	switch s {
	case SubscriptionActive:
		return next == SubscriptionCanceled || next == SubscriptionPastDue
	case SubscriptionPastDue:
		return next == SubscriptionActive || next == SubscriptionCanceled
	}
	return false
}

// Subscription mirrors the payment processor's subscription locally. Rows are
// only written by webhook reconciliation; entitlement resolution reads them.
type Subscription struct {
	ID                 uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;index:idx_subscriptions_user_status,priority:1" json:"user_id"`
	PlanPriceID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"plan_price_id"`
	Status             SubscriptionStatus `gorm:"size:20;not null;index:idx_subscriptions_user_status,priority:2" json:"status"`
	AutoRenew          bool               `gorm:"not null" json:"auto_renew"`
	ExternalID         *string            `gorm:"size:255;uniqueIndex" json:"external_id,omitempty"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CreatedAt          time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	PlanPrice          PlanPrice          `gorm:"foreignKey:PlanPriceID" json:"-"`
	User               User               `gorm:"foreignKey:UserID" json:"-"`
}
