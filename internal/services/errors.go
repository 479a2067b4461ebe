package services

import (
	"errors"
	"fmt"

	"github.com/designpulse/feedback-backend/internal/entitlement"
	"gorm.io/gorm"
)

var (
	ErrUnknownStripePrice   = errors.New("stripe price is not in the catalog")
	ErrMissingStripePrice   = errors.New("stripe subscription has no price")
	ErrUnmappedStripeStatus = errors.New("stripe subscription status is not mirrored")
	ErrSubscriberNotFound   = errors.New("no user matches the stripe subscription")
	ErrInvalidTransition    = errors.New("subscription status transition not allowed")
	ErrProjectNotFound      = errors.New("project not found")
	ErrScreenNotFound       = errors.New("screen not found")
)

// notFound translates gorm's missing-row error into entitlement.ErrNotFound so
// callers outside this package never depend on gorm.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, entitlement.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
