package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StripeUserIDKey is the subscription metadata key that carries our user id.
const StripeUserIDKey = "user_id"

type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// FindLatestActiveSubscription returns the most recently created active row.
// Equal creation times are ordered by id descending.
func (s *SubscriptionService) FindLatestActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Order("created_at DESC, id DESC").
		First(&sub).Error
	if err != nil {
		return nil, notFound(err, "active subscription for user "+userID.String())
	}
	return &sub, nil
}

// MapStripeStatus folds Stripe's statuses onto the local state machine. ok is
// false for statuses that have no local counterpart (incomplete, paused).
func MapStripeStatus(status stripe.SubscriptionStatus) (models.SubscriptionStatus, bool) {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.SubscriptionActive, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionPastDue, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionCanceled, true
	}
	return "", false
}

// ApplyStripeSubscription converges the local mirror with a Stripe
// subscription object. Unseen subscriptions are inserted; known ones are
// updated when the state machine allows the move.
func (s *SubscriptionService) ApplyStripeSubscription(ctx context.Context, remote *stripe.Subscription) (*models.Subscription, error) {
	status, ok := MapStripeStatus(remote.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnmappedStripeStatus, remote.Status)
	}
	if remote.Items == nil || len(remote.Items.Data) == 0 || remote.Items.Data[0].Price == nil {
		return nil, ErrMissingStripePrice
	}
	stripePriceID := remote.Items.Data[0].Price.ID

	var result models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var price models.PlanPrice
		if err := tx.Where("stripe_price_id = ?", stripePriceID).First(&price).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrUnknownStripePrice, stripePriceID)
			}
			return fmt.Errorf("failed to look up price: %w", err)
		}

		var existing models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_id = ?", remote.ID).
			First(&existing).Error
		switch {
		case err == nil:
			if !existing.Status.CanTransitionTo(status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, status)
			}
			updates := map[string]interface{}{
				"status":               status,
				"auto_renew":           autoRenew(remote, status),
				"plan_price_id":        price.ID,
				"current_period_start": unixTime(remote.CurrentPeriodStart),
				"current_period_end":   unixTime(remote.CurrentPeriodEnd),
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update subscription: %w", err)
			}
			result = existing
			result.Status = status
			result.AutoRenew = autoRenew(remote, status)
			result.PlanPriceID = price.ID
			result.CurrentPeriodStart = unixTime(remote.CurrentPeriodStart)
			result.CurrentPeriodEnd = unixTime(remote.CurrentPeriodEnd)
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up subscription: %w", err)
		}

		userID, err := s.subscriber(tx, remote)
		if err != nil {
			return err
		}

		externalID := remote.ID
		result = models.Subscription{
			ID:                 uuid.New(),
			UserID:             userID,
			PlanPriceID:        price.ID,
			Status:             status,
			AutoRenew:          autoRenew(remote, status),
			ExternalID:         &externalID,
			CurrentPeriodStart: unixTime(remote.CurrentPeriodStart),
			CurrentPeriodEnd:   unixTime(remote.CurrentPeriodEnd),
		}
		if err := tx.Create(&result).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SetStatusByExternalID moves a mirrored subscription to status, used for
// invoice events that only carry the subscription id.
func (s *SubscriptionService) SetStatusByExternalID(ctx context.Context, externalID string, status models.SubscriptionStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_id = ?", externalID).
			First(&sub).Error
		if err != nil {
			return notFound(err, "subscription "+externalID)
		}
		if sub.Status == status {
			return nil
		}
		if !sub.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, status)
		}
		if err := tx.Model(&sub).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update subscription status: %w", err)
		}
		return nil
	})
}

// subscriber finds the local user of a Stripe subscription, preferring the
// user_id metadata and falling back to the customer id.
func (s *SubscriptionService) subscriber(tx *gorm.DB, remote *stripe.Subscription) (uuid.UUID, error) {
	if raw := remote.Metadata[StripeUserIDKey]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: invalid user_id metadata %q", ErrSubscriberNotFound, raw)
		}
		var user models.User
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, fmt.Errorf("%w: user %s", ErrSubscriberNotFound, id)
			}
			return uuid.Nil, fmt.Errorf("failed to look up user: %w", err)
		}
		if remote.Customer != nil && remote.Customer.ID != "" && user.StripeCustomerID == nil {
			if err := tx.Model(&user).Update("stripe_customer_id", remote.Customer.ID).Error; err != nil {
				return uuid.Nil, fmt.Errorf("failed to link stripe customer: %w", err)
			}
		}
		return user.ID, nil
	}

	if remote.Customer == nil || remote.Customer.ID == "" {
		return uuid.Nil, fmt.Errorf("%w: no metadata and no customer", ErrSubscriberNotFound)
	}
	var user models.User
	if err := tx.Where("stripe_customer_id = ?", remote.Customer.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: customer %s", ErrSubscriberNotFound, remote.Customer.ID)
		}
		return uuid.Nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user.ID, nil
}

// autoRenew is false once the subscription is scheduled to end or has ended.
func autoRenew(remote *stripe.Subscription, status models.SubscriptionStatus) bool {
	return status != models.SubscriptionCanceled && !remote.CancelAtPeriodEnd
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
