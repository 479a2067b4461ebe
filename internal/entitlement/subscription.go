package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
)

const (
	SourceSubscription = "subscription"
	SourceFreeDefault  = "free_default"
)

// SubscriptionReader returns the most recently created active subscription of
// a user (ties broken by id), or an error wrapping ErrNotFound when none.
type SubscriptionReader interface {
	FindLatestActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// ResolvedSubscription is either a PaidSubscription backed by a stored row or
// a FreeDefault that only names the free plan's monthly price. The set of
// implementations is closed.
type ResolvedSubscription interface {
	Price() models.PlanPrice
	Source() string
	resolved()
}

// PaidSubscription is an active subscription row and the price it references.
type PaidSubscription struct {
	Record    models.Subscription
	PlanPrice models.PlanPrice
}

func (p PaidSubscription) Price() models.PlanPrice { return p.PlanPrice }
func (p PaidSubscription) Source() string { return SourceSubscription }
func (PaidSubscription) resolved() {}

// FreeDefault stands in for a user without an active subscription. It carries
// no subscription row, so there is nothing to persist or mutate.
type FreeDefault struct {
	PlanPrice models.PlanPrice
}

func (f FreeDefault) Price() models.PlanPrice { return f.PlanPrice }
func (f FreeDefault) Source() string { return SourceFreeDefault }
func (FreeDefault) resolved() {}

type SubscriptionResolver struct {
	reader  SubscriptionReader
	catalog *Catalog
}

func NewSubscriptionResolver(reader SubscriptionReader, catalog *Catalog) *SubscriptionResolver {
	return &SubscriptionResolver{reader: reader, catalog: catalog}
}

// ResolveActiveSubscription trusts the local mirror and never calls the
// payment processor. Users without an active row, including users with no
// profile at all, resolve to FreeDefault.
func (r *SubscriptionResolver) ResolveActiveSubscription(ctx context.Context, userID uuid.UUID) (ResolvedSubscription, error) {
	sub, err := r.reader.FindLatestActiveSubscription(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		_, price, err := r.catalog.FreeMonthlyPrice(ctx)
		if err != nil {
			return nil, err
		}
		return FreeDefault{PlanPrice: price}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	price, err := r.catalog.GetPrice(ctx, sub.PlanPriceID)
	if err != nil {
		return nil, err
	}
	return PaidSubscription{Record: *sub, PlanPrice: *price}, nil
}
