package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
)

// CatalogReader is the read side of the plan catalog. Missing rows are
// reported as errors wrapping ErrNotFound.
type CatalogReader interface {
	FindPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FindPlanBySlug(ctx context.Context, slug string) (*models.Plan, error)
	FindPrice(ctx context.Context, id uuid.UUID) (*models.PlanPrice, error)
	FindActivePrices(ctx context.Context, planID uuid.UUID) ([]models.PlanPrice, error)
}

type Catalog struct {
	reader   CatalogReader
	freeSlug string
}

func NewCatalog(reader CatalogReader, freePlanSlug string) *Catalog {
	return &Catalog{reader: reader, freeSlug: freePlanSlug}
}

func (c *Catalog) GetPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	plan, err := c.reader.FindPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", planID, err)
	}
	return plan, nil
}

func (c *Catalog) GetPrice(ctx context.Context, priceID uuid.UUID) (*models.PlanPrice, error) {
	price, err := c.reader.FindPrice(ctx, priceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan price %s: %w", priceID, err)
	}
	return price, nil
}

// GetFreePlan returns the well-known free plan. Its absence is a
// ConfigurationFault, not a NotFound.
func (c *Catalog) GetFreePlan(ctx context.Context) (*models.Plan, error) {
	plan, err := c.reader.FindPlanBySlug(ctx, c.freeSlug)
	if errors.Is(err, ErrNotFound) {
		return nil, &ConfigurationFault{Reason: fmt.Sprintf("free plan %q is missing from the catalog", c.freeSlug)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load free plan: %w", err)
	}
	return plan, nil
}

// ListActivePrices returns the offerable prices of a plan, monthly first.
func (c *Catalog) ListActivePrices(ctx context.Context, planID uuid.UUID) ([]models.PlanPrice, error) {
	prices, err := c.reader.FindActivePrices(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices for plan %s: %w", planID, err)
	}

	active := make([]models.PlanPrice, 0, len(prices))
	for _, p := range prices {
		if p.IsActive {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if ri, rj := active[i].Interval.Rank(), active[j].Interval.Rank(); ri != rj {
			return ri < rj
		}
		return active[i].ID.String() < active[j].ID.String()
	})
	return active, nil
}

// FreeMonthlyPrice returns the free plan and its active monthly price, which
// must exist and cost nothing.
func (c *Catalog) FreeMonthlyPrice(ctx context.Context) (*models.Plan, models.PlanPrice, error) {
	plan, err := c.GetFreePlan(ctx)
	if err != nil {
		return nil, models.PlanPrice{}, err
	}

	prices, err := c.ListActivePrices(ctx, plan.ID)
	if err != nil {
		return nil, models.PlanPrice{}, err
	}
	for _, p := range prices {
		if p.Interval != models.IntervalMonth {
			continue
		}
		if p.Amount != 0 {
			return nil, models.PlanPrice{}, &ConfigurationFault{
				Reason: fmt.Sprintf("free plan %q monthly price costs %d %s", plan.Slug, p.Amount, p.Currency),
			}
		}
		return plan, p, nil
	}
	return nil, models.PlanPrice{}, &ConfigurationFault{
		Reason: fmt.Sprintf("free plan %q has no active monthly price", plan.Slug),
	}
}
