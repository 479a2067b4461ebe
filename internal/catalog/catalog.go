// Package catalog seeds the plan catalog from a JSON file so the free plan
// and its zero-cost monthly price exist before the server takes traffic.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNoFreePlan     = errors.New("catalog has no free plan")
	ErrFreePlanPriced = errors.New("free plan monthly price must be 0")
	ErrDuplicatePlan  = errors.New("duplicate plan slug")
	ErrInvalidPrice   = errors.New("invalid price")
	ErrInvalidPlan    = errors.New("invalid plan")
)

type PriceConfig struct {
	Interval      models.BillingInterval `json:"interval"`
	Amount        int64                  `json:"amount"`
	Currency      string                 `json:"currency"`
	StripePriceID string                 `json:"stripe_price_id,omitempty"`
}

// PlanConfig mirrors models.Plan. A null ceiling means unlimited.
type PlanConfig struct {
	Slug              string        `json:"slug"`
	Name              string        `json:"name"`
	MaxProjects       *int          `json:"max_projects"`
	MaxQueries        *int          `json:"max_queries"`
	ModelTier         string        `json:"model_tier"`
	FigmaIntegration  bool          `json:"figma_integration"`
	MasterMode        bool          `json:"master_mode"`
	PrioritySupport   bool          `json:"priority_support"`
	AdvancedAnalytics bool          `json:"advanced_analytics"`
	CustomBranding    bool          `json:"custom_branding"`
	ExportPDF         bool          `json:"export_pdf"`
	PremiumAnalyzers  bool          `json:"premium_analyzers"`
	Analyzers         []string      `json:"analyzers"`
	Prices            []PriceConfig `json:"prices"`
}

type File struct {
	Plans []PlanConfig `json:"plans"`
}

func LoadFromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault reads path, falling back to DefaultFile when the file does
// not exist. Any other read or parse error is returned.
func LoadOrDefault(path string) (*File, error) {
	f, err := LoadFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("catalog file not found, using built-in catalog", "path", path)
		return DefaultFile(), nil
	}
	return f, err
}

func Parse(data []byte) (*File, error) {
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return &file, nil
}

func ceiling(n int) *int { return &n }

// DefaultFile is the built-in catalog used when no file is configured.
func DefaultFile() *File {
	return &File{Plans: []PlanConfig{
		{
			Slug:        "free",
			Name:        "Free",
			MaxProjects: ceiling(3),
			MaxQueries:  ceiling(25),
			ModelTier:   "standard",
			Analyzers:   []string{"heuristics", "accessibility"},
			Prices: []PriceConfig{
				{Interval: models.IntervalMonth, Amount: 0, Currency: "usd"},
			},
		},
		{
			Slug:             "pro",
			Name:             "Pro",
			MaxProjects:      ceiling(25),
			MaxQueries:       ceiling(1000),
			ModelTier:        "advanced",
			FigmaIntegration: true,
			ExportPDF:        true,
			Analyzers:        []string{"heuristics", "accessibility", "copywriting", "visual-hierarchy"},
			Prices: []PriceConfig{
				{Interval: models.IntervalMonth, Amount: 1900, Currency: "usd"},
				{Interval: models.IntervalYear, Amount: 19000, Currency: "usd"},
			},
		},
		{
			Slug:              "team",
			Name:              "Team",
			ModelTier:         "premium",
			FigmaIntegration:  true,
			MasterMode:        true,
			PrioritySupport:   true,
			AdvancedAnalytics: true,
			CustomBranding:    true,
			ExportPDF:         true,
			PremiumAnalyzers:  true,
			Analyzers:         []string{"heuristics", "accessibility", "copywriting", "visual-hierarchy", "conversion", "brand-consistency"},
			Prices: []PriceConfig{
				{Interval: models.IntervalMonth, Amount: 4900, Currency: "usd"},
				{Interval: models.IntervalYear, Amount: 49000, Currency: "usd"},
			},
		},
	}}
}

// Validate checks the invariants resolution depends on: unique slugs, sane
// prices, and a free plan whose monthly price costs nothing.
func (f *File) Validate(freeSlug string) error {
	seen := make(map[string]bool, len(f.Plans))
	var free *PlanConfig
	for i := range f.Plans {
		p := &f.Plans[i]
		if strings.TrimSpace(p.Slug) == "" || p.ModelTier == "" {
			return fmt.Errorf("%w: plan #%d needs a slug and a model tier", ErrInvalidPlan, i)
		}
		if seen[p.Slug] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlan, p.Slug)
		}
		seen[p.Slug] = true
		if (p.MaxProjects != nil && *p.MaxProjects <= 0) || (p.MaxQueries != nil && *p.MaxQueries <= 0) {
			return fmt.Errorf("%w: %s has a non-positive ceiling", ErrInvalidPlan, p.Slug)
		}

		intervals := make(map[models.BillingInterval]bool, len(p.Prices))
		for _, price := range p.Prices {
			if price.Interval != models.IntervalMonth && price.Interval != models.IntervalYear {
				return fmt.Errorf("%w: %s has interval %q", ErrInvalidPrice, p.Slug, price.Interval)
			}
			if intervals[price.Interval] {
				return fmt.Errorf("%w: %s has two %s prices", ErrInvalidPrice, p.Slug, price.Interval)
			}
			intervals[price.Interval] = true
			if price.Amount < 0 || len(price.Currency) != 3 {
				return fmt.Errorf("%w: %s %s price", ErrInvalidPrice, p.Slug, price.Interval)
			}
		}
		if p.Slug == freeSlug {
			free = p
		}
	}

	if free == nil {
		return fmt.Errorf("%w: %q", ErrNoFreePlan, freeSlug)
	}
	for _, price := range free.Prices {
		if price.Interval == models.IntervalMonth {
			if price.Amount != 0 {
				return ErrFreePlanPriced
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %q has no monthly price", ErrNoFreePlan, freeSlug)
}

func (p PlanConfig) model() models.Plan {
	return models.Plan{
		Slug:              p.Slug,
		Name:              p.Name,
		MaxProjects:       p.MaxProjects,
		MaxQueries:        p.MaxQueries,
		ModelTier:         p.ModelTier,
		FigmaIntegration:  p.FigmaIntegration,
		MasterMode:        p.MasterMode,
		PrioritySupport:   p.PrioritySupport,
		AdvancedAnalytics: p.AdvancedAnalytics,
		CustomBranding:    p.CustomBranding,
		ExportPDF:         p.ExportPDF,
		PremiumAnalyzers:  p.PremiumAnalyzers,
		Analyzers:         datatypes.NewJSONType(p.Analyzers),
	}
}

// Apply upserts plans by slug and converges their active prices. A price
// whose amount, currency or Stripe id changed is retired and replaced so that
// existing subscriptions keep pointing at the price they were sold. A
// retired row gives up its Stripe id when the replacement reuses it.
func Apply(ctx context.Context, db *gorm.DB, f *File, freeSlug string) error {
	if err := f.Validate(freeSlug); err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cfg := range f.Plans {
			plan := cfg.model()

			var existing models.Plan
			err := tx.Where("slug = ?", cfg.Slug).First(&existing).Error
			switch {
			case err == nil:
				plan.ID = existing.ID
				plan.CreatedAt = existing.CreatedAt
				if err := tx.Save(&plan).Error; err != nil {
					return fmt.Errorf("failed to update plan %s: %w", cfg.Slug, err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				plan.ID = uuid.New()
				if err := tx.Create(&plan).Error; err != nil {
					return fmt.Errorf("failed to create plan %s: %w", cfg.Slug, err)
				}
			default:
				return fmt.Errorf("failed to look up plan %s: %w", cfg.Slug, err)
			}

			if err := applyPrices(tx, plan.ID, cfg.Prices); err != nil {
				return fmt.Errorf("failed to apply prices for %s: %w", cfg.Slug, err)
			}
			slog.Info("catalog plan applied", "action", "seed_catalog", "plan", cfg.Slug, "prices", len(cfg.Prices))
		}
		return nil
	})
}

func applyPrices(tx *gorm.DB, planID uuid.UUID, prices []PriceConfig) error {
	var active []models.PlanPrice
	if err := tx.Where("plan_id = ? AND is_active = ?", planID, true).Find(&active).Error; err != nil {
		return err
	}
	current := make(map[models.BillingInterval]models.PlanPrice, len(active))
	for _, p := range active {
		current[p.Interval] = p
	}

	wanted := make(map[models.BillingInterval]bool, len(prices))
	for _, cfg := range prices {
		wanted[cfg.Interval] = true
		var stripeID *string
		if cfg.StripePriceID != "" {
			id := cfg.StripePriceID
			stripeID = &id
		}

		if p, ok := current[cfg.Interval]; ok {
			if p.Amount == cfg.Amount && strings.EqualFold(p.Currency, cfg.Currency) && equalStripeID(p.StripePriceID, stripeID) {
				continue
			}
			if err := retirePrice(tx, p, equalStripeID(p.StripePriceID, stripeID)); err != nil {
				return err
			}
		}

		price := models.PlanPrice{
			ID:            uuid.New(),
			PlanID:        planID,
			Interval:      cfg.Interval,
			Amount:        cfg.Amount,
			Currency:      strings.ToLower(cfg.Currency),
			IsActive:      true,
			StripePriceID: stripeID,
		}
		if err := tx.Create(&price).Error; err != nil {
			return err
		}
	}

	for interval, p := range current {
		if wanted[interval] {
			continue
		}
		if err := retirePrice(tx, p, false); err != nil {
			return err
		}
	}
	return nil
}

// retirePrice deactivates p. releaseStripeID clears its Stripe price id so
// the unique index admits a replacement row carrying the same id.
func retirePrice(tx *gorm.DB, p models.PlanPrice, releaseStripeID bool) error {
	updates := map[string]interface{}{"is_active": false}
	if releaseStripeID && p.StripePriceID != nil {
		updates["stripe_price_id"] = nil
	}
	return tx.Model(&models.PlanPrice{}).Where("id = ?", p.ID).Updates(updates).Error
}

func equalStripeID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
