package entitlement

import (
	"slices"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
)

type PlanRef struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// SubscriptionRef describes where the plan came from. ID and Status are only
// set for a stored subscription.
type SubscriptionRef struct {
	Source           string                    `json:"source"`
	ID               *uuid.UUID                `json:"id,omitempty"`
	Status           models.SubscriptionStatus `json:"status,omitempty"`
	PlanPriceID      uuid.UUID                 `json:"plan_price_id"`
	Interval         models.BillingInterval    `json:"interval"`
	AutoRenew        bool                      `json:"auto_renew"`
	CurrentPeriodEnd *time.Time                `json:"current_period_end,omitempty"`
}

// EffectiveEntitlement is the resolved view of what a user may do. It is
// derived per call and never stored.
type EffectiveEntitlement struct {
	UserID       uuid.UUID          `json:"user_id"`
	Plan         PlanRef            `json:"plan"`
	Subscription SubscriptionRef    `json:"subscription"`
	MaxProjects  Limit              `json:"max_projects"`
	MaxQueries   Limit              `json:"max_queries"`
	ModelTier    string             `json:"model_tier"`
	Capabilities map[Feature]bool   `json:"capabilities"`
	Analyzers    []string           `json:"available_analyzers"`
	Usage        UsageSnapshot      `json:"usage"`
	Sources      map[Feature]string `json:"sources"`
}

func subscriptionRef(r ResolvedSubscription) SubscriptionRef {
	price := r.Price()
	ref := SubscriptionRef{
		Source:      r.Source(),
		PlanPriceID: price.ID,
		Interval:    price.Interval,
	}
	if paid, ok := r.(PaidSubscription); ok {
		id := paid.Record.ID
		ref.ID = &id
		ref.Status = paid.Record.Status
		ref.AutoRenew = paid.Record.AutoRenew
		ref.CurrentPeriodEnd = paid.Record.CurrentPeriodEnd
	}
	return ref
}

// assemble reads every feature of the vocabulary through layers. A feature
// that no layer supplies resolves to its denying zero value.
func assemble(userID uuid.UUID, plan *models.Plan, sub ResolvedSubscription, layers Layers, usage UsageSnapshot) *EffectiveEntitlement {
	ent := &EffectiveEntitlement{
		UserID:       userID,
		Plan:         PlanRef{ID: plan.ID, Slug: plan.Slug, Name: plan.Name},
		Subscription: subscriptionRef(sub),
		MaxProjects:  AtMost(0),
		MaxQueries:   AtMost(0),
		Capabilities: make(map[Feature]bool, len(Capabilities())),
		Analyzers:    []string{},
		Usage:        usage,
		Sources:      make(map[Feature]string, len(vocabulary)),
	}
	for _, f := range Capabilities() {
		ent.Capabilities[f] = false
	}

	for _, f := range Features() {
		v, source, ok := layers.Lookup(f)
		if !ok {
			continue
		}
		ent.Sources[f] = source

		switch f {
		case FeatureMaxProjects:
			ent.MaxProjects, _ = v.Limit()
		case FeatureMaxQueries:
			ent.MaxQueries, _ = v.Limit()
		case FeatureModelTier:
			ent.ModelTier, _ = v.Text()
		case FeatureAnalyzers:
			if list, ok := v.List(); ok {
				ent.Analyzers = list
			}
		default:
			ent.Capabilities[f], _ = v.Bool()
		}
	}
	return ent
}

func (e *EffectiveEntitlement) capability(f Feature) bool {
	if e == nil {
		return false
	}
	return e.Capabilities[f]
}

func (e *EffectiveEntitlement) CanCreateProject() bool {
	return e != nil && e.MaxProjects.Allows(e.Usage.Projects)
}

func (e *EffectiveEntitlement) CanCreateFeedbackQuery() bool {
	return e != nil && e.MaxQueries.Allows(e.Usage.Queries)
}

func (e *EffectiveEntitlement) CanUseFigmaIntegration() bool {
	return e.capability(FeatureFigmaIntegration)
}

func (e *EffectiveEntitlement) CanUseMasterMode() bool {
	return e.capability(FeatureMasterMode)
}

func (e *EffectiveEntitlement) HasPrioritySupport() bool {
	return e.capability(FeaturePrioritySupport)
}

func (e *EffectiveEntitlement) CanUseAdvancedAnalytics() bool {
	return e.capability(FeatureAdvancedAnalytics)
}

func (e *EffectiveEntitlement) CanUseCustomBranding() bool {
	return e.capability(FeatureCustomBranding)
}

func (e *EffectiveEntitlement) CanExportToPDF() bool {
	return e.capability(FeatureExportPDF)
}

func (e *EffectiveEntitlement) CanUsePremiumAnalyzers() bool {
	return e.capability(FeaturePremiumAnalyzers)
}

func (e *EffectiveEntitlement) CanUseAnalyzer(name string) bool {
	return e != nil && slices.Contains(e.Analyzers, name)
}

// AvailableAnalyzers returns a copy of the analyzer allow-list.
func (e *EffectiveEntitlement) AvailableAnalyzers() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.Analyzers)
}

// RemainingProjects returns how many more projects fit. unlimited is true
// when there is no ceiling; a nil entitlement has nothing remaining.
func (e *EffectiveEntitlement) RemainingProjects() (n int64, unlimited bool) {
	if e == nil {
		return 0, false
	}
	n, finite := e.MaxProjects.Remaining(e.Usage.Projects)
	return n, !finite
}

func (e *EffectiveEntitlement) RemainingQueries() (n int64, unlimited bool) {
	if e == nil {
		return 0, false
	}
	n, finite := e.MaxQueries.Remaining(e.Usage.Queries)
	return n, !finite
}

// Allowed evaluates pred only when resolution succeeded.
func Allowed(ent *EffectiveEntitlement, err error, pred func(*EffectiveEntitlement) bool) bool {
	if err != nil || ent == nil || pred == nil {
		return false
	}
	return pred(ent)
}

// DeniedCapabilities is what callers report when resolution failed.
func DeniedCapabilities() map[Feature]bool {
	out := make(map[Feature]bool, len(vocabulary))
	for _, f := range Capabilities() {
		out[f] = false
	}
	return out
}
