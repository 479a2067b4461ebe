package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
)

const DefaultTimeout = 2 * time.Second

// Reader is everything resolution reads. It is only valid inside the
// Snapshot callback that produced it.
type Reader interface {
	CatalogReader
	OverrideReader
	UsageReader
	SubscriptionReader
}

// Store gives the engine a consistent read view and the override write path.
type Store interface {
	// Snapshot runs fn against a single read-only view. Errors returned by
	// fn are returned unchanged.
	Snapshot(ctx context.Context, fn func(Reader) error) error
	OverrideWriter
}

// Recorder receives resolution outcomes for metrics.
type Recorder interface {
	ObserveResolution(outcome string, d time.Duration)
	OverrideGranted(feature string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveResolution(string, time.Duration) {}
func (noopRecorder) OverrideGranted(string) {}

type Options struct {
	FreePlanSlug string

	// Timeout bounds one resolution, store reads included.
	Timeout  time.Duration
	Now      func() time.Time
	Recorder Recorder
	Logger   *slog.Logger
}

type Engine struct {
	store    Store
	freeSlug string
	timeout  time.Duration
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
}

func NewEngine(store Store, opts Options) *Engine {
	e := &Engine{
		store:    store,
		freeSlug: opts.FreePlanSlug,
		timeout:  opts.Timeout,
		now:      opts.Now,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if e.freeSlug == "" {
		e.freeSlug = "free"
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.recorder == nil {
		e.recorder = noopRecorder{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// GetEffectiveEntitlement resolves the user's subscription, plan, active
// overrides and usage in one snapshot and merges them. On error the result is
// nil; there is no partial entitlement.
func (e *Engine) GetEffectiveEntitlement(ctx context.Context, userID uuid.UUID) (*EffectiveEntitlement, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	now := e.now()
	var ent *EffectiveEntitlement
	err := e.store.Snapshot(ctx, func(r Reader) error {
		var err error
		ent, err = e.resolve(ctx, r, userID, now)
		return err
	})
	err = classify("resolve entitlement", err)
	e.recorder.ObserveResolution(outcome(err), time.Since(start))

	if err != nil {
		level := slog.LevelWarn
		if IsConfigurationFault(err) || IsStoreUnavailable(err) {
			level = slog.LevelError
		}
		e.logger.Log(ctx, level, "Entitlement resolution failed",
			"user_id", userID.String(),
			"action", "resolve_entitlement",
			"error", err.Error(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	return ent, nil
}

func (e *Engine) resolve(ctx context.Context, r Reader, userID uuid.UUID, now time.Time) (*EffectiveEntitlement, error) {
	catalog := NewCatalog(r, e.freeSlug)

	sub, err := NewSubscriptionResolver(r, catalog).ResolveActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan, err := catalog.GetPlan(ctx, sub.Price().PlanID)
	if err != nil {
		return nil, err
	}

	active, err := NewOverrideStore(r, nil).GetActiveOverrides(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	overrideLayer, inert := OverrideLayer(active)
	for _, i := range inert {
		e.logger.WarnContext(ctx, "Ignoring inert feature override",
			"user_id", userID.String(),
			"feature", i.Override.Feature,
			"override_id", i.Override.ID.String(),
			"reason", i.Reason,
		)
	}

	usage, err := NewUsageCounter(r).Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	return assemble(userID, plan, sub, Layers{overrideLayer, PlanLayer(plan)}, usage), nil
}

// GrantOverride stores an administrative override. It takes effect on the
// next resolution.
func (e *Engine) GrantOverride(ctx context.Context, req GrantRequest) (*models.FeatureOverride, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	o, err := NewOverrideStore(nil, e.store).GrantOverride(ctx, req)
	if err != nil {
		if errors.Is(err, ErrMalformedOverride) {
			return nil, err
		}
		return nil, classify("grant override", err)
	}

	e.recorder.OverrideGranted(o.Feature)
	attrs := []any{
		"user_id", o.UserID.String(),
		"action", "grant_override",
		"feature", o.Feature,
		"override_id", o.ID.String(),
	}
	if !Feature(o.Feature).Known() {
		attrs = append(attrs, "inert", true)
	}
	e.logger.InfoContext(ctx, "Feature override granted", attrs...)
	return o, nil
}
