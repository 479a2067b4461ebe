package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
	granted  []string
}

func (r *recordingRecorder) ObserveResolution(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) OverrideGranted(feature string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.granted = append(r.granted, feature)
}

type fixture struct {
	store     *memStore
	engine    *Engine
	recorder  *recordingRecorder
	freePlan  models.Plan
	proPlan   models.Plan
	teamPlan  models.Plan
	freePrice models.PlanPrice
	proPrice  models.PlanPrice
	teamPrice models.PlanPrice
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := newMemStore(clock)

	f := &fixture{store: store, recorder: &recordingRecorder{}}
	f.freePlan = store.addPlan(models.Plan{
		Slug:        "free",
		Name:        "Free",
		MaxProjects: intPtr(3),
		MaxQueries:  intPtr(20),
		ModelTier:   "standard",
		Analyzers:   datatypes.NewJSONType([]string{"heuristics", "accessibility"}),
	})
	f.freePrice = store.addPrice(f.freePlan.ID, models.IntervalMonth, 0)

	f.proPlan = store.addPlan(models.Plan{
		Slug:             "pro",
		Name:             "Pro",
		MaxProjects:      intPtr(25),
		MaxQueries:       intPtr(1000),
		ModelTier:        "advanced",
		FigmaIntegration: true,
		ExportPDF:        true,
		Analyzers:        datatypes.NewJSONType([]string{"heuristics", "accessibility", "copy"}),
	})
	f.proPrice = store.addPrice(f.proPlan.ID, models.IntervalMonth, 1900)
	store.addPrice(f.proPlan.ID, models.IntervalYear, 19000)

	f.teamPlan = store.addPlan(models.Plan{
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
		Analyzers:         datatypes.NewJSONType([]string{"heuristics", "accessibility", "copy", "conversion"}),
	})
	f.teamPrice = store.addPrice(f.teamPlan.ID, models.IntervalMonth, 4900)

	f.engine = NewEngine(store, Options{
		FreePlanSlug: "free",
		Timeout:      time.Second,
		Now:          clock,
		Recorder:     f.recorder,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func TestNoSubscriptionResolvesFreePlan(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, "free", ent.Plan.Slug)
	assert.Equal(t, SourceFreeDefault, ent.Subscription.Source)
	assert.Nil(t, ent.Subscription.ID)
	assert.Equal(t, f.freePrice.ID, ent.Subscription.PlanPriceID)
	assert.Equal(t, AtMost(3), ent.MaxProjects)
	assert.Equal(t, AtMost(20), ent.MaxQueries)
	assert.Equal(t, "standard", ent.ModelTier)
	assert.Equal(t, []string{"heuristics", "accessibility"}, ent.Analyzers)
	for _, c := range Capabilities() {
		assert.False(t, ent.Capabilities[c], "capability %s", c)
		assert.Equal(t, LayerPlan, ent.Sources[c])
	}
	assert.Equal(t, []string{"ok"}, f.recorder.outcomes)
}

func TestUnknownUserResolvesFreePlan(t *testing.T) {
	f := newFixture(t)

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "free", ent.Plan.Slug)
	assert.True(t, ent.CanCreateProject())
}

func TestOverrideLiftsProjectCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.store.addUser()
	f.store.projects[userID] = 3

	ent, err := f.engine.GetEffectiveEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ent.CanCreateProject())
	remaining, unlimited := ent.RemainingProjects()
	assert.Equal(t, int64(0), remaining)
	assert.False(t, unlimited)

	_, err = f.engine.GrantOverride(ctx, GrantRequest{
		UserID:  userID,
		Feature: string(FeatureMaxProjects),
		Value:   json.RawMessage(`10`),
		Reason:  "design partner",
	})
	require.NoError(t, err)

	ent, err = f.engine.GetEffectiveEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ent.CanCreateProject())
	assert.Equal(t, AtMost(10), ent.MaxProjects)
	assert.Equal(t, LayerOverride, ent.Sources[FeatureMaxProjects])
	remaining, _ = ent.RemainingProjects()
	assert.Equal(t, int64(7), remaining)
	assert.Equal(t, []string{string(FeatureMaxProjects)}, f.recorder.granted)
}

func TestExpiredOverrideIsIgnored(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.proPrice.ID, models.SubscriptionActive, testNow.Add(-24*time.Hour))
	f.store.addOverride(userID, FeatureMasterMode, `true`, testNow.Add(-2*time.Hour), timePtr(testNow.Add(-time.Hour)))

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "pro", ent.Plan.Slug)
	assert.False(t, ent.CanUseMasterMode())
	assert.Equal(t, LayerPlan, ent.Sources[FeatureMasterMode])
}

func TestOverrideInactiveAtExactExpiry(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addOverride(userID, FeatureMasterMode, `true`, testNow.Add(-time.Hour), timePtr(testNow))
	f.store.addOverride(userID, FeatureExportPDF, `true`, testNow.Add(-time.Hour), timePtr(testNow.Add(time.Second)))

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, ent.CanUseMasterMode())
	assert.True(t, ent.CanExportToPDF())
}

func TestOverrideTakesPrecedenceOverPlan(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.teamPrice.ID, models.SubscriptionActive, testNow.Add(-time.Hour))
	f.store.addOverride(userID, FeatureCustomBranding, `false`, testNow.Add(-time.Minute), nil)
	f.store.addOverride(userID, FeatureModelTier, `"experimental"`, testNow.Add(-time.Minute), nil)

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, ent.CanUseCustomBranding())
	assert.True(t, ent.CanUseMasterMode())
	assert.Equal(t, "experimental", ent.ModelTier)
	assert.Equal(t, LayerOverride, ent.Sources[FeatureModelTier])
}

func TestListOverrideReplacesPlanList(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addOverride(userID, FeatureAnalyzers, `["conversion","conversion"]`, testNow.Add(-time.Minute), nil)

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"conversion"}, ent.AvailableAnalyzers())
	assert.True(t, ent.CanUseAnalyzer("conversion"))
	assert.False(t, ent.CanUseAnalyzer("heuristics"))
}

func TestUnlimitedCeilingIgnoresUsage(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.teamPrice.ID, models.SubscriptionActive, testNow.Add(-time.Hour))
	f.store.projects[userID] = 1_000_000
	f.store.queries[userID] = 5_000_000

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ent.MaxProjects.IsUnlimited())
	assert.True(t, ent.CanCreateProject())
	assert.True(t, ent.CanCreateFeedbackQuery())
	_, unlimited := ent.RemainingQueries()
	assert.True(t, unlimited)
}

func TestUnlimitedOverrideOnFinitePlan(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.queries[userID] = 20
	f.store.addOverride(userID, FeatureMaxQueries, `"unlimited"`, testNow.Add(-time.Minute), nil)

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ent.CanCreateFeedbackQuery())
}

func TestCeilingReachedDeniesCreation(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.proPrice.ID, models.SubscriptionActive, testNow.Add(-time.Hour))

	for _, used := range []int64{0, 24, 25, 26} {
		f.store.projects[userID] = used
		ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, used < 25, ent.CanCreateProject(), "used=%d", used)
	}
}

func TestResolverSelectsLatestActiveSubscription(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.teamPrice.ID, models.SubscriptionCanceled, testNow.Add(-48*time.Hour))
	active := f.store.addSubscription(userID, f.proPrice.ID, models.SubscriptionActive, testNow.Add(-time.Hour))

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "pro", ent.Plan.Slug)
	assert.Equal(t, SourceSubscription, ent.Subscription.Source)
	require.NotNil(t, ent.Subscription.ID)
	assert.Equal(t, active.ID, *ent.Subscription.ID)
	assert.Equal(t, models.SubscriptionActive, ent.Subscription.Status)
}

func TestResolverIgnoresNewerInactiveSubscriptions(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.proPrice.ID, models.SubscriptionActive, testNow.Add(-48*time.Hour))
	f.store.addSubscription(userID, f.teamPrice.ID, models.SubscriptionPastDue, testNow.Add(-time.Hour))

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "pro", ent.Plan.Slug)
}

func TestUsageTimeoutFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.engine.timeout = 20 * time.Millisecond
	f.store.blockUsage = true
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.teamPrice.ID, models.SubscriptionActive, testNow.Add(-time.Hour))

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.Error(t, err)
	assert.Nil(t, ent)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	preds := []func(*EffectiveEntitlement) bool{
		(*EffectiveEntitlement).CanCreateProject,
		(*EffectiveEntitlement).CanCreateFeedbackQuery,
		(*EffectiveEntitlement).CanUseFigmaIntegration,
		(*EffectiveEntitlement).CanUseMasterMode,
		(*EffectiveEntitlement).HasPrioritySupport,
		(*EffectiveEntitlement).CanUseAdvancedAnalytics,
		(*EffectiveEntitlement).CanUseCustomBranding,
		(*EffectiveEntitlement).CanExportToPDF,
		(*EffectiveEntitlement).CanUsePremiumAnalyzers,
	}
	for _, pred := range preds {
		assert.False(t, Allowed(ent, err, pred))
		assert.False(t, pred(ent))
	}
	assert.False(t, ent.CanUseAnalyzer("heuristics"))
	assert.Empty(t, ent.AvailableAnalyzers())
	assert.Equal(t, []string{"store_unavailable"}, f.recorder.outcomes)
}

func TestStoreFailureIsStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.snapshotErr = errors.New("connection refused")

	_, err := f.engine.GetEffectiveEntitlement(context.Background(), f.store.addUser())
	var su *StoreUnavailable
	require.ErrorAs(t, err, &su)
	assert.Equal(t, "resolve entitlement", su.Op)
}

func TestMissingFreePlanIsConfigurationFault(t *testing.T) {
	f := newFixture(t)
	delete(f.store.plans, f.freePlan.ID)

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), f.store.addUser())
	assert.Nil(t, ent)
	assert.True(t, IsConfigurationFault(err))
	assert.Equal(t, []string{"configuration_fault"}, f.recorder.outcomes)
}

func TestPricedFreePlanIsConfigurationFault(t *testing.T) {
	f := newFixture(t)
	price := f.store.prices[f.freePrice.ID]
	price.Amount = 500
	f.store.prices[price.ID] = price

	_, err := f.engine.GetEffectiveEntitlement(context.Background(), f.store.addUser())
	assert.True(t, IsConfigurationFault(err))
}

func TestPaidUserUnaffectedByFreePlanFault(t *testing.T) {
	f := newFixture(t)
	delete(f.store.plans, f.freePlan.ID)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.proPrice.ID, models.SubscriptionActive, testNow.Add(-time.Hour))

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "pro", ent.Plan.Slug)
}

func TestInertOverridesKeepPlanValues(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addOverride(userID, Feature("darkLaunch"), `true`, testNow.Add(-time.Minute), nil)
	f.store.addOverride(userID, FeatureMaxProjects, `"lots"`, testNow.Add(-time.Minute), nil)
	f.store.addOverride(userID, FeatureMasterMode, `1`, testNow.Add(-time.Minute), nil)

	ent, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, AtMost(3), ent.MaxProjects)
	assert.False(t, ent.CanUseMasterMode())
	assert.Equal(t, LayerPlan, ent.Sources[FeatureMaxProjects])
	assert.NotContains(t, ent.Sources, Feature("darkLaunch"))
}

func TestResolutionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser()
	f.store.addSubscription(userID, f.proPrice.ID, models.SubscriptionActive, testNow.Add(-time.Hour))
	f.store.addOverride(userID, FeatureMasterMode, `true`, testNow.Add(-time.Minute), nil)
	f.store.projects[userID] = 4
	f.store.queries[userID] = 17

	first, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	second, err := f.engine.GetEffectiveEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestGrantOverrideValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.store.addUser()

	_, err := f.engine.GrantOverride(ctx, GrantRequest{UserID: uuid.New(), Feature: "masterMode", Value: json.RawMessage(`true`)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.engine.GrantOverride(ctx, GrantRequest{UserID: userID, Feature: "  ", Value: json.RawMessage(`true`)})
	assert.ErrorIs(t, err, ErrMalformedOverride)

	_, err = f.engine.GrantOverride(ctx, GrantRequest{UserID: userID, Feature: "masterMode", Value: json.RawMessage(`{nope`)})
	assert.ErrorIs(t, err, ErrMalformedOverride)

	o, err := f.engine.GrantOverride(ctx, GrantRequest{UserID: userID, Feature: "darkLaunch", Value: json.RawMessage(`true`)})
	require.NoError(t, err)
	assert.Equal(t, "darkLaunch", o.Feature)
	assert.Nil(t, o.Reason)
	assert.Len(t, f.store.overrides, 1)
}

func TestGrantedOverrideWithExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.store.addUser()

	expires := testNow.Add(time.Hour)
	_, err := f.engine.GrantOverride(ctx, GrantRequest{
		UserID:    userID,
		Feature:   string(FeatureFigmaIntegration),
		Value:     json.RawMessage(`true`),
		ExpiresAt: &expires,
	})
	require.NoError(t, err)

	ent, err := f.engine.GetEffectiveEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ent.CanUseFigmaIntegration())

	f.engine.now = func() time.Time { return expires }
	ent, err = f.engine.GetEffectiveEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ent.CanUseFigmaIntegration())
}

func TestNilEntitlementDenies(t *testing.T) {
	var ent *EffectiveEntitlement
	assert.False(t, ent.CanCreateProject())
	assert.False(t, ent.CanCreateFeedbackQuery())
	assert.False(t, ent.HasPrioritySupport())
	assert.False(t, ent.CanUseAnalyzer("heuristics"))
	n, unlimited := ent.RemainingQueries()
	assert.Zero(t, n)
	assert.False(t, unlimited)
	assert.False(t, Allowed(&EffectiveEntitlement{MaxProjects: Unlimited()}, errors.New("boom"), (*EffectiveEntitlement).CanCreateProject))
	assert.False(t, Allowed(&EffectiveEntitlement{}, nil, nil))
}

func TestDeniedCapabilities(t *testing.T) {
	denied := DeniedCapabilities()
	assert.Len(t, denied, len(Capabilities()))
	for _, v := range denied {
		assert.False(t, v)
	}
}
