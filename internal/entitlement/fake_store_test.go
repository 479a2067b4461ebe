package entitlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// memStore is an in-memory Store. Snapshot hands out the store itself; tests
// do not write concurrently with resolution.
type memStore struct {
	mu sync.Mutex

	plans     map[uuid.UUID]models.Plan
	prices    map[uuid.UUID]models.PlanPrice
	users     map[uuid.UUID]bool
	subs      []models.Subscription
	overrides []models.FeatureOverride
	projects  map[uuid.UUID]int64
	queries   map[uuid.UUID]int64

	clock func() time.Time

	// blockUsage makes usage counts wait for the context to end.
	blockUsage bool

	// snapshotErr fails Snapshot before any read.
	snapshotErr error
}

func newMemStore(clock func() time.Time) *memStore {
	return &memStore{
		plans:    map[uuid.UUID]models.Plan{},
		prices:   map[uuid.UUID]models.PlanPrice{},
		users:    map[uuid.UUID]bool{},
		projects: map[uuid.UUID]int64{},
		queries:  map[uuid.UUID]int64{},
		clock:    clock,
	}
}

func (s *memStore) Snapshot(ctx context.Context, fn func(Reader) error) error {
	if s.snapshotErr != nil {
		return s.snapshotErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

func (s *memStore) FindPlan(_ context.Context, id uuid.UUID) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (s *memStore) FindPlanBySlug(_ context.Context, slug string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("plan %q: %w", slug, ErrNotFound)
}

func (s *memStore) FindPrice(_ context.Context, id uuid.UUID) (*models.PlanPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prices[id]
	if !ok {
		return nil, fmt.Errorf("price %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (s *memStore) FindActivePrices(_ context.Context, planID uuid.UUID) ([]models.PlanPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PlanPrice
	for _, p := range s.prices {
		if p.PlanID == planID && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) FindUnexpiredOverrides(_ context.Context, userID uuid.UUID, now time.Time) ([]models.FeatureOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FeatureOverride
	for _, o := range s.overrides {
		if o.UserID == userID && (o.ExpiresAt == nil || o.ExpiresAt.After(now)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) FindLatestActiveSubscription(_ context.Context, userID uuid.UUID) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []models.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.Status == models.SubscriptionActive {
			active = append(active, sub)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("subscription for %s: %w", userID, ErrNotFound)
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID.String() > active[j].ID.String()
	})
	return &active[0], nil
}

func (s *memStore) CountOwnedProjects(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.blockUsage {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[userID], nil
}

func (s *memStore) CountIssuedQueries(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.blockUsage {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[userID], nil
}

func (s *memStore) UserExists(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID], nil
}

func (s *memStore) InsertOverride(_ context.Context, o *models.FeatureOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.clock()
	}
	s.overrides = append(s.overrides, *o)
	return nil
}

func (s *memStore) addPlan(p models.Plan) models.Plan {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.plans[p.ID] = p
	return p
}

func (s *memStore) addPrice(planID uuid.UUID, interval models.BillingInterval, amount int64) models.PlanPrice {
	p := models.PlanPrice{
		ID:       uuid.New(),
		PlanID:   planID,
		Interval: interval,
		Amount:   amount,
		Currency: "usd",
		IsActive: true,
	}
	s.prices[p.ID] = p
	return p
}

func (s *memStore) addUser() uuid.UUID {
	id := uuid.New()
	s.users[id] = true
	return id
}

func (s *memStore) addSubscription(userID, priceID uuid.UUID, status models.SubscriptionStatus, createdAt time.Time) models.Subscription {
	sub := models.Subscription{
		ID:          uuid.New(),
		UserID:      userID,
		PlanPriceID: priceID,
		Status:      status,
		AutoRenew:   status == models.SubscriptionActive,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	s.subs = append(s.subs, sub)
	return sub
}

func (s *memStore) addOverride(userID uuid.UUID, feature Feature, value string, createdAt time.Time, expiresAt *time.Time) models.FeatureOverride {
	o := models.FeatureOverride{
		ID:        uuid.New(),
		UserID:    userID,
		Feature:   string(feature),
		Value:     datatypes.JSON(value),
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	s.overrides = append(s.overrides, o)
	return o
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }
