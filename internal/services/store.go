package services

import (
	"context"
	"database/sql"

	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// snapshotReader serves every entitlement read from one transaction.
type snapshotReader struct {
	*CatalogService
	*OverrideService
	*UsageService
	*SubscriptionService
}

func newSnapshotReader(tx *gorm.DB) *snapshotReader {
	return &snapshotReader{
		CatalogService:      NewCatalogService(tx),
		OverrideService:     NewOverrideService(tx),
		UsageService:        NewUsageService(tx),
		SubscriptionService: NewSubscriptionService(tx),
	}
}

// EntitlementStore backs entitlement.Engine with Postgres.
type EntitlementStore struct {
	db        *gorm.DB
	overrides *OverrideService
}

var _ entitlement.Store = (*EntitlementStore)(nil)

func NewEntitlementStore(db *gorm.DB) *EntitlementStore {
	return &EntitlementStore{db: db, overrides: NewOverrideService(db)}
}

// Snapshot runs fn inside a read-only repeatable-read transaction so that the
// subscription, plan, overrides and both usage counts come from one view.
func (s *EntitlementStore) Snapshot(ctx context.Context, fn func(entitlement.Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newSnapshotReader(tx))
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func (s *EntitlementStore) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.overrides.UserExists(ctx, userID)
}

func (s *EntitlementStore) InsertOverride(ctx context.Context, o *models.FeatureOverride) error {
	return s.overrides.InsertOverride(ctx, o)
}
