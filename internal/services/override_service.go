package services

import (
	"context"
	"fmt"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OverrideService struct {
	db *gorm.DB
}

func NewOverrideService(db *gorm.DB) *OverrideService {
	return &OverrideService{db: db}
}

func (s *OverrideService) FindUnexpiredOverrides(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.FeatureOverride, error) {
	var rows []models.FeatureOverride
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, now).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	return rows, nil
}

// ListOverrides returns the full override history of a user, expired rows
// included, newest first.
func (s *OverrideService) ListOverrides(ctx context.Context, userID uuid.UUID) ([]models.FeatureOverride, error) {
	var rows []models.FeatureOverride
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	return rows, nil
}

func (s *OverrideService) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}

func (s *OverrideService) InsertOverride(ctx context.Context, o *models.FeatureOverride) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create override: %w", err)
	}
	return nil
}
