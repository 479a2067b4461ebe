package services

import (
	"context"
	"fmt"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsageService struct {
	db *gorm.DB
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db}
}

func (s *UsageService) CountOwnedProjects(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("owner_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// CountIssuedQueries walks feedback_queries -> screens -> projects in one
// statement. A query stops counting once it, its screen or its project is
// soft-deleted.
func (s *UsageService) CountIssuedQueries(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("feedback_queries").
		Joins("JOIN screens ON screens.id = feedback_queries.screen_id AND screens.deleted_at IS NULL").
		Joins("JOIN projects ON projects.id = screens.project_id AND projects.deleted_at IS NULL").
		Where("projects.owner_id = ? AND feedback_queries.deleted_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback queries: %w", err)
	}
	return count, nil
}
