package services

import (
	"context"
	"fmt"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) FindPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, notFound(err, "plan "+id.String())
	}
	return &plan, nil
}

func (s *CatalogService) FindPlanBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&plan).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("plan %q", slug))
	}
	return &plan, nil
}

func (s *CatalogService) FindPrice(ctx context.Context, id uuid.UUID) (*models.PlanPrice, error) {
	var price models.PlanPrice
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&price).Error; err != nil {
		return nil, notFound(err, "plan price "+id.String())
	}
	return &price, nil
}

func (s *CatalogService) FindActivePrices(ctx context.Context, planID uuid.UUID) ([]models.PlanPrice, error) {
	var prices []models.PlanPrice
	err := s.db.WithContext(ctx).
		Where("plan_id = ? AND is_active = ?", planID, true).
		Order("created_at ASC").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active prices: %w", err)
	}
	return prices, nil
}

// ListPlans returns every plan with its active prices, ordered by slug.
func (s *CatalogService) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := s.db.WithContext(ctx).
		Preload("Prices", "is_active = ?", true).
		Order("slug ASC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
