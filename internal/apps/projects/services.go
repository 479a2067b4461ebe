package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/designpulse/feedback-backend/internal/identity"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidInput = errors.New("invalid input")

// ProjectService manages projects, their screens and the feedback queries
// issued against them. Every lookup is scoped to the owning user.
type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

func (s *ProjectService) CreateProject(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	project := &models.Project{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Scopes(identity.OwnedBy(ownerID)).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// DeleteProject soft-deletes a project. Its screens and queries stop
// counting toward usage with it.
func (s *ProjectService) DeleteProject(ctx context.Context, ownerID, projectID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Scopes(identity.OwnedBy(ownerID)).
		Where("projects.id = ?", projectID).
		Delete(&models.Project{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return services.ErrProjectNotFound
	}
	return nil
}

func (s *ProjectService) AddScreen(ctx context.Context, ownerID, projectID uuid.UUID, name, imageURL, figmaNode string) (*models.Screen, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	screen := &models.Screen{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		ImageURL:  strings.TrimSpace(imageURL),
		FigmaNode: strings.TrimSpace(figmaNode),
	}
	if err := s.db.WithContext(ctx).Create(screen).Error; err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	return screen, nil
}

func (s *ProjectService) CreateQuery(ctx context.Context, ownerID, screenID uuid.UUID, analyzer, prompt string) (*models.FeedbackQuery, error) {
	analyzer = strings.TrimSpace(analyzer)
	if analyzer == "" {
		return nil, fmt.Errorf("%w: analyzer is required", ErrInvalidInput)
	}
	if _, err := s.ownedScreen(ctx, ownerID, screenID); err != nil {
		return nil, err
	}

	query := &models.FeedbackQuery{
		ID:       uuid.New(),
		ScreenID: screenID,
		Analyzer: analyzer,
		Prompt:   prompt,
		Status:   "pending",
	}
	if err := s.db.WithContext(ctx).Create(query).Error; err != nil {
		return nil, fmt.Errorf("failed to create feedback query: %w", err)
	}
	return query, nil
}

func (s *ProjectService) ListQueries(ctx context.Context, ownerID, screenID uuid.UUID) ([]models.FeedbackQuery, error) {
	if _, err := s.ownedScreen(ctx, ownerID, screenID); err != nil {
		return nil, err
	}

	var queries []models.FeedbackQuery
	err := s.db.WithContext(ctx).
		Where("screen_id = ?", screenID).
		Order("created_at DESC").
		Find(&queries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback queries: %w", err)
	}
	return queries, nil
}

func (s *ProjectService) ownedProject(ctx context.Context, ownerID, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Scopes(identity.OwnedBy(ownerID)).
		Where("projects.id = ?", projectID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &project, nil
}

func (s *ProjectService) ownedScreen(ctx context.Context, ownerID, screenID uuid.UUID) (*models.Screen, error) {
	var screen models.Screen
	err := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = screens.project_id AND projects.deleted_at IS NULL").
		Scopes(identity.OwnedBy(ownerID)).
		Where("screens.id = ?", screenID).
		First(&screen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrScreenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load screen: %w", err)
	}
	return &screen, nil
}
