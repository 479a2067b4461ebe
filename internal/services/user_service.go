package services

import (
	"context"
	"fmt"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// EnsureProfile creates the local profile for an authenticated identity the
// first time it is seen. Existing profiles are left untouched.
func (s *UserService) EnsureProfile(ctx context.Context, id uuid.UUID, email string) error {
	user := models.User{ID: id, Email: email, Role: models.RoleUser}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return fmt.Errorf("failed to ensure user profile: %w", err)
	}
	return nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "user "+id.String())
	}
	return &user, nil
}

func (s *UserService) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Role == models.RoleAdmin, nil
}
