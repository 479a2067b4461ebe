package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ownership chain used for usage counting:
// FeedbackQuery.ScreenID -> Screen.ProjectID -> Project.OwnerID -> User.ID.

type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Owner       User           `gorm:"foreignKey:OwnerID" json:"-"`
}

type Screen struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Name      string         `gorm:"size:200;not null" json:"name"`
	ImageURL  string         `gorm:"type:text" json:"image_url"`
	FigmaNode string         `gorm:"size:255" json:"figma_node,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Project   Project        `gorm:"foreignKey:ProjectID" json:"-"`
}

type FeedbackQuery struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ScreenID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"screen_id"`
	Analyzer  string         `gorm:"size:100;not null" json:"analyzer"`
	Prompt    string         `gorm:"type:text" json:"prompt"`
	Status    string         `gorm:"size:20;default:'pending'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Screen    Screen         `gorm:"foreignKey:ScreenID" json:"-"`
}
