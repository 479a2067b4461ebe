package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the local profile of an identity issued by the external auth
// provider. ID equals the token's sub claim.
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string         `gorm:"size:255;index" json:"email"`
	DisplayName      string         `gorm:"size:100" json:"display_name"`
	Role             string         `gorm:"size:20;default:'user'" json:"role"`
	StripeCustomerID *string        `gorm:"size:255;uniqueIndex" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
