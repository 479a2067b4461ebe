package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FeatureOverride is a per-user exception to a plan value. Rows are never
// deleted by the application; they stop applying once ExpiresAt has passed.
type FeatureOverride struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_feature_overrides_user_feature,priority:1" json:"user_id"`
	Feature   string         `gorm:"size:100;not null;index:idx_feature_overrides_user_feature,priority:2" json:"feature"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`
	Reason    *string        `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	ExpiresAt *time.Time     `gorm:"index" json:"expires_at,omitempty"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate ensures UUID is set before creation
func (o *FeatureOverride) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ActiveAt reports whether the override applies at now. An override whose
// ExpiresAt equals now is already inactive.
func (o *FeatureOverride) ActiveAt(now time.Time) bool {
	return o.ExpiresAt == nil || o.ExpiresAt.After(now)
}

func (FeatureOverride) TableName() string {
	return "feature_overrides"
}
