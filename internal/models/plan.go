package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Plan is a catalog tier. MaxProjects and MaxQueries are nil when unlimited.
type Plan struct {
	ID                uuid.UUID                    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Slug              string                       `gorm:"size:50;not null;uniqueIndex" json:"slug"`
	Name              string                       `gorm:"size:100;not null" json:"name"`
	MaxProjects       *int                         `json:"max_projects"`
	MaxQueries        *int                         `json:"max_queries"`
	ModelTier         string                       `gorm:"size:50;not null" json:"model_tier"`
	FigmaIntegration  bool                         `gorm:"not null" json:"figma_integration"`
	MasterMode        bool                         `gorm:"not null" json:"master_mode"`
	PrioritySupport   bool                         `gorm:"not null" json:"priority_support"`
	AdvancedAnalytics bool                         `gorm:"not null" json:"advanced_analytics"`
	CustomBranding    bool                         `gorm:"not null" json:"custom_branding"`
	ExportPDF         bool                         `gorm:"column:export_pdf;not null" json:"export_pdf"`
	PremiumAnalyzers  bool                         `gorm:"not null" json:"premium_analyzers"`
	Analyzers         datatypes.JSONType[[]string] `gorm:"type:jsonb" json:"analyzers"`
	Prices            []PlanPrice                  `gorm:"foreignKey:PlanID" json:"prices,omitempty"`
	CreatedAt         time.Time                    `json:"created_at"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}

type BillingInterval string

const (
	IntervalMonth BillingInterval = "month"
	IntervalYear  BillingInterval = "year"
)

// Rank orders intervals so that monthly sorts before yearly.
func (i BillingInterval) Rank() int {
	switch i {
	case IntervalMonth:
		return 0
	case IntervalYear:
		return 1
	}
	return 2
}

// PlanPrice is a priced offering of a plan for one billing interval. At most
// one active price exists per (plan, interval); see database.MigrateShared.
type PlanPrice struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlanID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"plan_id"`
	Interval      BillingInterval `gorm:"size:10;not null" json:"interval"`
	Amount        int64           `gorm:"not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	StripePriceID *string         `gorm:"size:255;uniqueIndex" json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Plan          Plan            `gorm:"foreignKey:PlanID" json:"-"`
}
