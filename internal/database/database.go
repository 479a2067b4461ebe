package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/designpulse/feedback-backend/internal/config"
	"github.com/designpulse/feedback-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// sharedIndexes holds constraints AutoMigrate cannot express.
var sharedIndexes = []string{
	// At most one active price per plan and billing interval.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_plan_prices_active_interval
		ON plan_prices (plan_id, interval) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_active_created
		ON subscriptions (user_id, created_at DESC, id DESC) WHERE status = 'active'`,
}

// MigrateShared runs AutoMigrate for the entitlement models and creates the
// partial indexes they rely on.
func MigrateShared() error {
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.PlanPrice{},
		&models.Subscription{},
		&models.FeatureOverride{},
		&models.SystemLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate shared models: %w", err)
	}
	for _, stmt := range sharedIndexes {
		if err := DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// MigrateModels runs AutoMigrate for arbitrary models (used by plugins).
func MigrateModels(modelList []interface{}) error {
	if len(modelList) == 0 {
		return nil
	}
	return DB.AutoMigrate(modelList...)
}

func Ping() error {
	return PingContext(context.Background())
}

func PingContext(ctx context.Context) error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
