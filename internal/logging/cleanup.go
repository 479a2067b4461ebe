package logging

import (
	"log/slog"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"gorm.io/gorm"
)

// DeleteExpired removes system_logs older than retentionDays.
func DeleteExpired(db *gorm.DB, retentionDays int, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// StartCleanup runs a daily goroutine that applies the log retention window.
func StartCleanup(db *gorm.DB, retentionDays int, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := DeleteExpired(db, retentionDays, time.Now())
				if err != nil {
					slog.Error("log cleanup failed", "action", "log_cleanup", "error", err.Error())
				} else if deleted > 0 {
					slog.Info("log cleanup completed", "action", "log_cleanup", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}
