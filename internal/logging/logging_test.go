package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestToSystemLogMapsKnownAttrs(t *testing.T) {
	record := slog.NewRecord(time.Now(), slog.LevelError, "Entitlement resolution failed", 0)
	record.AddAttrs(
		slog.String("user_id", "5b0f2c1e-0000-4000-8000-000000000001"),
		slog.String("action", "resolve_entitlement"),
		slog.String("error", "store unavailable"),
		slog.Int64("latency_ms", 2003),
		slog.String("capability", "createProject"),
		slog.String("path", "/api/p/projects"),
	)

	entry := toSystemLog(record, []slog.Attr{slog.String("request_id", "req-1")})
	assert.Equal(t, "ERROR", entry.Level)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "5b0f2c1e-0000-4000-8000-000000000001", *entry.UserID)
	assert.Equal(t, "resolve_entitlement", entry.Action)
	assert.Equal(t, "createProject", entry.Feature)
	assert.Equal(t, "store unavailable", entry.Error)
	assert.Equal(t, 2003, entry.LatencyMs)
	assert.Equal(t, "req-1", entry.TraceID)
	assert.JSONEq(t, `{"path":"/api/p/projects"}`, string(entry.Extra))
}

func TestLatencyMs(t *testing.T) {
	assert.Equal(t, 12, latencyMs(slog.Float64Value(11.6)))
	assert.Equal(t, 40, latencyMs(slog.DurationValue(40*time.Millisecond)))
	assert.Equal(t, 0, latencyMs(slog.StringValue("fast")))
}

type failingHandler struct{ calls int }

func (f *failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (f *failingHandler) Handle(context.Context, slog.Record) error {
	f.calls++
	return errors.New("sink down")
}
func (f *failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }
func (f *failingHandler) WithGroup(string) slog.Handler { return f }

func TestMultiHandlerContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	failing := &failingHandler{}
	h := NewMultiHandler(failing, NewJSONHandler(&buf, "production"))

	err := slog.New(h).With("action", "test").Handler().Handle(context.Background(),
		slog.NewRecord(time.Now(), slog.LevelWarn, "hello", 0))
	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "test", line["action"])
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Level("development"))
	assert.Equal(t, slog.LevelInfo, Level("production"))
}

func TestPGHandlerOnlyHandlesErrors(t *testing.T) {
	h := &PGHandler{}
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestDeleteExpired(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	now := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM "system_logs" WHERE timestamp < \$1`).
		WithArgs(now.AddDate(0, 0, -7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := DeleteExpired(db, 7, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
