package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OverrideReader returns the overrides of a user whose expiry is null or
// strictly after now.
type OverrideReader interface {
	FindUnexpiredOverrides(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.FeatureOverride, error)
}

// OverrideWriter persists administrative overrides.
type OverrideWriter interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	InsertOverride(ctx context.Context, o *models.FeatureOverride) error
}

// GrantRequest describes an override to insert. Value is raw JSON; see
// DecodeValue for the shapes that take effect.
type GrantRequest struct {
	UserID    uuid.UUID
	Feature   string
	Value     json.RawMessage
	Reason    string
	ExpiresAt *time.Time
}

type OverrideStore struct {
	reader OverrideReader
	writer OverrideWriter
}

func NewOverrideStore(reader OverrideReader, writer OverrideWriter) *OverrideStore {
	return &OverrideStore{reader: reader, writer: writer}
}

// GetActiveOverrides returns one override per feature name, considering only
// rows with no expiry or an expiry strictly after now.
//
// When a user has several active rows for the same feature, the most
// recently created one wins; equal creation times fall back to the greater
// id so the choice is deterministic.
func (s *OverrideStore) GetActiveOverrides(ctx context.Context, userID uuid.UUID, now time.Time) (map[Feature]models.FeatureOverride, error) {
	rows, err := s.reader.FindUnexpiredOverrides(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}

	active := make(map[Feature]models.FeatureOverride, len(rows))
	for _, o := range rows {
		if !o.ActiveAt(now) {
			continue
		}
		f := Feature(o.Feature)
		current, seen := active[f]
		if !seen || newerThan(o, current) {
			active[f] = o
		}
	}
	return active, nil
}

func newerThan(a, b models.FeatureOverride) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// GrantOverride inserts an override. Feature names are not checked against
// the vocabulary: unknown names are stored and stay inert until the engine
// learns them.
func (s *OverrideStore) GrantOverride(ctx context.Context, req GrantRequest) (*models.FeatureOverride, error) {
	if s.writer == nil {
		return nil, errors.New("override store is read-only")
	}

	feature := strings.TrimSpace(req.Feature)
	if feature == "" {
		return nil, fmt.Errorf("%w: feature name is required", ErrMalformedOverride)
	}
	value := bytes.TrimSpace(req.Value)
	if len(value) == 0 || !json.Valid(value) {
		return nil, fmt.Errorf("%w: value must be valid JSON", ErrMalformedOverride)
	}

	exists, err := s.writer.UserExists(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", req.UserID, err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", req.UserID, ErrNotFound)
	}

	o := &models.FeatureOverride{
		UserID:    req.UserID,
		Feature:   feature,
		Value:     datatypes.JSON(value),
		ExpiresAt: req.ExpiresAt,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		o.Reason = &reason
	}

	if err := s.writer.InsertOverride(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to insert override: %w", err)
	}
	return o, nil
}
