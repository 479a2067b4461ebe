package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UsageReader counts consumption by walking ownership relations in the store.
// Implementations must not rely on denormalised counters.
type UsageReader interface {
	CountOwnedProjects(ctx context.Context, userID uuid.UUID) (int64, error)
	CountIssuedQueries(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UsageSnapshot is a point-in-time view of a user's consumption.
type UsageSnapshot struct {
	Projects int64 `json:"projects"`
	Queries  int64 `json:"queries"`
}

type UsageCounter struct {
	reader UsageReader
}

func NewUsageCounter(reader UsageReader) *UsageCounter {
	return &UsageCounter{reader: reader}
}

func (u *UsageCounter) CountOwnedProjects(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := u.reader.CountOwnedProjects(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

func (u *UsageCounter) CountIssuedQueries(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := u.reader.CountIssuedQueries(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback queries: %w", err)
	}
	return n, nil
}

// Snapshot reads both counts. Run it inside a Store snapshot so the two
// numbers describe the same instant.
func (u *UsageCounter) Snapshot(ctx context.Context, userID uuid.UUID) (UsageSnapshot, error) {
	projects, err := u.CountOwnedProjects(ctx, userID)
	if err != nil {
		return UsageSnapshot{}, err
	}
	queries, err := u.CountIssuedQueries(ctx, userID)
	if err != nil {
		return UsageSnapshot{}, err
	}
	return UsageSnapshot{Projects: projects, Queries: queries}, nil
}
