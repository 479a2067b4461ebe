package entitlement

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActiveOverridesNewestWins(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemStore(func() time.Time { return now })
	userID := store.addUser()
	other := store.addUser()

	store.addOverride(userID, FeatureMaxProjects, `5`, now.Add(-2*time.Hour), nil)
	newest := store.addOverride(userID, FeatureMaxProjects, `9`, now.Add(-time.Hour), nil)
	store.addOverride(userID, FeatureMaxProjects, `50`, now.Add(-time.Minute), timePtr(now.Add(-time.Second)))
	store.addOverride(other, FeatureMaxProjects, `100`, now, nil)

	active, err := NewOverrideStore(store, store).GetActiveOverrides(context.Background(), userID, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, newest.ID, active[FeatureMaxProjects].ID)
}

func TestGetActiveOverridesTieBreaksOnID(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemStore(func() time.Time { return now })
	userID := store.addUser()

	a := store.addOverride(userID, FeatureMasterMode, `true`, now.Add(-time.Hour), nil)
	b := store.addOverride(userID, FeatureMasterMode, `false`, now.Add(-time.Hour), nil)
	want := a.ID
	if b.ID.String() > a.ID.String() {
		want = b.ID
	}

	for i := 0; i < 3; i++ {
		active, err := NewOverrideStore(store, nil).GetActiveOverrides(context.Background(), userID, now)
		require.NoError(t, err)
		assert.Equal(t, want, active[FeatureMasterMode].ID)
	}
}

func TestGrantOverrideStoresValueAsGiven(t *testing.T) {
	store := newMemStore(time.Now)
	userID := store.addUser()
	expires := time.Now().Add(time.Hour)

	o, err := NewOverrideStore(store, store).GrantOverride(context.Background(), GrantRequest{
		UserID:    userID,
		Feature:   " availableAnalyzers ",
		Value:     json.RawMessage(` ["copy"] `),
		Reason:    "trial",
		ExpiresAt: &expires,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, "availableAnalyzers", o.Feature)
	assert.JSONEq(t, `["copy"]`, string(o.Value))
	require.NotNil(t, o.Reason)
	assert.Equal(t, "trial", *o.Reason)
	assert.Equal(t, &expires, o.ExpiresAt)
}

func TestGrantOverrideAllowsZeroCeiling(t *testing.T) {
	store := newMemStore(time.Now)
	userID := store.addUser()

	_, err := NewOverrideStore(store, store).GrantOverride(context.Background(), GrantRequest{
		UserID:  userID,
		Feature: string(FeatureMaxQueries),
		Value:   json.RawMessage(`0`),
	})
	require.NoError(t, err)
}

func TestGrantOverrideReadOnlyStore(t *testing.T) {
	_, err := NewOverrideStore(newMemStore(time.Now), nil).GrantOverride(context.Background(), GrantRequest{})
	assert.Error(t, err)
}
