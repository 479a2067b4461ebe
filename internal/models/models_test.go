package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to SubscriptionStatus
		want     bool
	}{
		{SubscriptionActive, SubscriptionCanceled, true},
		{SubscriptionActive, SubscriptionPastDue, true},
		{SubscriptionPastDue, SubscriptionActive, true},
		{SubscriptionPastDue, SubscriptionCanceled, true},
		{SubscriptionActive, SubscriptionActive, true},
		{SubscriptionCanceled, SubscriptionActive, false},
		{SubscriptionCanceled, SubscriptionPastDue, false},
		{SubscriptionCanceled, SubscriptionCanceled, true},
		{SubscriptionActive, SubscriptionStatus("paused"), false},
		{SubscriptionStatus("paused"), SubscriptionActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestFeatureOverrideActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var noExpiry FeatureOverride
	assert.True(t, noExpiry.ActiveAt(now))

	future := now.Add(time.Minute)
	assert.True(t, (&FeatureOverride{ExpiresAt: &future}).ActiveAt(now))

	exact := now
	assert.False(t, (&FeatureOverride{ExpiresAt: &exact}).ActiveAt(now), "override expires at the instant now == expires_at")

	past := now.Add(-time.Hour)
	assert.False(t, (&FeatureOverride{ExpiresAt: &past}).ActiveAt(now))
}

func TestBillingIntervalRank(t *testing.T) {
	assert.Less(t, IntervalMonth.Rank(), IntervalYear.Rank())
	assert.Less(t, IntervalYear.Rank(), BillingInterval("week").Rank())
}
