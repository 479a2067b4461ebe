package entitlement

import (
	"testing"
	"time"

	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestLayersFirstPresentValueWins(t *testing.T) {
	org := NewLayer("organization", map[Feature]Value{FeatureMasterMode: BoolValue(true)})
	override := NewLayer(LayerOverride, map[Feature]Value{FeatureModelTier: TextValue("x")})
	plan := PlanLayer(&models.Plan{ModelTier: "standard", MaxProjects: intPtr(2)})

	layers := Layers{override, org, plan}

	v, source, ok := layers.Lookup(FeatureModelTier)
	require.True(t, ok)
	assert.Equal(t, LayerOverride, source)
	text, _ := v.Text()
	assert.Equal(t, "x", text)

	v, source, _ = layers.Lookup(FeatureMasterMode)
	assert.Equal(t, "organization", source)
	b, _ := v.Bool()
	assert.True(t, b)

	_, source, _ = layers.Lookup(FeatureMaxProjects)
	assert.Equal(t, LayerPlan, source)

	_, _, ok = Layers{override}.Lookup(FeatureMaxQueries)
	assert.False(t, ok)
}

func TestPlanLayerCoversVocabulary(t *testing.T) {
	layer := PlanLayer(&models.Plan{Analyzers: datatypes.NewJSONType([]string{"a"})})
	for _, f := range Features() {
		v, ok := layer.Lookup(f)
		require.True(t, ok, f)
		kind, _ := f.Kind()
		assert.Equal(t, kind, v.Kind(), f)
	}

	v, _ := layer.Lookup(FeatureMaxQueries)
	l, _ := v.Limit()
	assert.True(t, l.IsUnlimited())
}

func TestOverrideLayerSeparatesInert(t *testing.T) {
	now := time.Now()
	active := map[Feature]models.FeatureOverride{
		FeatureMasterMode:   {ID: uuid.New(), Feature: "masterMode", Value: datatypes.JSON(`true`), CreatedAt: now},
		FeatureMaxProjects:  {ID: uuid.New(), Feature: "maxProjects", Value: datatypes.JSON(`"ten"`), CreatedAt: now},
		Feature("betaFlag"): {ID: uuid.New(), Feature: "betaFlag", Value: datatypes.JSON(`true`), CreatedAt: now},
	}

	layer, inert := OverrideLayer(active)
	require.Len(t, inert, 2)
	assert.Equal(t, "betaFlag", inert[0].Override.Feature)
	assert.Equal(t, "unknown feature", inert[0].Reason)
	assert.Equal(t, "maxProjects", inert[1].Override.Feature)

	_, ok := layer.Lookup(FeatureMaxProjects)
	assert.False(t, ok)
	v, ok := layer.Lookup(FeatureMasterMode)
	require.True(t, ok)
	b, _ := v.Bool()
	assert.True(t, b)
}
