package entitlement

import (
	"sort"

	"github.com/designpulse/feedback-backend/internal/models"
)

const (
	LayerOverride = "override"
	LayerPlan     = "plan"
)

// Layer is one source of feature values.
type Layer interface {
	Name() string
	Lookup(f Feature) (Value, bool)
}

// Layers are consulted in order; the first layer holding a feature wins.
// Adding a source (for example an organization layer) means inserting it at
// the right position, not touching per-feature code.
type Layers []Layer

// Lookup returns the winning value for f and the name of the layer that
// supplied it.
func (ls Layers) Lookup(f Feature) (v Value, source string, ok bool) {
	for _, l := range ls {
		if v, ok := l.Lookup(f); ok {
			return v, l.Name(), true
		}
	}
	return Value{}, "", false
}

type mapLayer struct {
	name   string
	values map[Feature]Value
}

// NewLayer builds a layer over a fixed set of values.
func NewLayer(name string, values map[Feature]Value) Layer {
	copied := make(map[Feature]Value, len(values))
	for f, v := range values {
		copied[f] = v
	}
	return mapLayer{name: name, values: copied}
}

func (l mapLayer) Name() string { return l.name }

func (l mapLayer) Lookup(f Feature) (Value, bool) {
	v, ok := l.values[f]
	return v, ok
}

// PlanLayer exposes every feature of the vocabulary from the plan's base values.
func PlanLayer(p *models.Plan) Layer {
	return NewLayer(LayerPlan, map[Feature]Value{
		FeatureMaxProjects:       LimitValue(LimitFromColumn(p.MaxProjects)),
		FeatureMaxQueries:        LimitValue(LimitFromColumn(p.MaxQueries)),
		FeatureModelTier:         TextValue(p.ModelTier),
		FeatureFigmaIntegration:  BoolValue(p.FigmaIntegration),
		FeatureMasterMode:        BoolValue(p.MasterMode),
		FeaturePrioritySupport:   BoolValue(p.PrioritySupport),
		FeatureAdvancedAnalytics: BoolValue(p.AdvancedAnalytics),
		FeatureCustomBranding:    BoolValue(p.CustomBranding),
		FeatureExportPDF:         BoolValue(p.ExportPDF),
		FeaturePremiumAnalyzers:  BoolValue(p.PremiumAnalyzers),
		FeatureAnalyzers:         ListValue(p.Analyzers.Data()),
	})
}

// InertOverride is an active override that does not take part in the merge.
type InertOverride struct {
	Override models.FeatureOverride
	Reason   string
}

// OverrideLayer decodes active overrides. Overrides on unknown features or
// with values that do not fit the feature's kind are returned as inert
// instead of failing the resolution.
func OverrideLayer(active map[Feature]models.FeatureOverride) (Layer, []InertOverride) {
	values := make(map[Feature]Value, len(active))
	var inert []InertOverride
	for f, o := range active {
		kind, ok := f.Kind()
		if !ok {
			inert = append(inert, InertOverride{Override: o, Reason: "unknown feature"})
			continue
		}
		v, err := DecodeValue(kind, o.Value)
		if err != nil {
			inert = append(inert, InertOverride{Override: o, Reason: err.Error()})
			continue
		}
		values[f] = v
	}
	sort.Slice(inert, func(i, j int) bool { return inert[i].Override.Feature < inert[j].Override.Feature })
	return NewLayer(LayerOverride, values), inert
}
