package entitlement

import "sort"

// Feature is the stable name of a plan value that overrides can target.
type Feature string

const (
	FeatureMaxProjects       Feature = "maxProjects"
	FeatureMaxQueries        Feature = "maxQueries"
	FeatureModelTier         Feature = "modelTier"
	FeatureFigmaIntegration  Feature = "figmaIntegration"
	FeatureMasterMode        Feature = "masterMode"
	FeaturePrioritySupport   Feature = "prioritySupport"
	FeatureAdvancedAnalytics Feature = "advancedAnalytics"
	FeatureCustomBranding    Feature = "customBranding"
	FeatureExportPDF         Feature = "exportPdf"
	FeaturePremiumAnalyzers  Feature = "premiumAnalyzers"
	FeatureAnalyzers         Feature = "availableAnalyzers"
)

// Kind is the value shape a feature carries.
type Kind int

const (
	KindBool Kind = iota
	KindLimit
	KindText
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindLimit:
		return "limit"
	case KindText:
		return "text"
	case KindList:
		return "list"
	}
	return "unknown"
}

var vocabulary = map[Feature]Kind{
	FeatureMaxProjects:       KindLimit,
	FeatureMaxQueries:        KindLimit,
	FeatureModelTier:         KindText,
	FeatureFigmaIntegration:  KindBool,
	FeatureMasterMode:        KindBool,
	FeaturePrioritySupport:   KindBool,
	FeatureAdvancedAnalytics: KindBool,
	FeatureCustomBranding:    KindBool,
	FeatureExportPDF:         KindBool,
	FeaturePremiumAnalyzers:  KindBool,
	FeatureAnalyzers:         KindList,
}

// Kind returns the value shape of f. ok is false for names outside the
// vocabulary; overrides on such names are stored but never applied.
func (f Feature) Kind() (kind Kind, ok bool) {
	kind, ok = vocabulary[f]
	return kind, ok
}

func (f Feature) Known() bool {
	_, ok := vocabulary[f]
	return ok
}

// Features returns the vocabulary in a stable order.
func Features() []Feature {
	out := make([]Feature, 0, len(vocabulary))
	for f := range vocabulary {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Capabilities returns the boolean features in a stable order.
func Capabilities() []Feature {
	var out []Feature
	for _, f := range Features() {
		if vocabulary[f] == KindBool {
			out = append(out, f)
		}
	}
	return out
}
