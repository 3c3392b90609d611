package models

// AnalysisKind tags the closed family of analysis shapes a statement may
// carry. The tag is chosen at decode time from the registry-reported type
// name; names outside the family map to KindUnknown and are skipped rather
// than guessed.
type AnalysisKind string

const (
	KindDataPreprocessing     AnalysisKind = "data_preprocessing"
	KindDescriptiveStatistics AnalysisKind = "descriptive_statistics"
	KindAlgorithmEvaluation   AnalysisKind = "algorithm_evaluation"
	KindMultilevelAnalysis    AnalysisKind = "multilevel_analysis"
	KindCorrelationAnalysis   AnalysisKind = "correlation_analysis"
	KindGroupComparison       AnalysisKind = "group_comparison"
	KindRegressionAnalysis    AnalysisKind = "regression_analysis"
	KindClassPrediction       AnalysisKind = "class_prediction"
	KindClassDiscovery        AnalysisKind = "class_discovery"
	KindFactorAnalysis        AnalysisKind = "factor_analysis"
	KindUnknown               AnalysisKind = ""
)

var kindNames = map[AnalysisKind]string{
	KindDataPreprocessing:     "Data preprocessing",
	KindDescriptiveStatistics: "Descriptive statistics",
	KindAlgorithmEvaluation:   "Algorithm evaluation",
	KindMultilevelAnalysis:    "Multilevel analysis",
	KindCorrelationAnalysis:   "Correlation analysis",
	KindGroupComparison:       "Group comparison",
	KindRegressionAnalysis:    "Regression analysis",
	KindClassPrediction:       "Class prediction",
	KindClassDiscovery:        "Class discovery",
	KindFactorAnalysis:        "Factor analysis",
}

// KindFromName matches a registry display name ("Regression analysis")
// against the known kinds. Unrecognized names yield KindUnknown.
func KindFromName(name string) AnalysisKind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindUnknown
}

// DisplayName returns the registry-facing name of the kind, "" for unknown.
func (k AnalysisKind) DisplayName() string {
	return kindNames[k]
}

func (k AnalysisKind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// SupportsTargets reports whether the variant carries target references.
func (k AnalysisKind) SupportsTargets() bool {
	switch k {
	case KindGroupComparison, KindRegressionAnalysis, KindClassPrediction, KindMultilevelAnalysis:
		return true
	default:
		return false
	}
}

// SupportsLevels reports whether the variant carries level references.
func (k AnalysisKind) SupportsLevels() bool {
	return k == KindMultilevelAnalysis
}

// SupportsEvaluation reports whether the variant carries evaluate and
// evaluates_for references.
func (k AnalysisKind) SupportsEvaluation() bool {
	return k == KindAlgorithmEvaluation
}

// Analysis is the decoded record for one analysis sub-node. Exactly one kind
// applies; fields a kind does not support stay empty (the gateways apply
// ApplyCapabilities before writing).
type Analysis struct {
	ID             string       `json:"id"`
	StatementID    string       `json:"statement_id"`
	Kind           AnalysisKind `json:"kind"`
	Label          string       `json:"label,omitempty"`
	SeeAlso        string       `json:"see_also,omitempty"`
	MethodIDs      []string     `json:"method_ids,omitempty"`
	InputIDs       []string     `json:"input_ids,omitempty"`
	OutputIDs      []string     `json:"output_ids,omitempty"`
	TargetIDs      []string     `json:"target_ids,omitempty"`
	LevelIDs       []string     `json:"level_ids,omitempty"`
	EvaluateID     string       `json:"evaluate_id,omitempty"`
	EvaluatesForID string       `json:"evaluates_for_id,omitempty"`
}

// ApplyCapabilities clears every field the record's kind does not support so
// a stored record can never claim fields outside its variant.
func (a *Analysis) ApplyCapabilities() {
	if !a.Kind.SupportsTargets() {
		a.TargetIDs = nil
	}
	if !a.Kind.SupportsLevels() {
		a.LevelIDs = nil
	}
	if !a.Kind.SupportsEvaluation() {
		a.EvaluateID = ""
		a.EvaluatesForID = ""
	}
}
