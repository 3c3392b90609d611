package models

import "testing"

func TestKindFromName(t *testing.T) {
	cases := map[string]AnalysisKind{
		"Regression analysis":  KindRegressionAnalysis,
		"Data preprocessing":   KindDataPreprocessing,
		"Algorithm evaluation": KindAlgorithmEvaluation,
		"Unknown type":         KindUnknown,
		"regression analysis":  KindUnknown,
	}
	for name, want := range cases {
		if got := KindFromName(name); got != want {
			t.Fatalf("KindFromName(%q): got %q want %q", name, got, want)
		}
	}
}

func TestKindCapabilities(t *testing.T) {
	for _, k := range []AnalysisKind{KindGroupComparison, KindRegressionAnalysis, KindClassPrediction, KindMultilevelAnalysis} {
		if !k.SupportsTargets() {
			t.Fatalf("%s must support targets", k)
		}
	}
	if KindCorrelationAnalysis.SupportsTargets() {
		t.Fatalf("correlation analysis carries no targets")
	}
	if !KindMultilevelAnalysis.SupportsLevels() || KindGroupComparison.SupportsLevels() {
		t.Fatalf("levels belong to multilevel analysis only")
	}
	if !KindAlgorithmEvaluation.SupportsEvaluation() || KindRegressionAnalysis.SupportsEvaluation() {
		t.Fatalf("evaluation references belong to algorithm evaluation only")
	}
}

func TestApplyCapabilitiesClearsForeignFields(t *testing.T) {
	a := Analysis{
		Kind:           KindGroupComparison,
		TargetIDs:      []string{"t1"},
		LevelIDs:       []string{"l1"},
		EvaluateID:     "e1",
		EvaluatesForID: "e2",
	}
	a.ApplyCapabilities()
	if len(a.TargetIDs) != 1 {
		t.Fatalf("targets are supported by group comparison: %+v", a)
	}
	if a.LevelIDs != nil || a.EvaluateID != "" || a.EvaluatesForID != "" {
		t.Fatalf("foreign fields must be cleared: %+v", a)
	}
}
