package ingest

import (
	"context"
	"testing"

	"sciflow/internal/registry"
)

func TestDecodeExecutesChain(t *testing.T) {
	ctx := context.Background()
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T2": {TypeID: "T2", Name: "Data preprocessing", Properties: []string{"doi:T2#label", "doi:T2#executes"}},
	}}
	content := map[string]any{
		"@type":        "doi:T2",
		"doi:T2#label": "Cleanup",
		"doi:T2#executes": map[string]any{
			"label":             "dropna",
			"is_implemented_by": "https://example.org/code#dropna",
			"part_of": map[string]any{
				"label":        "pandas",
				"version_info": "2.1",
				"part_of": map[string]any{
					"label":           "Python",
					"version_info":    "3.11",
					"has_support_url": "https://python.org",
				},
			},
		},
	}
	mem, stmtID := ingestContent(t, reg, content)

	analyses, _ := mem.ListAnalyses(ctx, stmtID)
	if len(analyses) != 1 || analyses[0].Kind != "data_preprocessing" {
		t.Fatalf("analyses %+v", analyses)
	}
	if len(analyses[0].MethodIDs) != 1 {
		t.Fatalf("methods %v", analyses[0].MethodIDs)
	}

	method, err := mem.GetSoftwareMethod(ctx, analyses[0].MethodIDs[0])
	if err != nil {
		t.Fatalf("method: %v", err)
	}
	if method.Label != "dropna" || method.ImplementedBy != "https://example.org/code#dropna" {
		t.Fatalf("method %+v", method)
	}
	lib, err := mem.GetSoftwareLibrary(ctx, method.LibraryID)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if lib.Label != "pandas" || lib.VersionInfo != "2.1" {
		t.Fatalf("library %+v", lib)
	}
	soft, err := mem.GetSoftware(ctx, lib.SoftwareID)
	if err != nil {
		t.Fatalf("software: %v", err)
	}
	if soft.Label != "Python" || soft.VersionInfo != "3.11" || soft.SupportURL != "https://python.org" {
		t.Fatalf("software %+v", soft)
	}
}

func TestDecodeDataItemExpansion(t *testing.T) {
	ctx := context.Background()
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T3": {TypeID: "T3", Name: "Descriptive statistics", Properties: []string{"doi:T3#label", "doi:T3#has_output"}},
	}}
	content := map[string]any{
		"@type":        "doi:T3",
		"doi:T3#label": "Summary",
		"doi:T3#has_output": []any{map[string]any{
			"label":        "Table 2",
			"source_url":   "uploads/table2.csv",
			"comment":      "mean and sd per group",
			"source_table": map[string]any{"columns": []any{"group", "mean"}},
			"has_characteristic": map[string]any{
				"number_rows":    "12",
				"number_columns": "4",
			},
			"has_expression": []any{map[string]any{"label": "Figure 1", "source_url": "uploads/fig1.png"}},
			"has_part":       []any{map[string]any{"label": "group", "see_also": "https://example.org/group"}},
		}},
	}
	mem, stmtID := ingestContent(t, reg, content)

	analyses, _ := mem.ListAnalyses(ctx, stmtID)
	if len(analyses) != 1 || len(analyses[0].OutputIDs) != 1 {
		t.Fatalf("analyses %+v", analyses)
	}
	item, err := mem.GetDataItem(ctx, analyses[0].OutputIDs[0])
	if err != nil {
		t.Fatalf("data item: %v", err)
	}
	if item.Label != "Table 2" || item.SourceURL != "uploads/table2.csv" {
		t.Fatalf("item %+v", item)
	}
	if len(item.Comments) != 1 || item.Comments[0] != "mean and sd per group" {
		t.Fatalf("comments %v", item.Comments)
	}
	if item.SourceTable == nil {
		t.Fatal("source table dropped")
	}
	if item.CharacteristicID == "" {
		t.Fatal("characteristic not linked")
	}
	ms, err := mem.GetMatrixSize(ctx, item.CharacteristicID)
	if err != nil || ms.NumberRows != "12" || ms.NumberColumns != "4" {
		t.Fatalf("matrix size %+v %v", ms, err)
	}
	if len(item.FigureIDs) != 1 {
		t.Fatalf("figures %v", item.FigureIDs)
	}
	fig, err := mem.GetFigure(ctx, item.FigureIDs[0])
	if err != nil || fig.Label != "Figure 1" {
		t.Fatalf("figure %+v %v", fig, err)
	}
	if len(item.PartIDs) != 1 {
		t.Fatalf("parts %v", item.PartIDs)
	}
	part, err := mem.GetDataItemComponent(ctx, item.PartIDs[0])
	if err != nil || part.Label != "group" || part.SeeAlso != "https://example.org/group" {
		t.Fatalf("part %+v %v", part, err)
	}
}

func TestDecodeVariantExclusivity(t *testing.T) {
	ctx := context.Background()
	// The registry declares level on a group comparison; the variant does not
	// support it, so the stored record must not carry it.
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T4": {TypeID: "T4", Name: "Group comparison", Properties: []string{"doi:T4#label", "doi:T4#targets", "doi:T4#level"}},
	}}
	content := map[string]any{
		"@type":          "doi:T4",
		"doi:T4#label":   "GC",
		"doi:T4#targets": []any{map[string]any{"label": "score"}},
		"doi:T4#level":   []any{map[string]any{"label": "school"}},
	}
	mem, stmtID := ingestContent(t, reg, content)

	analyses, _ := mem.ListAnalyses(ctx, stmtID)
	if len(analyses) != 1 {
		t.Fatalf("analyses %+v", analyses)
	}
	an := analyses[0]
	if an.Kind != "group_comparison" || len(an.TargetIDs) != 1 {
		t.Fatalf("analysis %+v", an)
	}
	if len(an.LevelIDs) != 0 || an.EvaluateID != "" || an.EvaluatesForID != "" {
		t.Fatalf("variant carries unsupported fields: %+v", an)
	}
}

func TestDecodeMultilevelKeepsLevels(t *testing.T) {
	ctx := context.Background()
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T5": {TypeID: "T5", Name: "Multilevel analysis", Properties: []string{"doi:T5#label", "doi:T5#targets", "doi:T5#level"}},
	}}
	content := map[string]any{
		"@type":          "doi:T5",
		"doi:T5#label":   "ML",
		"doi:T5#targets": []any{map[string]any{"label": "score"}},
		"doi:T5#level":   []any{map[string]any{"label": "school"}, map[string]any{"label": "district"}},
	}
	mem, stmtID := ingestContent(t, reg, content)

	analyses, _ := mem.ListAnalyses(ctx, stmtID)
	if len(analyses) != 1 {
		t.Fatalf("analyses %+v", analyses)
	}
	an := analyses[0]
	if len(an.LevelIDs) != 2 || len(an.TargetIDs) != 1 {
		t.Fatalf("analysis %+v", an)
	}
	level, err := mem.GetSharedType(ctx, an.LevelIDs[0])
	if err != nil || level.Type != "levels" {
		t.Fatalf("level %+v %v", level, err)
	}
}

func TestDecodeAlgorithmEvaluation(t *testing.T) {
	ctx := context.Background()
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T6": {TypeID: "T6", Name: "Algorithm evaluation", Properties: []string{"doi:T6#label", "doi:T6#evaluates", "doi:T6#evaluates_for"}},
	}}
	content := map[string]any{
		"@type":                "doi:T6",
		"doi:T6#label":         "Eval",
		"doi:T6#evaluates":     map[string]any{"label": "SVM"},
		"doi:T6#evaluates_for": map[string]any{"label": "accuracy"},
	}
	mem, stmtID := ingestContent(t, reg, content)

	analyses, _ := mem.ListAnalyses(ctx, stmtID)
	if len(analyses) != 1 {
		t.Fatalf("analyses %+v", analyses)
	}
	an := analyses[0]
	if an.EvaluateID == "" || an.EvaluatesForID == "" {
		t.Fatalf("evaluation refs missing: %+v", an)
	}
	ev, err := mem.GetSharedType(ctx, an.EvaluateID)
	if err != nil || ev.Label != "SVM" || ev.Type != "evaluates" {
		t.Fatalf("evaluate %+v %v", ev, err)
	}
	ef, err := mem.GetSharedType(ctx, an.EvaluatesForID)
	if err != nil || ef.Label != "accuracy" || ef.Type != "evaluates_for" {
		t.Fatalf("evaluates_for %+v %v", ef, err)
	}
}

func TestDecodeImplementationLinks(t *testing.T) {
	ctx := context.Background()
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T7": {TypeID: "T7", Name: "Regression analysis", Properties: []string{"doi:T7#label", "doi:T7#is_implemented_by"}},
	}}
	content := map[string]any{
		"@type":                    "doi:T7",
		"doi:T7#label":             "R1",
		"doi:T7#is_implemented_by": []any{"https://example.org/nb1", "https://example.org/nb2"},
	}
	mem, stmtID := ingestContent(t, reg, content)

	impls, _ := mem.ListImplementations(ctx, stmtID)
	if len(impls) != 2 {
		t.Fatalf("implementations %+v", impls)
	}
	if impls[0].URL != "https://example.org/nb1" || impls[1].URL != "https://example.org/nb2" {
		t.Fatalf("urls %+v", impls)
	}
}

func TestDecodeNestedPartsOneLevelDeep(t *testing.T) {
	ctx := context.Background()
	// The content node is a container whose registry name is not an analysis
	// kind; its parts decode as analyses, but a part's own parts do not.
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T8": {TypeID: "T8", Name: "Data analysis", Description: "container", Properties: []string{"doi:T8#label", "doi:T8#has_part"}},
		"T1": {TypeID: "T1", Name: "Regression analysis", Properties: []string{"doi:T1#label", "doi:T1#has_part"}},
	}}
	content := map[string]any{
		"@type":        "doi:T8",
		"doi:T8#label": "outer",
		"doi:T8#has_part": map[string]any{
			"@type":        "doi:T1",
			"doi:T1#label": "inner",
			"doi:T1#has_part": map[string]any{
				"@type":        "doi:T1",
				"doi:T1#label": "too deep",
			},
		},
	}
	mem, stmtID := ingestContent(t, reg, content)

	parts, _ := mem.ListHasParts(ctx, stmtID)
	if len(parts) != 2 {
		t.Fatalf("has_parts %+v", parts)
	}
	// The container's row comes first; reconstruction treats it as the
	// statement's top-level type description.
	if parts[0].Type != "Data analysis" || parts[1].Type != "Regression analysis" {
		t.Fatalf("part order %+v", parts)
	}

	analyses, _ := mem.ListAnalyses(ctx, stmtID)
	if len(analyses) != 1 {
		t.Fatalf("analyses %+v", analyses)
	}
	if analyses[0].Label != "inner" || analyses[0].Kind != "regression_analysis" {
		t.Fatalf("analysis %+v", analyses[0])
	}
}
