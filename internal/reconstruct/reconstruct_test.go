package reconstruct

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"sciflow/internal/files"
	"sciflow/internal/graph"
	"sciflow/internal/ingest"
	"sciflow/internal/models"
	"sciflow/internal/registry"
	"sciflow/internal/sources"
	"sciflow/internal/storage"
	"sciflow/internal/util"
)

type stubRegistry struct {
	types map[string]registry.TypeInfo
}

func (s *stubRegistry) GetTypeInfo(_ context.Context, typeID string) (registry.TypeInfo, error) {
	info, ok := s.types[registry.TypeID(typeID)]
	if !ok {
		return registry.TypeInfo{}, errors.New("no such type")
	}
	return info, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ingestFixture runs a full ingestion of one regression statement with an
// executes chain, an input, an output with figure and parts, and a target.
func ingestFixture(t *testing.T) (*storage.Memory, string) {
	t.Helper()
	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T1": {
			TypeID:      "T1",
			Name:        "Regression analysis",
			Description: "Fits a model.",
			Properties: []string{
				"doi:T1#label",
				"doi:T1#executes",
				"doi:T1#has_input",
				"doi:T1#has_output",
				"doi:T1#targets",
			},
		},
	}}
	content := map[string]any{
		"@type":        "doi:T1",
		"doi:T1#label": "R1",
		"doi:T1#executes": map[string]any{
			"label":           "lm",
			"has_support_url": "https://example.org/lm",
			"part_of": map[string]any{
				"label":        "stats",
				"version_info": "4.3",
				"part_of":      map[string]any{"label": "R", "version_info": "4.3.1"},
			},
		},
		"doi:T1#has_input": map[string]any{"label": "X", "source_url": "uploads/x.csv"},
		"doi:T1#has_output": map[string]any{
			"label":          "coefficients",
			"has_expression": []any{map[string]any{"label": "Figure 2", "source_url": "uploads/fig2.png"}},
			"has_part":       []any{map[string]any{"label": "slope"}},
		},
		"doi:T1#targets": map[string]any{"label": "Y"},
	}

	mem := storage.NewMemory()
	src := sources.NewMapSource()
	b, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	src.Add("https://files.test/stmt-1.json", b)

	nodes, err := graph.ParseGraph([]byte(`[
		{"@id": "a1", "@type": "ScholarlyArticle", "name": "Paper", "date_published": "2021"},
		{"@id": "u1", "@type": "Unit", "label": "ms"},
		{"@id": "c1", "@type": "Component", "label": "latency", "unit": ["u1"]},
		{"@id": "ls1", "@type": "LinguisticStatement", "notation": {"label": "latency shrinks"}, "components": ["c1"]},
		{"@id": "f1", "@type": "File", "name": "stmt-1.json", "encodingFormat": "application/ld+json", "supports": {"@id": "ls1"}}
	]`))
	if err != nil {
		t.Fatalf("fixture graph: %v", err)
	}
	eng := ingest.New(mem, reg, src, sources.NopDOIResolver{}, discardLogger())
	res, err := eng.Ingest(context.Background(), nodes, map[string]string{"stmt-1.json": "https://files.test/stmt-1.json"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.StatementIDs) != 1 {
		t.Fatalf("statements: %v", res.StatementIDs)
	}
	return mem, res.StatementIDs[0]
}

func TestReconstructRoundTrip(t *testing.T) {
	mem, stmtID := ingestFixture(t)
	r := New(mem, nil, files.NewResolver("https://files.example.org"), discardLogger())

	got, err := r.Reconstruct(context.Background(), stmtID)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	if got.Type == nil || got.Type.Type != "Regression analysis" || got.Type.Description != "Fits a model." {
		t.Fatalf("type block %+v", got.Type)
	}
	if got.HasPart == nil {
		t.Fatal("has_part missing")
	}
	hp := got.HasPart
	if hp.Label != "R1" {
		t.Fatalf("label %q", hp.Label)
	}
	if len(hp.Executes) != 1 || hp.Executes[0].Label != "lm" {
		t.Fatalf("executes %+v", hp.Executes)
	}
	m := hp.Executes[0]
	if len(m.PartOf) != 1 || m.PartOf[0].Label != "stats" {
		t.Fatalf("method part_of %+v", m.PartOf)
	}
	if m.PartOf[0].PartOf == nil || m.PartOf[0].PartOf.Label != "R" {
		t.Fatalf("library part_of %+v", m.PartOf[0].PartOf)
	}
	if len(hp.HasInputs) != 1 || hp.HasInputs[0].Label != "X" {
		t.Fatalf("inputs %+v", hp.HasInputs)
	}
	if hp.HasInputs[0].SourceURL != "https://files.example.org/uploads/x.csv" {
		t.Fatalf("input url %q", hp.HasInputs[0].SourceURL)
	}
	if len(hp.HasOutputs) != 1 || hp.HasOutputs[0].Label != "coefficients" {
		t.Fatalf("outputs %+v", hp.HasOutputs)
	}
	exprs := hp.HasOutputs[0].HasExpressions
	if len(exprs) != 1 || exprs[0].Label != "Figure 2" || exprs[0].SourceURL != "https://files.example.org/uploads/fig2.png" {
		t.Fatalf("expressions %+v", exprs)
	}
	if len(hp.HasOutputs[0].HasParts) != 1 || hp.HasOutputs[0].HasParts[0].Label != "slope" {
		t.Fatalf("output parts %+v", hp.HasOutputs[0].HasParts)
	}
	if len(hp.Targets) != 1 || hp.Targets[0].Label != "Y" {
		t.Fatalf("targets %+v", hp.Targets)
	}
	if hp.Evaluates != nil || hp.EvaluatesFor != nil || len(hp.Level) != 0 {
		t.Fatalf("variant fields leaked: %+v", hp)
	}

	if len(got.Components) != 1 || got.Components[0].Label != "latency" {
		t.Fatalf("components %+v", got.Components)
	}
	if len(got.Components[0].Units) != 1 || got.Components[0].Units[0] != "ms" {
		t.Fatalf("component units %+v", got.Components[0])
	}
}

func TestReconstructMissingStatement(t *testing.T) {
	mem := storage.NewMemory()
	r := New(mem, nil, files.NewResolver(""), discardLogger())
	_, err := r.Reconstruct(context.Background(), "nope")
	if !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReconstructRefillsTypeDescription(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	if err := mem.UpsertArticle(ctx, models.Article{ID: "a1", Name: "Paper"}); err != nil {
		t.Fatalf("article: %v", err)
	}
	if err := mem.UpsertStatement(ctx, models.Statement{ID: "s1", ArticleID: "a1", Label: "claim"}); err != nil {
		t.Fatalf("statement: %v", err)
	}
	// Stored without a description, as happens when the schema carried none
	// at ingestion time.
	if err := mem.UpsertHasPart(ctx, models.HasPart{
		ID: "hp1", StatementID: "s1", Label: "R1",
		Type: "Regression analysis", SchemaType: "doi:T1",
	}); err != nil {
		t.Fatalf("has part: %v", err)
	}

	reg := &stubRegistry{types: map[string]registry.TypeInfo{
		"T1": {TypeID: "T1", Name: "Regression analysis", Description: "Fits a model."},
	}}
	r := New(mem, reg, files.NewResolver(""), discardLogger())
	got, err := r.Reconstruct(ctx, "s1")
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if got.Type == nil || got.Type.Description != "Fits a model." {
		t.Fatalf("description not re-derived: %+v", got.Type)
	}

	// An unknown schema type degrades to the stored row, not an error.
	if err := mem.UpsertStatement(ctx, models.Statement{ID: "s2", ArticleID: "a1", Label: "other"}); err != nil {
		t.Fatalf("statement: %v", err)
	}
	if err := mem.UpsertHasPart(ctx, models.HasPart{
		ID: "hp2", StatementID: "s2", Type: "Mystery", SchemaType: "doi:T9",
	}); err != nil {
		t.Fatalf("has part: %v", err)
	}
	got, err = r.Reconstruct(ctx, "s2")
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if got.Type == nil || got.Type.Type != "Mystery" || got.Type.Description != "" {
		t.Fatalf("unknown schema type altered the view: %+v", got.Type)
	}
}

func TestReconstructStatementWithoutAnalysis(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	if err := mem.UpsertArticle(ctx, models.Article{ID: "a1", Name: "Paper"}); err != nil {
		t.Fatalf("article: %v", err)
	}
	if err := mem.UpsertStatement(ctx, models.Statement{ID: "s1", ArticleID: "a1", Label: "bare claim"}); err != nil {
		t.Fatalf("statement: %v", err)
	}

	r := New(mem, nil, files.NewResolver(""), discardLogger())
	got, err := r.Reconstruct(ctx, "s1")
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if got.HasPart != nil || got.Type != nil || len(got.IsImplementedBy) != 0 {
		t.Fatalf("empty statement produced content: %+v", got)
	}
}
