package storage

import (
	"context"
	"errors"
	"testing"

	"sciflow/internal/models"
	"sciflow/internal/util"
)

func TestMemoryNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetArticle(context.Background(), "nope")
	if !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = m.GetSharedType(context.Background(), "nope")
	if !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryUpsertMerge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	year := 2015
	if err := m.UpsertArticle(ctx, models.Article{ID: "a1", Name: "Original title", YearPublished: &year, DOI: "10.1/x"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Re-ingesting with missing scalars must keep what is already stored.
	if err := m.UpsertArticle(ctx, models.Article{ID: "a1", Name: "", RebornDOI: "10.2/y"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := m.GetArticle(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Original title" {
		t.Fatalf("name overwritten by empty value: %q", got.Name)
	}
	if got.YearPublished == nil || *got.YearPublished != 2015 {
		t.Fatalf("year not kept: %v", got.YearPublished)
	}
	if got.DOI != "10.1/x" || got.RebornDOI != "10.2/y" {
		t.Fatalf("doi merge wrong: %q %q", got.DOI, got.RebornDOI)
	}

	articles, err := m.ListArticles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("upsert duplicated the article: %d rows", len(articles))
	}
}

func TestMemoryStatementOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.UpsertArticle(ctx, models.Article{ID: "a1", Name: "Paper"}); err != nil {
		t.Fatalf("upsert article: %v", err)
	}
	// Inserted out of graph order on purpose.
	for _, s := range []models.Statement{
		{ID: "s2", ArticleID: "a1", Label: "second", Order: 2},
		{ID: "s0", ArticleID: "a1", Label: "first", Order: 0},
		{ID: "s1", ArticleID: "a1", Label: "middle", Order: 1},
	} {
		if err := m.UpsertStatement(ctx, s); err != nil {
			t.Fatalf("upsert statement: %v", err)
		}
	}

	got, err := m.ListStatementsByArticle(ctx, "a1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(got))
	}
	for i, want := range []string{"s0", "s1", "s2"} {
		if got[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestMemoryLinkReplacement(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := models.Component{ID: "c1", Label: "F1 score", UnitIDs: []string{"u1", "u2"}}
	if err := m.UpsertComponent(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec.UnitIDs = []string{"u3"}
	if err := m.UpsertComponent(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := m.GetComponent(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.UnitIDs) != 1 || got.UnitIDs[0] != "u3" {
		t.Fatalf("links not replaced: %v", got.UnitIDs)
	}
}

func TestMemoryAnalysisCapabilities(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// A correlation analysis must not retain target or level references.
	rec := models.Analysis{
		ID:          "an1",
		StatementID: "s1",
		Kind:        models.KindCorrelationAnalysis,
		Label:       "corr",
		TargetIDs:   []string{"t1"},
		LevelIDs:    []string{"l1"},
		EvaluateID:  "e1",
	}
	if err := m.UpsertAnalysis(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := m.ListAnalyses(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(got))
	}
	if got[0].TargetIDs != nil || got[0].LevelIDs != nil || got[0].EvaluateID != "" {
		t.Fatalf("unsupported fields survived: %+v", got[0])
	}
}

func TestMemoryTransactRunsInline(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.Transact(ctx, func(g Gateway) error {
		return g.UpsertAuthor(ctx, models.Author{ID: "au1", Label: "Jane Doe"})
	})
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	// Memory has no rollback; a write before the error still lands.
	wantErr := errors.New("boom")
	err = m.Transact(ctx, func(g Gateway) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("transact error not propagated: %v", err)
	}
}
