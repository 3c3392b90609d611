package graph

import "testing"

func TestPartitionByTypeTags(t *testing.T) {
	nodes := []Node{
		{"@id": "a1", "@type": "ScholarlyArticle"},
		{"@id": "p1", "@type": []any{"Person"}},
		{"@id": "c1", "@type": []any{"Component", "Variable"}},
		{"@id": "j1", "@type": "https://example.org/terms/Journal"},
		{"@id": "f1", "@type": "File"},
		{"@id": "x1"},
	}
	b := Partition(nodes)
	if len(b.Articles) != 1 || b.Articles[0].ID() != "a1" {
		t.Fatalf("articles: %+v", b.Articles)
	}
	if len(b.Authors) != 1 {
		t.Fatalf("Person nodes land in the author bucket: %+v", b.Authors)
	}
	if len(b.Components) != 1 {
		t.Fatalf("Component and Variable are one family: %+v", b.Components)
	}
	if len(b.Journals) != 1 {
		t.Fatalf("IRI-suffixed type tag must match: %+v", b.Journals)
	}
	if len(b.Files) != 1 {
		t.Fatalf("files: %+v", b.Files)
	}
}

func TestParseGraphShapes(t *testing.T) {
	fromObject, err := ParseGraph([]byte(`{"@graph":[{"@id":"n1","@type":"Concept"}]}`))
	if err != nil || len(fromObject) != 1 || fromObject[0].ID() != "n1" {
		t.Fatalf("object shape: %v %+v", err, fromObject)
	}
	fromArray, err := ParseGraph([]byte(`[{"@id":"n2"}]`))
	if err != nil || len(fromArray) != 1 || fromArray[0].ID() != "n2" {
		t.Fatalf("array shape: %v %+v", err, fromArray)
	}
	if _, err := ParseGraph([]byte(`{"nodes":[]}`)); err == nil {
		t.Fatalf("missing @graph must error")
	}
	if _, err := ParseGraph([]byte("  ")); err == nil {
		t.Fatalf("empty document must error")
	}
}

func TestValueCoercions(t *testing.T) {
	if got := AsStrings("one"); len(got) != 1 || got[0] != "one" {
		t.Fatalf("scalar to list: %v", got)
	}
	if got := AsStrings([]any{"a", "", "b"}); len(got) != 2 {
		t.Fatalf("empties dropped: %v", got)
	}
	if got := AsString(float64(2021)); got != "2021" {
		t.Fatalf("integral number: %q", got)
	}
	if got := RefID(map[string]any{"@id": "ref-9"}); got != "ref-9" {
		t.Fatalf("object ref: %q", got)
	}
	if got := RefIDs([]any{"r1", map[string]any{"@id": "r2"}, 7}); len(got) != 2 || got[1] != "r2" {
		t.Fatalf("mixed refs: %v", got)
	}
}
