package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPSourceLoadGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ld+json")
		_, _ = w.Write([]byte(`{"@graph": [{"@id": "n1", "@type": "Person", "label": "Ada"}]}`))
	}))
	defer srv.Close()

	s := NewHTTPSource(5 * time.Second)
	nodes, err := s.LoadGraph(context.Background(), srv.URL+"/doc.jsonld")
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID() != "n1" {
		t.Fatalf("unexpected nodes: %+v", nodes)
	}
}

func TestHTTPSourceLoadJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewHTTPSource(5 * time.Second)
	if _, err := s.LoadJSON(context.Background(), srv.URL+"/table.json"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestHTTPDOIResolver(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"doi": "10.1000/orig", "reborn_doi": "10.2000/reborn"}`))
	}))
	defer srv.Close()

	r := NewHTTPDOIResolver(srv.URL, 5*time.Second)
	reborn, err := r.LookupRebornDOI(context.Background(), "10.1000/orig")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if reborn != "10.2000/reborn" {
		t.Fatalf("got %q", reborn)
	}
	// The slash in the DOI must be path-escaped, not treated as a segment.
	if gotPath != "/10.1000%2Forig" && gotPath != "/10.1000/orig" {
		t.Fatalf("unexpected lookup path %q", gotPath)
	}
}

func TestHTTPDOIResolverEmptyDOI(t *testing.T) {
	r := NewHTTPDOIResolver("http://unused.invalid", time.Second)
	reborn, err := r.LookupRebornDOI(context.Background(), "")
	if err != nil || reborn != "" {
		t.Fatalf("empty doi should short-circuit, got %q %v", reborn, err)
	}
}
