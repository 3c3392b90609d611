package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"sciflow/internal/graph"
	"sciflow/internal/util"
)

// MapSource serves documents from memory. It runs the same decode paths as
// the HTTP source so tests exercise real graph parsing.
type MapSource struct {
	Docs map[string][]byte
}

func NewMapSource() *MapSource {
	return &MapSource{Docs: make(map[string][]byte)}
}

func (s *MapSource) Add(url string, body []byte) {
	s.Docs[url] = body
}

func (s *MapSource) LoadGraph(_ context.Context, url string) ([]graph.Node, error) {
	body, ok := s.Docs[url]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", url, util.ErrNotFound)
	}
	nodes, err := graph.ParseGraph(body)
	if err != nil {
		return nil, fmt.Errorf("parse graph from %s: %w", url, err)
	}
	return nodes, nil
}

func (s *MapSource) LoadJSON(_ context.Context, url string) (map[string]any, error) {
	body, ok := s.Docs[url]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", url, util.ErrNotFound)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode json from %s: %w", url, err)
	}
	return out, nil
}

// StaticDOIResolver returns canned reborn DOIs keyed by the original DOI.
type StaticDOIResolver struct {
	Reborn map[string]string
}

func (r StaticDOIResolver) LookupRebornDOI(_ context.Context, doi string) (string, error) {
	return r.Reborn[doi], nil
}
