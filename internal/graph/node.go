package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one raw entry of a document's "@graph" array. Keys are kept as-is;
// typed accessors below tolerate the usual JSON-LD shape variations.
type Node map[string]any

func (n Node) ID() string {
	return AsString(n["@id"])
}

// Types returns the node's "@type" values, which may appear as a single
// string or a list of strings.
func (n Node) Types() []string {
	switch v := n["@type"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s := AsString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Type returns the node's primary type IRI, used for type-qualified property
// lookups.
func (n Node) Type() string {
	if ts := n.Types(); len(ts) > 0 {
		return ts[0]
	}
	return ""
}

// HasType reports whether any of the node's type values carries the given
// tag, either verbatim or as the final segment of an IRI.
func (n Node) HasType(tag string) bool {
	for _, t := range n.Types() {
		if t == tag || strings.HasSuffix(t, "/"+tag) || strings.HasSuffix(t, "#"+tag) {
			return true
		}
	}
	return false
}

// Type tags recognized during bucket partitioning.
const (
	TagDataset             = "Dataset"
	TagResearchField       = "ResearchField"
	TagPerson              = "Person"
	TagAuthor              = "Author"
	TagUnit                = "Unit"
	TagObjectOfInterest    = "ObjectOfInterest"
	TagMatrix              = "Matrix"
	TagProperty            = "Property"
	TagConstraint          = "Constraint"
	TagOperation           = "Operation"
	TagComponent           = "Component"
	TagVariable            = "Variable"
	TagMeasure             = "Measure"
	TagPublisher           = "Publisher"
	TagJournal             = "Journal"
	TagConference          = "Conference"
	TagConcept             = "Concept"
	TagScholarlyArticle    = "ScholarlyArticle"
	TagLinguisticStatement = "LinguisticStatement"
	TagStatement           = "Statement"
	TagFile                = "File"
)

// Buckets holds the partition of a graph by type tag. A node may land in more
// than one bucket; Component, Variable and Measure are treated as one family.
type Buckets struct {
	Datasets          []Node
	ResearchFields    []Node
	Authors           []Node
	Units             []Node
	ObjectsOfInterest []Node
	Matrices          []Node
	Properties        []Node
	Constraints       []Node
	Operations        []Node
	Components        []Node
	Publishers        []Node
	Journals          []Node
	Conferences       []Node
	Concepts          []Node
	Articles          []Node
	Linguistics       []Node
	Statements        []Node
	Files             []Node
}

func Partition(nodes []Node) Buckets {
	var b Buckets
	for _, n := range nodes {
		if n.HasType(TagDataset) {
			b.Datasets = append(b.Datasets, n)
		}
		if n.HasType(TagResearchField) {
			b.ResearchFields = append(b.ResearchFields, n)
		}
		if n.HasType(TagPerson) || n.HasType(TagAuthor) {
			b.Authors = append(b.Authors, n)
		}
		if n.HasType(TagUnit) {
			b.Units = append(b.Units, n)
		}
		if n.HasType(TagObjectOfInterest) {
			b.ObjectsOfInterest = append(b.ObjectsOfInterest, n)
		}
		if n.HasType(TagMatrix) {
			b.Matrices = append(b.Matrices, n)
		}
		if n.HasType(TagProperty) {
			b.Properties = append(b.Properties, n)
		}
		if n.HasType(TagConstraint) {
			b.Constraints = append(b.Constraints, n)
		}
		if n.HasType(TagOperation) {
			b.Operations = append(b.Operations, n)
		}
		if n.HasType(TagComponent) || n.HasType(TagVariable) || n.HasType(TagMeasure) {
			b.Components = append(b.Components, n)
		}
		if n.HasType(TagPublisher) {
			b.Publishers = append(b.Publishers, n)
		}
		if n.HasType(TagJournal) {
			b.Journals = append(b.Journals, n)
		}
		if n.HasType(TagConference) {
			b.Conferences = append(b.Conferences, n)
		}
		if n.HasType(TagConcept) {
			b.Concepts = append(b.Concepts, n)
		}
		if n.HasType(TagScholarlyArticle) {
			b.Articles = append(b.Articles, n)
		}
		if n.HasType(TagLinguisticStatement) {
			b.Linguistics = append(b.Linguistics, n)
		}
		if n.HasType(TagStatement) {
			b.Statements = append(b.Statements, n)
		}
		if n.HasType(TagFile) {
			b.Files = append(b.Files, n)
		}
	}
	return b
}

// Index maps node @id to node for reference resolution. Nodes without an @id
// are skipped; duplicate ids keep the first occurrence.
func Index(nodes []Node) map[string]Node {
	idx := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		id := n.ID()
		if id == "" {
			continue
		}
		if _, ok := idx[id]; !ok {
			idx[id] = n
		}
	}
	return idx
}

// ParseGraph accepts either a bare JSON array of nodes or an object carrying
// an "@graph" array.
func ParseGraph(raw []byte) ([]Node, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("empty graph document")
	}
	if strings.HasPrefix(trimmed, "[") {
		var nodes []Node
		if err := json.Unmarshal([]byte(trimmed), &nodes); err != nil {
			return nil, fmt.Errorf("parse graph array: %w", err)
		}
		return nodes, nil
	}
	var payload struct {
		Graph []Node `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, fmt.Errorf("parse graph document: %w", err)
	}
	if payload.Graph == nil {
		return nil, fmt.Errorf("graph document has no @graph array")
	}
	return payload.Graph, nil
}
