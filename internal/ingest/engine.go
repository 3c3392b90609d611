package ingest

import (
	"context"
	"errors"
	"log/slog"

	"sciflow/internal/graph"
	"sciflow/internal/registry"
	"sciflow/internal/sources"
	"sciflow/internal/storage"
)

// StatementEncoding is the encodingFormat value that marks a File node as
// out-of-band statement content.
const StatementEncoding = "application/ld+json"

// ErrNoArticle is the one fatal ingestion condition: a graph without a
// ScholarlyArticle node cannot anchor any of its entities.
var ErrNoArticle = errors.New("graph has no scholarly article node")

// TypeInformer is the slice of the registry client the engine needs.
type TypeInformer interface {
	GetTypeInfo(ctx context.Context, typeID string) (registry.TypeInfo, error)
}

// Engine decodes one document graph into normalized records. Each ingestion
// is a single linear pass; steps later in the pass reference IDs created by
// earlier ones, and the whole pass runs in one storage transaction.
type Engine struct {
	store    storage.Gateway
	registry TypeInformer
	source   sources.DocumentSource
	doi      sources.DOIResolver
	log      *slog.Logger
}

func New(store storage.Gateway, reg TypeInformer, source sources.DocumentSource, doi sources.DOIResolver, log *slog.Logger) *Engine {
	if doi == nil {
		doi = sources.NopDOIResolver{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, registry: reg, source: source, doi: doi, log: log}
}

type Result struct {
	ArticleID    string   `json:"article_id"`
	StatementIDs []string `json:"statement_ids"`
}

// Ingest runs the full decode pass over a parsed graph. jsonFiles maps a File
// node's name to the URL of its real statement content. Decode problems
// degrade field by field; a missing article node or a storage failure aborts
// the document.
func (e *Engine) Ingest(ctx context.Context, nodes []graph.Node, jsonFiles map[string]string) (Result, error) {
	buckets := graph.Partition(nodes)
	if len(buckets.Articles) == 0 {
		e.log.Error("ingestion aborted", "err", ErrNoArticle)
		return Result{}, ErrNoArticle
	}

	r := &run{
		Engine:  e,
		nodes:   nodes,
		buckets: buckets,
		index:   graph.Index(nodes),
		files:   jsonFiles,
		idMap:   make(map[string]string),
	}
	err := e.store.Transact(ctx, func(g storage.Gateway) error {
		if err := r.leaves(ctx, g); err != nil {
			return err
		}
		if err := r.components(ctx, g); err != nil {
			return err
		}
		if err := r.venues(ctx, g); err != nil {
			return err
		}
		if err := r.concepts(ctx, g); err != nil {
			return err
		}
		if err := r.article(ctx, g); err != nil {
			return err
		}
		return r.statements(ctx, g)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{ArticleID: r.articleID, StatementIDs: r.statementIDs}, nil
}

// IngestURL fetches the graph document first, then ingests it.
func (e *Engine) IngestURL(ctx context.Context, graphURL string, jsonFiles map[string]string) (Result, error) {
	nodes, err := e.source.LoadGraph(ctx, graphURL)
	if err != nil {
		return Result{}, err
	}
	return e.Ingest(ctx, nodes, jsonFiles)
}

// run carries the state of one ingestion pass.
type run struct {
	*Engine
	nodes   []graph.Node
	buckets graph.Buckets
	index   map[string]graph.Node
	files   map[string]string

	// idMap maps graph @id to persisted ID so later steps can resolve the
	// graph's own references against what was actually stored.
	idMap      map[string]string
	authorIDs  []string
	conceptIDs []string
	fieldIDs   []string

	articleID    string
	statementIDs []string
}

func (r *run) remember(n graph.Node, storedID string) {
	if id := n.ID(); id != "" {
		r.idMap[id] = storedID
	}
}

// mappedIDs resolves a reference value (ids or inline nodes) to the persisted
// IDs of the referenced entities. Dangling references are skipped.
func (r *run) mappedIDs(v any) []string {
	var out []string
	for _, ref := range graph.RefIDs(v) {
		if id, ok := r.idMap[ref]; ok {
			out = append(out, id)
		}
	}
	return out
}

// refNodes resolves a reference value to the nodes themselves: inline objects
// are used directly, bare ids and {"@id"} stubs go through the graph index.
func (r *run) refNodes(v any) []graph.Node {
	var out []graph.Node
	for _, e := range graph.AsList(v) {
		if n, ok := graph.AsNode(e); ok {
			if len(n) > 1 || n.ID() == "" {
				out = append(out, n)
				continue
			}
			if resolved, ok := r.index[n.ID()]; ok {
				out = append(out, resolved)
			}
			continue
		}
		if id := graph.RefID(e); id != "" {
			if resolved, ok := r.index[id]; ok {
				out = append(out, resolved)
			}
		}
	}
	return out
}

// lookup finds a property by logical name, trying the type-qualified IRI
// spellings first and the bare key last, so it works for registry-shaped
// content and plain graph nodes alike.
func lookup(n graph.Node, logical string) (any, bool) {
	if v, ok, err := graph.PropertyInfo(n, logical); err == nil && ok {
		return v, true
	}
	if v, ok := n[logical]; ok {
		return v, true
	}
	return nil, false
}

func lookupAny(n graph.Node, logicals ...string) (any, bool) {
	for _, l := range logicals {
		if v, ok := lookup(n, l); ok {
			return v, true
		}
	}
	return nil, false
}

func lookupString(n graph.Node, logical string) string {
	v, _ := lookup(n, logical)
	return scalarString(v)
}

func lookupList(n graph.Node, logical string) []any {
	v, _ := lookup(n, logical)
	return graph.AsList(v)
}

func lookupStrings(n graph.Node, logical string) []string {
	v, _ := lookup(n, logical)
	return graph.AsStrings(v)
}

func first(n graph.Node, logicals ...string) string {
	for _, l := range logicals {
		if s := lookupString(n, l); s != "" {
			return s
		}
	}
	return ""
}

// scalarString coerces the scalar, one-element-list and @id-reference forms a
// messy document may use for a single value.
func scalarString(v any) string {
	for _, e := range graph.AsList(v) {
		if s := graph.AsString(e); s != "" {
			return s
		}
		if id := graph.RefID(e); id != "" {
			return id
		}
	}
	return ""
}

// nodeOf unwraps a lookup result into its first object entry.
func nodeOf(v any, ok bool) (graph.Node, bool) {
	if !ok {
		return nil, false
	}
	entries := graph.AsList(v)
	if len(entries) == 0 {
		return nil, false
	}
	return graph.AsNode(entries[0])
}

func appendUnique(ids []string, id string) []string {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
