package ingest

import (
	"context"
	"strings"

	"sciflow/internal/graph"
	"sciflow/internal/models"
	"sciflow/internal/storage"
	"sciflow/internal/util"
)

// statements walks the graph's File nodes in graph order, fetches each one's
// out-of-band statement content, and upserts a Statement row keyed by the
// linguistic label found through the supports -> notation -> label chain.
// A file whose chain yields no label is skipped; a file whose content cannot
// be fetched still produces a statement row, just without a decode pass.
func (r *run) statements(ctx context.Context, g storage.Gateway) error {
	for pos, n := range r.nodes {
		if !n.HasType(graph.TagFile) {
			continue
		}
		if !strings.EqualFold(lookupString(n, "encodingFormat"), StatementEncoding) {
			continue
		}

		ls, _ := nodeOf(lookup(n, "supports"))
		if ls != nil {
			ls = r.resolveRef(ls)
		}
		label := r.linguisticLabel(ls)
		if label == "" {
			r.log.Warn("file node has no linguistic label, skipping", "file", n.ID())
			continue
		}
		stmtID := util.StableHash("statement", label)

		var content map[string]any
		name := first(n, "name", "label")
		if url, ok := r.files[name]; ok {
			loaded, err := r.source.LoadJSON(ctx, url)
			if err != nil {
				r.log.Warn("statement content fetch failed", "statement", stmtID, "url", url, "err", err)
			} else {
				content = loaded
			}
		} else {
			r.log.Debug("no content document for file node", "file", name)
		}

		rec := models.Statement{
			ID:        stmtID,
			ArticleID: r.articleID,
			Label:     label,
			Order:     pos,
			Content:   content,
		}
		if ls != nil {
			if v, ok := lookupAny(ls, "components", "component"); ok {
				rec.ComponentIDs = r.mappedIDs(v)
			}
			if v, ok := lookupAny(ls, "concepts", "concept"); ok {
				rec.ConceptIDs = r.mappedIDs(v)
			}
			if v, ok := lookupAny(ls, "authors", "author"); ok {
				rec.AuthorIDs = r.mappedIDs(v)
			}
		}
		if err := g.UpsertStatement(ctx, rec); err != nil {
			return err
		}
		r.statementIDs = append(r.statementIDs, stmtID)

		if content != nil {
			if err := r.decodeAnalysisNode(ctx, g, stmtID, graph.Node(content), 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveRef swaps an {"@id"}-only stub for the indexed node it points at.
func (r *run) resolveRef(n graph.Node) graph.Node {
	if len(n) == 1 {
		if resolved, ok := r.index[n.ID()]; ok {
			return resolved
		}
	}
	return n
}

func (r *run) linguisticLabel(ls graph.Node) string {
	if ls == nil {
		return ""
	}
	if notation, ok := nodeOf(lookup(ls, "notation")); ok {
		notation = r.resolveRef(notation)
		if label := lookupString(notation, "label"); label != "" {
			return label
		}
	}
	return lookupString(ls, "label")
}

func propertySuffix(prop string) string {
	if i := strings.LastIndex(prop, "#"); i >= 0 {
		return prop[i+1:]
	}
	return prop
}

func implementationURLs(v any) []string {
	var out []string
	for _, e := range graph.AsList(v) {
		if id := graph.RefID(e); id != "" {
			out = append(out, id)
			continue
		}
		if n, ok := graph.AsNode(e); ok {
			if s := lookupString(n, "url"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
