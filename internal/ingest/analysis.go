package ingest

import (
	"context"
	"encoding/json"
	"strings"

	"sciflow/internal/graph"
	"sciflow/internal/models"
	"sciflow/internal/registry"
	"sciflow/internal/storage"
	"sciflow/internal/util"
)

// decodeAnalysisNode decodes one analysis node of a statement: the fetched
// content itself at depth 0, or a has_part sub-node at depth 1. The node's
// own registry schema drives the walk: every property the registry declares
// is attempted, and properties the node does not carry are silently skipped.
// A HasPart row is written whether or not the registry name matches a known
// analysis kind; the analysis record itself is only written for known kinds.
func (r *run) decodeAnalysisNode(ctx context.Context, g storage.Gateway, stmtID string, node graph.Node, depth int) error {
	typeID := node.Type()
	if typeID == "" {
		r.log.Warn("analysis node has no @type, skipping", "statement", stmtID)
		return nil
	}
	info, err := r.registry.GetTypeInfo(ctx, typeID)
	if err != nil {
		r.log.Warn("analysis type lookup failed, skipping", "statement", stmtID, "type", typeID, "err", err)
		return nil
	}

	acc, err := r.accumulate(ctx, g, stmtID, node, info, depth)
	if err != nil {
		return err
	}

	hp := models.HasPart{
		ID:          util.StableHash("has_part", stmtID, acc.label, info.Name),
		StatementID: stmtID,
		Label:       acc.label,
		Type:        info.Name,
		SchemaType:  typeID,
		Description: info.Description,
	}
	if err := g.UpsertHasPart(ctx, hp); err != nil {
		return err
	}

	kind := models.KindFromName(info.Name)
	if kind.Known() {
		rec := models.Analysis{
			ID:             util.StableHash("analysis", stmtID, string(kind), acc.label),
			StatementID:    stmtID,
			Kind:           kind,
			Label:          acc.label,
			SeeAlso:        acc.seeAlso,
			MethodIDs:      acc.methodIDs,
			InputIDs:       acc.inputIDs,
			OutputIDs:      acc.outputIDs,
			TargetIDs:      acc.targetIDs,
			LevelIDs:       acc.levelIDs,
			EvaluateID:     acc.evaluateID,
			EvaluatesForID: acc.evaluatesForID,
		}
		if err := g.UpsertAnalysis(ctx, rec); err != nil {
			return err
		}
	} else {
		r.log.Warn("unrecognized analysis type, no record written",
			"statement", stmtID, "name", info.Name)
	}

	// Sub-nodes decode after their parent so the statement's first HasPart
	// row is always the top-level one.
	for _, sub := range acc.subNodes {
		if err := r.decodeAnalysisNode(ctx, g, stmtID, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// partAccum collects the fields of one analysis node as its declared
// properties are walked. Which of them survive into the stored record is the
// variant's decision, not the accumulator's.
type partAccum struct {
	label          string
	seeAlso        string
	methodIDs      []string
	inputIDs       []string
	outputIDs      []string
	targetIDs      []string
	levelIDs       []string
	evaluateID     string
	evaluatesForID string
	subNodes       []graph.Node
}

func (r *run) accumulate(ctx context.Context, g storage.Gateway, stmtID string, node graph.Node, info registry.TypeInfo, depth int) (partAccum, error) {
	var acc partAccum
	for _, prop := range info.Properties {
		v, ok := graph.ResolveProperty(node, prop)
		if !ok {
			continue
		}
		var err error
		switch propertySuffix(prop) {
		case "has_input":
			acc.inputIDs, err = r.dataItems(ctx, g, v, acc.inputIDs)
		case "has_output":
			acc.outputIDs, err = r.dataItems(ctx, g, v, acc.outputIDs)
		case "executes":
			acc.methodIDs, err = r.softwareMethods(ctx, g, v, acc.methodIDs)
		case "targets":
			acc.targetIDs, err = r.sharedTypes(ctx, g, v, "targets", acc.targetIDs)
		case "evaluates":
			acc.evaluateID, err = r.singleSharedType(ctx, g, v, "evaluates")
		case "evaluates_for":
			acc.evaluatesForID, err = r.singleSharedType(ctx, g, v, "evaluates_for")
		case "level":
			acc.levelIDs, err = r.sharedTypes(ctx, g, v, "levels", acc.levelIDs)
		case "label":
			acc.label = scalarString(v)
		case "see_also":
			acc.seeAlso = scalarString(v)
		case "is_implemented_by":
			for _, u := range implementationURLs(v) {
				rec := models.Implementation{
					ID:          util.StableHash("implementation", stmtID, u),
					StatementID: stmtID,
					URL:         u,
				}
				if err = g.UpsertImplementation(ctx, rec); err != nil {
					break
				}
			}
		case "has_part":
			// One level of nesting only: the top-level node's parts decode as
			// their own analyses, a part's parts do not.
			if depth == 0 {
				for _, e := range graph.AsList(v) {
					if sub, ok := graph.AsNode(e); ok {
						acc.subNodes = append(acc.subNodes, sub)
					}
				}
			}
		}
		if err != nil {
			return acc, err
		}
	}
	return acc, nil
}

// dataItems decodes the entries of a has_input or has_output property. Each
// entry becomes one DataItem, natural-keyed over every extracted field so the
// same table or figure set re-ingests onto the same row.
func (r *run) dataItems(ctx context.Context, g storage.Gateway, v any, ids []string) ([]string, error) {
	for _, e := range graph.AsList(v) {
		id, err := r.dataItem(ctx, g, e)
		if err != nil {
			return ids, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *run) dataItem(ctx context.Context, g storage.Gateway, e any) (string, error) {
	n, ok := graph.AsNode(e)
	if !ok {
		label := graph.AsString(e)
		if label == "" {
			return "", nil
		}
		rec := models.DataItem{ID: util.StableHash("data_item", label, "", "", "", ""), Label: label}
		return rec.ID, g.UpsertDataItem(ctx, rec)
	}

	label := lookupString(n, "label")
	sourceURL := lookupString(n, "source_url")
	comments := lookupStrings(n, "comment")
	table := tableOf(lookup(n, "source_table"))

	characteristicID := ""
	if cn, ok := nodeOf(lookup(n, "has_characteristic")); ok {
		rows := lookupString(cn, "number_rows")
		cols := lookupString(cn, "number_columns")
		if rows != "" || cols != "" {
			ms := models.MatrixSize{
				ID:            util.StableHash("matrix_size", rows, cols),
				NumberRows:    rows,
				NumberColumns: cols,
			}
			if err := g.UpsertMatrixSize(ctx, ms); err != nil {
				return "", err
			}
			characteristicID = ms.ID
		}
	}

	var figureIDs []string
	for _, fe := range lookupList(n, "has_expression") {
		fn, ok := graph.AsNode(fe)
		if !ok {
			continue
		}
		fLabel := lookupString(fn, "label")
		fURL := lookupString(fn, "source_url")
		if fLabel == "" && fURL == "" {
			continue
		}
		fig := models.Figure{ID: util.StableHash("figure", fLabel, fURL), Label: fLabel, SourceURL: fURL}
		if err := g.UpsertFigure(ctx, fig); err != nil {
			return "", err
		}
		figureIDs = append(figureIDs, fig.ID)
	}

	var partIDs []string
	for _, pe := range lookupList(n, "has_part") {
		pn, ok := graph.AsNode(pe)
		if !ok {
			continue
		}
		pLabel := lookupString(pn, "label")
		pSee := lookupString(pn, "see_also")
		if pLabel == "" && pSee == "" {
			continue
		}
		part := models.DataItemComponent{ID: util.StableHash("data_item_component", pLabel, pSee), Label: pLabel, SeeAlso: pSee}
		if err := g.UpsertDataItemComponent(ctx, part); err != nil {
			return "", err
		}
		partIDs = append(partIDs, part.ID)
	}

	id := util.StableHash("data_item", label, sourceURL, canonicalJSON(table), strings.Join(comments, "|"), characteristicID)
	rec := models.DataItem{
		ID:               id,
		Label:            label,
		SourceURL:        sourceURL,
		SourceTable:      table,
		Comments:         comments,
		CharacteristicID: characteristicID,
		FigureIDs:        figureIDs,
		PartIDs:          partIDs,
	}
	return id, g.UpsertDataItem(ctx, rec)
}

// softwareMethods decodes the executes property: each entry is a software
// method whose part_of chain names its library and, below that, the software
// itself. The chain upserts bottom-up so each level can key over its parent.
func (r *run) softwareMethods(ctx context.Context, g storage.Gateway, v any, ids []string) ([]string, error) {
	for _, e := range graph.AsList(v) {
		mn, ok := graph.AsNode(e)
		if !ok {
			continue
		}
		id, err := r.softwareMethod(ctx, g, mn)
		if err != nil {
			return ids, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *run) softwareMethod(ctx context.Context, g storage.Gateway, mn graph.Node) (string, error) {
	libraryID := ""
	if ln, ok := nodeOf(lookup(mn, "part_of")); ok {
		softwareID := ""
		if sn, ok := nodeOf(lookup(ln, "part_of")); ok {
			sLabel := lookupString(sn, "label")
			sVer := lookupString(sn, "version_info")
			sURL := lookupString(sn, "has_support_url")
			if sLabel != "" || sVer != "" || sURL != "" {
				soft := models.Software{
					ID:          util.StableHash("software", sLabel, sVer, sURL),
					Label:       sLabel,
					VersionInfo: sVer,
					SupportURL:  sURL,
				}
				if err := g.UpsertSoftware(ctx, soft); err != nil {
					return "", err
				}
				softwareID = soft.ID
			}
		}
		lLabel := lookupString(ln, "label")
		lVer := lookupString(ln, "version_info")
		lURL := lookupString(ln, "has_support_url")
		if lLabel != "" || lVer != "" || lURL != "" || softwareID != "" {
			lib := models.SoftwareLibrary{
				ID:          util.StableHash("software_library", lLabel, lVer, lURL, softwareID),
				Label:       lLabel,
				VersionInfo: lVer,
				SupportURL:  lURL,
				SoftwareID:  softwareID,
			}
			if err := g.UpsertSoftwareLibrary(ctx, lib); err != nil {
				return "", err
			}
			libraryID = lib.ID
		}
	}

	label := lookupString(mn, "label")
	implementedBy := lookupString(mn, "is_implemented_by")
	supportURL := lookupString(mn, "has_support_url")
	if label == "" && implementedBy == "" && supportURL == "" && libraryID == "" {
		return "", nil
	}
	rec := models.SoftwareMethod{
		ID:            util.StableHash("software_method", label, implementedBy, supportURL, libraryID),
		Label:         label,
		ImplementedBy: implementedBy,
		SupportURL:    supportURL,
		LibraryID:     libraryID,
	}
	return rec.ID, g.UpsertSoftwareMethod(ctx, rec)
}

func (r *run) sharedTypes(ctx context.Context, g storage.Gateway, v any, typ string, ids []string) ([]string, error) {
	for _, e := range graph.AsList(v) {
		id, err := r.sharedTypeEntry(ctx, g, e, typ)
		if err != nil {
			return ids, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *run) singleSharedType(ctx context.Context, g storage.Gateway, v any, typ string) (string, error) {
	entries := graph.AsList(v)
	if len(entries) == 0 {
		return "", nil
	}
	return r.sharedTypeEntry(ctx, g, entries[0], typ)
}

func (r *run) sharedTypeEntry(ctx context.Context, g storage.Gateway, e any, typ string) (string, error) {
	var label, seeAlso string
	if n, ok := graph.AsNode(e); ok {
		label = lookupString(n, "label")
		seeAlso = lookupString(n, "see_also")
	} else {
		label = graph.AsString(e)
	}
	if label == "" && seeAlso == "" {
		return "", nil
	}
	rec := models.SharedType{
		ID:      util.StableHash("shared_type", label, seeAlso, typ),
		Label:   label,
		SeeAlso: seeAlso,
		Type:    typ,
	}
	return rec.ID, g.UpsertSharedType(ctx, rec)
}

func tableOf(v any, ok bool) map[string]any {
	if !ok {
		return nil
	}
	if n, ok := graph.AsNode(v); ok {
		return map[string]any(n)
	}
	return nil
}

// canonicalJSON renders a table deterministically for hashing; Go's JSON
// encoder already sorts map keys.
func canonicalJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
