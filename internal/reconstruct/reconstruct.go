package reconstruct

import (
	"context"
	"log/slog"

	"sciflow/internal/files"
	"sciflow/internal/models"
	"sciflow/internal/registry"
	"sciflow/internal/storage"
)

// Reconstruction is the nested read shape of one statement: the analysis
// expanded back out of its normalized records, the implementation links, the
// statement's components, and the top-level type description.
type Reconstruction struct {
	HasPart         *AnalysisView   `json:"has_part,omitempty"`
	IsImplementedBy []string        `json:"is_implemented_by,omitempty"`
	Components      []ComponentView `json:"components,omitempty"`
	Type            *TypeView       `json:"type,omitempty"`
}

type TypeView struct {
	Label       string `json:"label,omitempty"`
	Type        string `json:"type,omitempty"`
	SchemaType  string `json:"schema_type,omitempty"`
	Description string `json:"description,omitempty"`
}

type AnalysisView struct {
	Label        string         `json:"label,omitempty"`
	SeeAlso      string         `json:"see_also,omitempty"`
	Executes     []MethodView   `json:"executes,omitempty"`
	HasInputs    []DataItemView `json:"has_input,omitempty"`
	HasOutputs   []DataItemView `json:"has_output,omitempty"`
	Targets      []SharedView   `json:"targets,omitempty"`
	Level        []SharedView   `json:"level,omitempty"`
	Evaluates    *SharedView    `json:"evaluates,omitempty"`
	EvaluatesFor *SharedView    `json:"evaluates_for,omitempty"`
}

// MethodView nests its provenance the way documents spell it: part_of is a
// one-element list of libraries, each library's part_of the software itself.
type MethodView struct {
	PartOf          []LibraryView `json:"part_of,omitempty"`
	Label           string        `json:"label,omitempty"`
	IsImplementedBy string        `json:"is_implemented_by,omitempty"`
	HasSupportURL   string        `json:"has_support_url,omitempty"`
}

type LibraryView struct {
	Label         string        `json:"label,omitempty"`
	VersionInfo   string        `json:"version_info,omitempty"`
	HasSupportURL string        `json:"has_support_url,omitempty"`
	PartOf        *SoftwareView `json:"part_of,omitempty"`
}

type SoftwareView struct {
	Label         string `json:"label,omitempty"`
	VersionInfo   string `json:"version_info,omitempty"`
	HasSupportURL string `json:"has_support_url,omitempty"`
}

type DataItemView struct {
	Label             string          `json:"label,omitempty"`
	SourceURL         string          `json:"source_url,omitempty"`
	Comment           []string        `json:"comment,omitempty"`
	SourceTable       map[string]any  `json:"source_table,omitempty"`
	HasCharacteristic *MatrixSizeView `json:"has_characteristic,omitempty"`
	HasExpressions    []FigureView    `json:"has_expressions,omitempty"`
	HasParts          []PartView      `json:"has_parts,omitempty"`
}

type MatrixSizeView struct {
	NumberRows    string `json:"number_rows,omitempty"`
	NumberColumns string `json:"number_columns,omitempty"`
}

type FigureView struct {
	Label     string `json:"label,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

type PartView struct {
	Label   string `json:"label,omitempty"`
	SeeAlso string `json:"see_also,omitempty"`
}

type SharedView struct {
	Label   string `json:"label,omitempty"`
	SeeAlso string `json:"see_also,omitempty"`
}

type ComponentView struct {
	Label            string   `json:"label"`
	Matrix           string   `json:"matrix,omitempty"`
	ObjectOfInterest string   `json:"object_of_interest,omitempty"`
	Property         string   `json:"property,omitempty"`
	Units            []string `json:"units,omitempty"`
}

// TypeInformer re-derives a part's type description when the stored row
// lacks one. Optional; reads work without it.
type TypeInformer interface {
	GetTypeInfo(ctx context.Context, typeID string) (registry.TypeInfo, error)
}

// Reconstructor rebuilds the nested statement shape from stored records.
// Sub-labels were persisted at ingestion time; the registry is consulted only
// to fill a part description the store does not carry, and file references
// get re-resolved to absolute download URLs.
type Reconstructor struct {
	store storage.Gateway
	reg   TypeInformer
	files files.Resolver
	log   *slog.Logger
}

func New(store storage.Gateway, reg TypeInformer, resolver files.Resolver, log *slog.Logger) *Reconstructor {
	if log == nil {
		log = slog.Default()
	}
	return &Reconstructor{store: store, reg: reg, files: resolver, log: log}
}

// Reconstruct returns the nested view of one statement. A missing statement
// propagates as a not-found error; missing optional sub-entities leave their
// fields empty instead of failing the read.
func (r *Reconstructor) Reconstruct(ctx context.Context, statementID string) (Reconstruction, error) {
	st, err := r.store.GetStatement(ctx, statementID)
	if err != nil {
		return Reconstruction{}, err
	}

	var out Reconstruction

	impls, err := r.store.ListImplementations(ctx, statementID)
	if err != nil {
		return Reconstruction{}, err
	}
	for _, im := range impls {
		out.IsImplementedBy = append(out.IsImplementedBy, im.URL)
	}

	parts, err := r.store.ListHasParts(ctx, statementID)
	if err != nil {
		return Reconstruction{}, err
	}
	if len(parts) > 0 {
		// The first row is the top-level type description; deeper rows
		// belong to nested parts and carry no separate read shape.
		out.Type = &TypeView{
			Label:       parts[0].Label,
			Type:        parts[0].Type,
			SchemaType:  parts[0].SchemaType,
			Description: parts[0].Description,
		}
		r.refillType(ctx, out.Type)
	}

	analyses, err := r.store.ListAnalyses(ctx, statementID)
	if err != nil {
		return Reconstruction{}, err
	}
	if len(analyses) > 0 {
		out.HasPart = r.analysisView(ctx, analyses[0])
	}

	out.Components = r.componentViews(ctx, st.ComponentIDs)
	return out, nil
}

// refillType asks the registry for a description when the stored row has
// none (the schema carried no description at ingestion time, or gained one
// since). Lookup failures leave the view as stored.
func (r *Reconstructor) refillType(ctx context.Context, tv *TypeView) {
	if r.reg == nil || tv.SchemaType == "" || tv.Description != "" {
		return
	}
	info, err := r.reg.GetTypeInfo(ctx, tv.SchemaType)
	if err != nil {
		r.log.Warn("type description lookup failed during reconstruction", "schema_type", tv.SchemaType, "err", err)
		return
	}
	tv.Description = info.Description
	if tv.Type == "" {
		tv.Type = info.Name
	}
}

func (r *Reconstructor) analysisView(ctx context.Context, rec models.Analysis) *AnalysisView {
	view := &AnalysisView{Label: rec.Label, SeeAlso: rec.SeeAlso}

	for _, id := range rec.MethodIDs {
		if mv, ok := r.methodView(ctx, id); ok {
			view.Executes = append(view.Executes, mv)
		}
	}
	for _, id := range rec.InputIDs {
		if dv, ok := r.dataItemView(ctx, id); ok {
			view.HasInputs = append(view.HasInputs, dv)
		}
	}
	for _, id := range rec.OutputIDs {
		if dv, ok := r.dataItemView(ctx, id); ok {
			view.HasOutputs = append(view.HasOutputs, dv)
		}
	}
	for _, id := range rec.TargetIDs {
		if sv, ok := r.sharedView(ctx, id); ok {
			view.Targets = append(view.Targets, sv)
		}
	}
	for _, id := range rec.LevelIDs {
		if sv, ok := r.sharedView(ctx, id); ok {
			view.Level = append(view.Level, sv)
		}
	}
	if rec.EvaluateID != "" {
		if sv, ok := r.sharedView(ctx, rec.EvaluateID); ok {
			view.Evaluates = &sv
		}
	}
	if rec.EvaluatesForID != "" {
		if sv, ok := r.sharedView(ctx, rec.EvaluatesForID); ok {
			view.EvaluatesFor = &sv
		}
	}
	return view
}

func (r *Reconstructor) methodView(ctx context.Context, id string) (MethodView, bool) {
	m, err := r.store.GetSoftwareMethod(ctx, id)
	if err != nil {
		r.log.Warn("software method missing during reconstruction", "id", id, "err", err)
		return MethodView{}, false
	}
	mv := MethodView{Label: m.Label, IsImplementedBy: m.ImplementedBy, HasSupportURL: m.SupportURL}
	if m.LibraryID != "" {
		if l, err := r.store.GetSoftwareLibrary(ctx, m.LibraryID); err == nil {
			lv := LibraryView{Label: l.Label, VersionInfo: l.VersionInfo, HasSupportURL: l.SupportURL}
			if l.SoftwareID != "" {
				if s, err := r.store.GetSoftware(ctx, l.SoftwareID); err == nil {
					lv.PartOf = &SoftwareView{Label: s.Label, VersionInfo: s.VersionInfo, HasSupportURL: s.SupportURL}
				}
			}
			mv.PartOf = []LibraryView{lv}
		}
	}
	return mv, true
}

func (r *Reconstructor) dataItemView(ctx context.Context, id string) (DataItemView, bool) {
	d, err := r.store.GetDataItem(ctx, id)
	if err != nil {
		r.log.Warn("data item missing during reconstruction", "id", id, "err", err)
		return DataItemView{}, false
	}
	dv := DataItemView{
		Label:       d.Label,
		SourceURL:   r.files.DownloadURL(d.SourceURL),
		Comment:     d.Comments,
		SourceTable: d.SourceTable,
	}
	if d.CharacteristicID != "" {
		if ms, err := r.store.GetMatrixSize(ctx, d.CharacteristicID); err == nil {
			dv.HasCharacteristic = &MatrixSizeView{NumberRows: ms.NumberRows, NumberColumns: ms.NumberColumns}
		}
	}
	for _, fid := range d.FigureIDs {
		f, err := r.store.GetFigure(ctx, fid)
		if err != nil {
			continue
		}
		dv.HasExpressions = append(dv.HasExpressions, FigureView{Label: f.Label, SourceURL: r.files.DownloadURL(f.SourceURL)})
	}
	for _, pid := range d.PartIDs {
		p, err := r.store.GetDataItemComponent(ctx, pid)
		if err != nil {
			continue
		}
		dv.HasParts = append(dv.HasParts, PartView{Label: p.Label, SeeAlso: p.SeeAlso})
	}
	return dv, true
}

func (r *Reconstructor) sharedView(ctx context.Context, id string) (SharedView, bool) {
	s, err := r.store.GetSharedType(ctx, id)
	if err != nil {
		r.log.Warn("shared type missing during reconstruction", "id", id, "err", err)
		return SharedView{}, false
	}
	return SharedView{Label: s.Label, SeeAlso: s.SeeAlso}, true
}

func (r *Reconstructor) componentViews(ctx context.Context, ids []string) []ComponentView {
	var out []ComponentView
	for _, id := range ids {
		c, err := r.store.GetComponent(ctx, id)
		if err != nil {
			r.log.Warn("component missing during reconstruction", "id", id, "err", err)
			continue
		}
		cv := ComponentView{Label: c.Label}
		if c.MatrixID != "" {
			if m, err := r.store.GetMatrix(ctx, c.MatrixID); err == nil {
				cv.Matrix = m.Label
			}
		}
		if c.ObjectOfInterestID != "" {
			if o, err := r.store.GetObjectOfInterest(ctx, c.ObjectOfInterestID); err == nil {
				cv.ObjectOfInterest = o.Label
			}
		}
		if c.PropertyID != "" {
			if p, err := r.store.GetProperty(ctx, c.PropertyID); err == nil {
				cv.Property = p.Label
			}
		}
		for _, uid := range c.UnitIDs {
			if u, err := r.store.GetUnit(ctx, uid); err == nil {
				cv.Units = append(cv.Units, u.Label)
			}
		}
		out = append(out, cv)
	}
	return out
}
