package models

import "time"

// Reference entities lifted from the flat part of a document graph. IDs are
// natural keys (node @id or a stable hash of the label) so re-ingesting the
// same document is an upsert, never a duplicate.

type ResearchField struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Author struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Unit struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type ObjectOfInterest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Matrix struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Property struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Constraint struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Operation struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Component covers the Component/Variable/Measure family: a labeled slot that
// may attach one matrix, one object of interest, one property and any number
// of units.
type Component struct {
	ID                 string   `json:"id"`
	Label              string   `json:"label"`
	MatrixID           string   `json:"matrix_id,omitempty"`
	ObjectOfInterestID string   `json:"object_of_interest_id,omitempty"`
	PropertyID         string   `json:"property_id,omitempty"`
	UnitIDs            []string `json:"unit_ids,omitempty"`
}

type Publisher struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Journal struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	PublisherID      string   `json:"publisher_id,omitempty"`
	ResearchFieldIDs []string `json:"research_field_ids,omitempty"`
}

type Conference struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	PublisherID      string   `json:"publisher_id,omitempty"`
	ResearchFieldIDs []string `json:"research_field_ids,omitempty"`
}

type Concept struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Definition  string   `json:"definition,omitempty"`
	SeeAlso     []string `json:"see_also,omitempty"`
	StringMatch []string `json:"string_match,omitempty"`
}

type Article struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	YearPublished    *int      `json:"year_published,omitempty"`
	DOI              string    `json:"doi,omitempty"`
	RebornDOI        string    `json:"reborn_doi,omitempty"`
	AuthorIDs        []string  `json:"author_ids,omitempty"`
	ConceptIDs       []string  `json:"concept_ids,omitempty"`
	ResearchFieldIDs []string  `json:"research_field_ids,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Statement is one supported claim of an article. Content keeps the fetched
// typed node verbatim; Order is the file node's position in the graph.
type Statement struct {
	ID           string         `json:"id"`
	ArticleID    string         `json:"article_id"`
	Label        string         `json:"label"`
	Order        int            `json:"order"`
	Content      map[string]any `json:"content,omitempty"`
	ComponentIDs []string       `json:"component_ids,omitempty"`
	ConceptIDs   []string       `json:"concept_ids,omitempty"`
	AuthorIDs    []string       `json:"author_ids,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Implementation struct {
	ID          string `json:"id"`
	StatementID string `json:"statement_id"`
	URL         string `json:"url"`
}

// HasPart is the top-level description of a statement's analysis block: the
// registry-reported type name plus the raw schema type it resolved from.
type HasPart struct {
	ID          string `json:"id"`
	StatementID string `json:"statement_id"`
	Label       string `json:"label,omitempty"`
	Type        string `json:"type,omitempty"`
	SchemaType  string `json:"schema_type,omitempty"`
	Description string `json:"description,omitempty"`
}

type MatrixSize struct {
	ID            string `json:"id"`
	NumberRows    string `json:"number_rows,omitempty"`
	NumberColumns string `json:"number_columns,omitempty"`
}

type Figure struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

type DataItemComponent struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	SeeAlso string `json:"see_also,omitempty"`
}

// DataItem is one input or output artifact of an analysis.
type DataItem struct {
	ID               string         `json:"id"`
	Label            string         `json:"label,omitempty"`
	SourceURL        string         `json:"source_url,omitempty"`
	SourceTable      map[string]any `json:"source_table,omitempty"`
	Comments         []string       `json:"comments,omitempty"`
	CharacteristicID string         `json:"characteristic_id,omitempty"`
	FigureIDs        []string       `json:"figure_ids,omitempty"`
	PartIDs          []string       `json:"part_ids,omitempty"`
}

// Software, SoftwareLibrary and SoftwareMethod form the part_of provenance
// chain: method -> library -> software.
type Software struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	VersionInfo string `json:"version_info,omitempty"`
	SupportURL  string `json:"has_support_url,omitempty"`
}

type SoftwareLibrary struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	VersionInfo string `json:"version_info,omitempty"`
	SupportURL  string `json:"has_support_url,omitempty"`
	SoftwareID  string `json:"software_id,omitempty"`
}

type SoftwareMethod struct {
	ID            string `json:"id"`
	Label         string `json:"label,omitempty"`
	ImplementedBy string `json:"is_implemented_by,omitempty"`
	SupportURL    string `json:"has_support_url,omitempty"`
	LibraryID     string `json:"library_id,omitempty"`
}

// SharedType is a loose labeled pointer reused for targets, levels and
// evaluation references; Type records which role a row was created for.
type SharedType struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	SeeAlso string `json:"see_also,omitempty"`
	Type    string `json:"type"`
}

// IngestRun tracks one document ingestion end to end, mirrored by the
// progress API when the workflow itself is no longer queryable.
type IngestRun struct {
	RunID          string    `json:"run_id"`
	HarvestID      string    `json:"harvest_id,omitempty"`
	GraphURL       string    `json:"graph_url,omitempty"`
	ArticleID      string    `json:"article_id,omitempty"`
	Status         string    `json:"status"`
	StatementCount int       `json:"statement_count"`
	FailReason     string    `json:"fail_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
