package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sciflow/internal/models"
	"sciflow/internal/util"
)

// Memory is an in-process Gateway used by tests and dry runs. It mirrors the
// Postgres merge semantics (empty incoming scalars keep the stored value) but
// not transactionality; callers relying on rollback must validate before
// writing, which the ingestion engine does.
type Memory struct {
	mu sync.RWMutex

	researchFields map[string]models.ResearchField
	authors        map[string]models.Author
	units          map[string]models.Unit
	oois           map[string]models.ObjectOfInterest
	matrices       map[string]models.Matrix
	properties     map[string]models.Property
	constraints    map[string]models.Constraint
	operations     map[string]models.Operation
	components     map[string]models.Component
	publishers     map[string]models.Publisher
	journals       map[string]models.Journal
	conferences    map[string]models.Conference
	concepts       map[string]models.Concept

	articles     map[string]models.Article
	articleOrder []string

	statements     map[string]models.Statement
	stmtsByArticle map[string][]string

	implementations map[string]models.Implementation
	implsByStmt     map[string][]string
	hasParts        map[string]models.HasPart
	hasPartsByStmt  map[string][]string

	matrixSizes    map[string]models.MatrixSize
	figures        map[string]models.Figure
	dataItemParts  map[string]models.DataItemComponent
	dataItems      map[string]models.DataItem
	software       map[string]models.Software
	libraries      map[string]models.SoftwareLibrary
	methods        map[string]models.SoftwareMethod
	sharedTypes    map[string]models.SharedType
	analyses       map[string]models.Analysis
	analysesByStmt map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		researchFields:  make(map[string]models.ResearchField),
		authors:         make(map[string]models.Author),
		units:           make(map[string]models.Unit),
		oois:            make(map[string]models.ObjectOfInterest),
		matrices:        make(map[string]models.Matrix),
		properties:      make(map[string]models.Property),
		constraints:     make(map[string]models.Constraint),
		operations:      make(map[string]models.Operation),
		components:      make(map[string]models.Component),
		publishers:      make(map[string]models.Publisher),
		journals:        make(map[string]models.Journal),
		conferences:     make(map[string]models.Conference),
		concepts:        make(map[string]models.Concept),
		articles:        make(map[string]models.Article),
		statements:      make(map[string]models.Statement),
		stmtsByArticle:  make(map[string][]string),
		implementations: make(map[string]models.Implementation),
		implsByStmt:     make(map[string][]string),
		hasParts:        make(map[string]models.HasPart),
		hasPartsByStmt:  make(map[string][]string),
		matrixSizes:     make(map[string]models.MatrixSize),
		figures:         make(map[string]models.Figure),
		dataItemParts:   make(map[string]models.DataItemComponent),
		dataItems:       make(map[string]models.DataItem),
		software:        make(map[string]models.Software),
		libraries:       make(map[string]models.SoftwareLibrary),
		methods:         make(map[string]models.SoftwareMethod),
		sharedTypes:     make(map[string]models.SharedType),
		analyses:        make(map[string]models.Analysis),
		analysesByStmt:  make(map[string][]string),
	}
}

func (m *Memory) Transact(_ context.Context, fn func(Gateway) error) error {
	return fn(m)
}

func missing(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, util.ErrNotFound)
}

// merge keeps the stored value when the incoming one is empty, matching the
// COALESCE(NULLIF(...)) upserts on the Postgres side.
func merge(stored, incoming string) string {
	if incoming == "" {
		return stored
	}
	return incoming
}

func appendOnce(order []string, id string) []string {
	for _, x := range order {
		if x == id {
			return order
		}
	}
	return append(order, id)
}

func (m *Memory) UpsertResearchField(_ context.Context, rec models.ResearchField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.researchFields[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.researchFields[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertAuthor(_ context.Context, rec models.Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.authors[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.authors[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertUnit(_ context.Context, rec models.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.units[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.units[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertObjectOfInterest(_ context.Context, rec models.ObjectOfInterest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.oois[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.oois[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertMatrix(_ context.Context, rec models.Matrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.matrices[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.matrices[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertProperty(_ context.Context, rec models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.properties[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.properties[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertConstraint(_ context.Context, rec models.Constraint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.constraints[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.constraints[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertOperation(_ context.Context, rec models.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.operations[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.operations[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertPublisher(_ context.Context, rec models.Publisher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.publishers[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.publishers[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertComponent(_ context.Context, rec models.Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.components[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	m.components[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertJournal(_ context.Context, rec models.Journal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.journals[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.PublisherID = merge(old.PublisherID, rec.PublisherID)
	m.journals[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertConference(_ context.Context, rec models.Conference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.conferences[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.PublisherID = merge(old.PublisherID, rec.PublisherID)
	m.conferences[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertConcept(_ context.Context, rec models.Concept) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.concepts[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.Definition = merge(old.Definition, util.SanitizeText(rec.Definition))
	m.concepts[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertArticle(_ context.Context, rec models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, existed := m.articles[rec.ID]
	rec.Name = merge(old.Name, util.SanitizeText(rec.Name))
	rec.DOI = merge(old.DOI, rec.DOI)
	rec.RebornDOI = merge(old.RebornDOI, rec.RebornDOI)
	if rec.YearPublished == nil {
		rec.YearPublished = old.YearPublished
	}
	if existed {
		rec.CreatedAt = old.CreatedAt
	} else {
		rec.CreatedAt = time.Now().UTC()
		m.articleOrder = append(m.articleOrder, rec.ID)
	}
	rec.UpdatedAt = time.Now().UTC()
	m.articles[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertStatement(_ context.Context, rec models.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, existed := m.statements[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	if existed {
		rec.CreatedAt = old.CreatedAt
	} else {
		rec.CreatedAt = time.Now().UTC()
		m.stmtsByArticle[rec.ArticleID] = appendOnce(m.stmtsByArticle[rec.ArticleID], rec.ID)
	}
	rec.UpdatedAt = time.Now().UTC()
	m.statements[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertImplementation(_ context.Context, rec models.Implementation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.implementations[rec.ID] = rec
	m.implsByStmt[rec.StatementID] = appendOnce(m.implsByStmt[rec.StatementID], rec.ID)
	return nil
}

func (m *Memory) UpsertHasPart(_ context.Context, rec models.HasPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.hasParts[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.Type = merge(old.Type, rec.Type)
	rec.SchemaType = merge(old.SchemaType, rec.SchemaType)
	rec.Description = merge(old.Description, util.SanitizeText(rec.Description))
	m.hasParts[rec.ID] = rec
	m.hasPartsByStmt[rec.StatementID] = appendOnce(m.hasPartsByStmt[rec.StatementID], rec.ID)
	return nil
}

func (m *Memory) UpsertMatrixSize(_ context.Context, rec models.MatrixSize) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matrixSizes[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertFigure(_ context.Context, rec models.Figure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.figures[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.SourceURL = merge(old.SourceURL, rec.SourceURL)
	m.figures[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertDataItemComponent(_ context.Context, rec models.DataItemComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.dataItemParts[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.SeeAlso = merge(old.SeeAlso, rec.SeeAlso)
	m.dataItemParts[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertDataItem(_ context.Context, rec models.DataItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.dataItems[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.SourceURL = merge(old.SourceURL, rec.SourceURL)
	m.dataItems[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertSoftware(_ context.Context, rec models.Software) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.software[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.VersionInfo = merge(old.VersionInfo, rec.VersionInfo)
	rec.SupportURL = merge(old.SupportURL, rec.SupportURL)
	m.software[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertSoftwareLibrary(_ context.Context, rec models.SoftwareLibrary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.libraries[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.VersionInfo = merge(old.VersionInfo, rec.VersionInfo)
	rec.SupportURL = merge(old.SupportURL, rec.SupportURL)
	rec.SoftwareID = merge(old.SoftwareID, rec.SoftwareID)
	m.libraries[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertSoftwareMethod(_ context.Context, rec models.SoftwareMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.methods[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.ImplementedBy = merge(old.ImplementedBy, rec.ImplementedBy)
	rec.SupportURL = merge(old.SupportURL, rec.SupportURL)
	rec.LibraryID = merge(old.LibraryID, rec.LibraryID)
	m.methods[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertSharedType(_ context.Context, rec models.SharedType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.sharedTypes[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.SeeAlso = merge(old.SeeAlso, rec.SeeAlso)
	m.sharedTypes[rec.ID] = rec
	return nil
}

func (m *Memory) UpsertAnalysis(_ context.Context, rec models.Analysis) error {
	rec.ApplyCapabilities()
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.analyses[rec.ID]
	rec.Label = merge(old.Label, util.SanitizeText(rec.Label))
	rec.SeeAlso = merge(old.SeeAlso, rec.SeeAlso)
	m.analyses[rec.ID] = rec
	m.analysesByStmt[rec.StatementID] = appendOnce(m.analysesByStmt[rec.StatementID], rec.ID)
	return nil
}

func (m *Memory) GetArticle(_ context.Context, id string) (models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.articles[id]
	if !ok {
		return models.Article{}, missing("article", id)
	}
	return rec, nil
}

func (m *Memory) ListArticles(_ context.Context) ([]models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Article, 0, len(m.articleOrder))
	for _, id := range m.articleOrder {
		out = append(out, m.articles[id])
	}
	return out, nil
}

func (m *Memory) GetStatement(_ context.Context, id string) (models.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.statements[id]
	if !ok {
		return models.Statement{}, missing("statement", id)
	}
	return rec, nil
}

func (m *Memory) ListStatementsByArticle(_ context.Context, articleID string) ([]models.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.stmtsByArticle[articleID]
	out := make([]models.Statement, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.statements[id])
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Order > out[j].Order; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

func (m *Memory) ListHasParts(_ context.Context, statementID string) ([]models.HasPart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.hasPartsByStmt[statementID]
	out := make([]models.HasPart, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.hasParts[id])
	}
	return out, nil
}

func (m *Memory) ListImplementations(_ context.Context, statementID string) ([]models.Implementation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.implsByStmt[statementID]
	out := make([]models.Implementation, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.implementations[id])
	}
	return out, nil
}

func (m *Memory) ListAnalyses(_ context.Context, statementID string) ([]models.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.analysesByStmt[statementID]
	out := make([]models.Analysis, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.analyses[id])
	}
	return out, nil
}

func (m *Memory) GetComponent(_ context.Context, id string) (models.Component, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.components[id]
	if !ok {
		return models.Component{}, missing("component", id)
	}
	return rec, nil
}

func (m *Memory) GetUnit(_ context.Context, id string) (models.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.units[id]
	if !ok {
		return models.Unit{}, missing("unit", id)
	}
	return rec, nil
}

func (m *Memory) GetMatrix(_ context.Context, id string) (models.Matrix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.matrices[id]
	if !ok {
		return models.Matrix{}, missing("matrix", id)
	}
	return rec, nil
}

func (m *Memory) GetObjectOfInterest(_ context.Context, id string) (models.ObjectOfInterest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.oois[id]
	if !ok {
		return models.ObjectOfInterest{}, missing("object of interest", id)
	}
	return rec, nil
}

func (m *Memory) GetProperty(_ context.Context, id string) (models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.properties[id]
	if !ok {
		return models.Property{}, missing("property", id)
	}
	return rec, nil
}

func (m *Memory) GetDataItem(_ context.Context, id string) (models.DataItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.dataItems[id]
	if !ok {
		return models.DataItem{}, missing("data item", id)
	}
	return rec, nil
}

func (m *Memory) GetFigure(_ context.Context, id string) (models.Figure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.figures[id]
	if !ok {
		return models.Figure{}, missing("figure", id)
	}
	return rec, nil
}

func (m *Memory) GetDataItemComponent(_ context.Context, id string) (models.DataItemComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.dataItemParts[id]
	if !ok {
		return models.DataItemComponent{}, missing("data item component", id)
	}
	return rec, nil
}

func (m *Memory) GetMatrixSize(_ context.Context, id string) (models.MatrixSize, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.matrixSizes[id]
	if !ok {
		return models.MatrixSize{}, missing("matrix size", id)
	}
	return rec, nil
}

func (m *Memory) GetSoftware(_ context.Context, id string) (models.Software, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.software[id]
	if !ok {
		return models.Software{}, missing("software", id)
	}
	return rec, nil
}

func (m *Memory) GetSoftwareLibrary(_ context.Context, id string) (models.SoftwareLibrary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.libraries[id]
	if !ok {
		return models.SoftwareLibrary{}, missing("software library", id)
	}
	return rec, nil
}

func (m *Memory) GetSoftwareMethod(_ context.Context, id string) (models.SoftwareMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.methods[id]
	if !ok {
		return models.SoftwareMethod{}, missing("software method", id)
	}
	return rec, nil
}

func (m *Memory) GetSharedType(_ context.Context, id string) (models.SharedType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sharedTypes[id]
	if !ok {
		return models.SharedType{}, missing("shared type", id)
	}
	return rec, nil
}
