package storage

import (
	"context"

	"sciflow/internal/models"
)

// Gateway is the persistence collaborator consumed by the ingestion engine
// and the reconstructor. Every upsert is idempotent by the record's natural
// key; link slices replace the stored set in order. Reads return
// util.ErrNotFound (wrapped) on a miss.
type Gateway interface {
	// Transact runs fn against a gateway bound to one transaction; fn's
	// error rolls everything back.
	Transact(ctx context.Context, fn func(Gateway) error) error

	UpsertResearchField(ctx context.Context, rec models.ResearchField) error
	UpsertAuthor(ctx context.Context, rec models.Author) error
	UpsertUnit(ctx context.Context, rec models.Unit) error
	UpsertObjectOfInterest(ctx context.Context, rec models.ObjectOfInterest) error
	UpsertMatrix(ctx context.Context, rec models.Matrix) error
	UpsertProperty(ctx context.Context, rec models.Property) error
	UpsertConstraint(ctx context.Context, rec models.Constraint) error
	UpsertOperation(ctx context.Context, rec models.Operation) error
	UpsertComponent(ctx context.Context, rec models.Component) error
	UpsertPublisher(ctx context.Context, rec models.Publisher) error
	UpsertJournal(ctx context.Context, rec models.Journal) error
	UpsertConference(ctx context.Context, rec models.Conference) error
	UpsertConcept(ctx context.Context, rec models.Concept) error
	UpsertArticle(ctx context.Context, rec models.Article) error
	UpsertStatement(ctx context.Context, rec models.Statement) error
	UpsertImplementation(ctx context.Context, rec models.Implementation) error
	UpsertHasPart(ctx context.Context, rec models.HasPart) error
	UpsertMatrixSize(ctx context.Context, rec models.MatrixSize) error
	UpsertFigure(ctx context.Context, rec models.Figure) error
	UpsertDataItemComponent(ctx context.Context, rec models.DataItemComponent) error
	UpsertDataItem(ctx context.Context, rec models.DataItem) error
	UpsertSoftware(ctx context.Context, rec models.Software) error
	UpsertSoftwareLibrary(ctx context.Context, rec models.SoftwareLibrary) error
	UpsertSoftwareMethod(ctx context.Context, rec models.SoftwareMethod) error
	UpsertSharedType(ctx context.Context, rec models.SharedType) error
	UpsertAnalysis(ctx context.Context, rec models.Analysis) error

	GetArticle(ctx context.Context, id string) (models.Article, error)
	ListArticles(ctx context.Context) ([]models.Article, error)
	GetStatement(ctx context.Context, id string) (models.Statement, error)
	ListStatementsByArticle(ctx context.Context, articleID string) ([]models.Statement, error)
	ListHasParts(ctx context.Context, statementID string) ([]models.HasPart, error)
	ListImplementations(ctx context.Context, statementID string) ([]models.Implementation, error)
	ListAnalyses(ctx context.Context, statementID string) ([]models.Analysis, error)
	GetComponent(ctx context.Context, id string) (models.Component, error)
	GetUnit(ctx context.Context, id string) (models.Unit, error)
	GetMatrix(ctx context.Context, id string) (models.Matrix, error)
	GetObjectOfInterest(ctx context.Context, id string) (models.ObjectOfInterest, error)
	GetProperty(ctx context.Context, id string) (models.Property, error)
	GetDataItem(ctx context.Context, id string) (models.DataItem, error)
	GetFigure(ctx context.Context, id string) (models.Figure, error)
	GetDataItemComponent(ctx context.Context, id string) (models.DataItemComponent, error)
	GetMatrixSize(ctx context.Context, id string) (models.MatrixSize, error)
	GetSoftware(ctx context.Context, id string) (models.Software, error)
	GetSoftwareLibrary(ctx context.Context, id string) (models.SoftwareLibrary, error)
	GetSoftwareMethod(ctx context.Context, id string) (models.SoftwareMethod, error)
	GetSharedType(ctx context.Context, id string) (models.SharedType, error)
}
