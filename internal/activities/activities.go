package activities

import (
	"context"
	"path/filepath"
	"time"

	"sciflow/internal/config"
	"sciflow/internal/files"
	"sciflow/internal/ingest"
	"sciflow/internal/models"
	"sciflow/internal/reconstruct"
	"sciflow/internal/registry"
	"sciflow/internal/sources"
	"sciflow/internal/storage"
	"sciflow/internal/util"
)

type Activities struct {
	cfg     config.Config
	store   storage.Gateway
	runRepo *storage.RunRepo
	source  sources.DocumentSource
	engine  *ingest.Engine
	recon   *reconstruct.Reconstructor
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := storage.NewPostgres(ctx, db)
	if err != nil {
		return nil, err
	}

	reg := registry.New(cfg.RegistryBaseURL, time.Duration(cfg.SchemaTTLDays)*24*time.Hour,
		storage.NewSchemaRepo(db), registry.Options{
			Timeout:  time.Duration(cfg.RegistryTimeoutSec) * time.Second,
			RetryMax: cfg.RegistryRetries,
			Audit:    storage.NewRegistryAuditRepo(db),
		})
	source := sources.NewHTTPSource(time.Duration(cfg.SourceTimeoutSec) * time.Second)
	var doi sources.DOIResolver
	if cfg.DOILookupURL != "" {
		doi = sources.NewHTTPDOIResolver(cfg.DOILookupURL, 0)
	}
	return &Activities{
		cfg:     cfg,
		store:   store,
		runRepo: storage.NewRunRepo(db),
		source:  source,
		engine:  ingest.New(store, reg, source, doi, nil),
		recon:   reconstruct.New(store, reg, files.NewResolver(cfg.FileDomain), nil),
	}, nil
}

func (a *Activities) FetchGraphActivity(ctx context.Context, in FetchGraphInput) (FetchGraphOutput, error) {
	nodes, err := a.source.LoadGraph(ctx, in.GraphURL)
	if err != nil {
		return FetchGraphOutput{}, err
	}
	return FetchGraphOutput{Nodes: nodes}, nil
}

func (a *Activities) IngestDocumentActivity(ctx context.Context, in IngestDocumentInput) (IngestDocumentOutput, error) {
	var (
		res ingest.Result
		err error
	)
	if len(in.Nodes) > 0 {
		res, err = a.engine.Ingest(ctx, in.Nodes, in.JSONFiles)
	} else {
		res, err = a.engine.IngestURL(ctx, in.GraphURL, in.JSONFiles)
	}
	if err != nil {
		return IngestDocumentOutput{}, err
	}
	return IngestDocumentOutput{ArticleID: res.ArticleID, StatementIDs: res.StatementIDs}, nil
}

func (a *Activities) UpdateRunStatusActivity(ctx context.Context, in UpdateRunStatusInput) error {
	return a.runRepo.UpsertRun(ctx, models.IngestRun{
		RunID:          in.RunID,
		HarvestID:      in.HarvestID,
		GraphURL:       in.GraphURL,
		ArticleID:      in.ArticleID,
		Status:         in.Status,
		StatementCount: in.StatementCount,
		FailReason:     in.FailReason,
	})
}

func (a *Activities) WriteRunManifestActivity(ctx context.Context, in WriteRunManifestInput) (WriteRunManifestOutput, error) {
	_ = ctx
	path := filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID, "manifest.json")
	if err := util.WriteJSONAtomic(path, in.Manifest); err != nil {
		return WriteRunManifestOutput{}, err
	}
	return WriteRunManifestOutput{Path: path}, nil
}

func (a *Activities) WriteHarvestSummaryActivity(ctx context.Context, in WriteHarvestSummaryInput) error {
	_ = ctx
	outPath := filepath.Join(a.cfg.DataOutRoot, "harvests", in.HarvestID, "summary.json")
	return util.WriteJSONAtomic(outPath, in.Summary)
}

// WriteArticleArtifactsActivity materializes the ingested article and the
// reconstructed view of each of its statements as JSON artifacts.
func (a *Activities) WriteArticleArtifactsActivity(ctx context.Context, in WriteArticleArtifactsInput) (WriteArticleArtifactsOutput, error) {
	article, err := a.store.GetArticle(ctx, in.ArticleID)
	if err != nil {
		return WriteArticleArtifactsOutput{}, err
	}
	base := filepath.Join(a.cfg.DataOutRoot, "articles", in.ArticleID)
	if err := util.EnsureDir(base); err != nil {
		return WriteArticleArtifactsOutput{}, err
	}
	if err := util.WriteJSONAtomic(filepath.Join(base, "article.json"), article); err != nil {
		return WriteArticleArtifactsOutput{}, err
	}
	for _, stmtID := range in.StatementIDs {
		rec, err := a.recon.Reconstruct(ctx, stmtID)
		if err != nil {
			return WriteArticleArtifactsOutput{}, err
		}
		out := util.SafeJoin(filepath.Join(base, "statements"), stmtID+".json")
		if err := util.WriteJSONAtomic(out, rec); err != nil {
			return WriteArticleArtifactsOutput{}, err
		}
	}
	return WriteArticleArtifactsOutput{Path: base}, nil
}
