package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sciflow/internal/models"
	"sciflow/internal/util"
)

// RunRepo tracks ingestion runs for the progress API.
type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) UpsertRun(ctx context.Context, in models.IngestRun) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO ingest_runs (run_id, harvest_id, graph_url, article_id, status, statement_count, fail_reason, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (run_id) DO UPDATE SET
  harvest_id = COALESCE(NULLIF(EXCLUDED.harvest_id, ''), ingest_runs.harvest_id),
  graph_url = COALESCE(NULLIF(EXCLUDED.graph_url, ''), ingest_runs.graph_url),
  article_id = COALESCE(NULLIF(EXCLUDED.article_id, ''), ingest_runs.article_id),
  status = EXCLUDED.status,
  statement_count = EXCLUDED.statement_count,
  fail_reason = EXCLUDED.fail_reason,
  updated_at = NOW()`,
		in.RunID, in.HarvestID, in.GraphURL, in.ArticleID, in.Status, in.StatementCount, util.SanitizeText(in.FailReason))
	if err != nil {
		return fmt.Errorf("upsert ingest run: %w", err)
	}
	return nil
}

func (r *RunRepo) GetRun(ctx context.Context, runID string) (models.IngestRun, error) {
	rec := models.IngestRun{RunID: runID}
	err := r.db.Pool.QueryRow(ctx, `
SELECT harvest_id, graph_url, article_id, status, statement_count, fail_reason, created_at, updated_at
FROM ingest_runs WHERE run_id = $1`, runID).
		Scan(&rec.HarvestID, &rec.GraphURL, &rec.ArticleID, &rec.Status, &rec.StatementCount, &rec.FailReason, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IngestRun{}, fmt.Errorf("ingest run %s: %w", runID, util.ErrNotFound)
	}
	if err != nil {
		return models.IngestRun{}, fmt.Errorf("get ingest run %s: %w", runID, err)
	}
	return rec, nil
}

func (r *RunRepo) ListRunsByHarvest(ctx context.Context, harvestID string) ([]models.IngestRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT run_id, harvest_id, graph_url, article_id, status, statement_count, fail_reason, created_at, updated_at
FROM ingest_runs WHERE harvest_id = $1 ORDER BY created_at, run_id`, harvestID)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close()
	var out []models.IngestRun
	for rows.Next() {
		var rec models.IngestRun
		if err := rows.Scan(&rec.RunID, &rec.HarvestID, &rec.GraphURL, &rec.ArticleID, &rec.Status,
			&rec.StatementCount, &rec.FailReason, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest runs: %w", err)
	}
	return out, nil
}
