package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sciflow/internal/util"
)

// querier is satisfied by both pgxpool.Pool and pgx.Tx so every gateway
// method runs unchanged inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Gateway over pgx.
type Postgres struct {
	db *DB
	q  querier
}

var (
	schemaMu       sync.Mutex
	schemaPrepared bool
)

func NewPostgres(ctx context.Context, db *DB) (*Postgres, error) {
	p := &Postgres{db: db, q: db.Pool}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Transact(ctx context.Context, fn func(Gateway) error) error {
	if _, nested := p.q.(pgx.Tx); nested {
		return fn(p)
	}
	tx, err := p.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(&Postgres{db: p.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if schemaPrepared {
		return nil
	}

	// Self-healing schema: a fresh database works without a migration step.
	ddl := `
CREATE TABLE IF NOT EXISTS research_fields (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS authors (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS units (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS objects_of_interest (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS matrices (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS properties (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS constraints (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS operations (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE IF NOT EXISTS publishers (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');

CREATE TABLE IF NOT EXISTS components (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  matrix_id TEXT NOT NULL DEFAULT '',
  object_of_interest_id TEXT NOT NULL DEFAULT '',
  property_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS component_units (
  component_id TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
  unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (component_id, unit_id)
);

CREATE TABLE IF NOT EXISTS journals (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  publisher_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS journal_research_fields (
  journal_id TEXT NOT NULL REFERENCES journals(id) ON DELETE CASCADE,
  research_field_id TEXT NOT NULL REFERENCES research_fields(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (journal_id, research_field_id)
);
CREATE TABLE IF NOT EXISTS conferences (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  publisher_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS conference_research_fields (
  conference_id TEXT NOT NULL REFERENCES conferences(id) ON DELETE CASCADE,
  research_field_id TEXT NOT NULL REFERENCES research_fields(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (conference_id, research_field_id)
);

CREATE TABLE IF NOT EXISTS concepts (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  definition TEXT NOT NULL DEFAULT '',
  see_also TEXT[] NOT NULL DEFAULT '{}',
  string_match TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS articles (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  year_published INT,
  doi TEXT NOT NULL DEFAULT '',
  reborn_doi TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS article_authors (
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  author_id TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (article_id, author_id)
);
CREATE TABLE IF NOT EXISTS article_concepts (
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  concept_id TEXT NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (article_id, concept_id)
);
CREATE TABLE IF NOT EXISTS article_research_fields (
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  research_field_id TEXT NOT NULL REFERENCES research_fields(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (article_id, research_field_id)
);

CREATE TABLE IF NOT EXISTS statements (
  id TEXT PRIMARY KEY,
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  label TEXT NOT NULL DEFAULT '',
  ord INT NOT NULL DEFAULT 0,
  content JSONB NOT NULL DEFAULT 'null'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_statements_article ON statements(article_id, ord);
CREATE TABLE IF NOT EXISTS statement_components (
  statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
  component_id TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (statement_id, component_id)
);
CREATE TABLE IF NOT EXISTS statement_concepts (
  statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
  concept_id TEXT NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (statement_id, concept_id)
);
CREATE TABLE IF NOT EXISTS statement_authors (
  statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
  author_id TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (statement_id, author_id)
);

CREATE TABLE IF NOT EXISTS implementations (
  id TEXT PRIMARY KEY,
  statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
  url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_implementations_statement ON implementations(statement_id, created_at);
CREATE TABLE IF NOT EXISTS has_parts (
  id TEXT PRIMARY KEY,
  statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
  label TEXT NOT NULL DEFAULT '',
  type TEXT NOT NULL DEFAULT '',
  schema_type TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_has_parts_statement ON has_parts(statement_id, created_at);

CREATE TABLE IF NOT EXISTS matrix_sizes (
  id TEXT PRIMARY KEY,
  number_rows TEXT NOT NULL DEFAULT '',
  number_columns TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS figures (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  source_url TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS data_item_components (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  see_also TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS data_items (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  source_url TEXT NOT NULL DEFAULT '',
  source_table JSONB NOT NULL DEFAULT 'null'::jsonb,
  comments TEXT[] NOT NULL DEFAULT '{}',
  characteristic_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS data_item_figures (
  data_item_id TEXT NOT NULL REFERENCES data_items(id) ON DELETE CASCADE,
  figure_id TEXT NOT NULL REFERENCES figures(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (data_item_id, figure_id)
);
CREATE TABLE IF NOT EXISTS data_item_parts (
  data_item_id TEXT NOT NULL REFERENCES data_items(id) ON DELETE CASCADE,
  part_id TEXT NOT NULL REFERENCES data_item_components(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (data_item_id, part_id)
);

CREATE TABLE IF NOT EXISTS software (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  version_info TEXT NOT NULL DEFAULT '',
  support_url TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS software_libraries (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  version_info TEXT NOT NULL DEFAULT '',
  support_url TEXT NOT NULL DEFAULT '',
  software_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS software_methods (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  implemented_by TEXT NOT NULL DEFAULT '',
  support_url TEXT NOT NULL DEFAULT '',
  library_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS shared_types (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL DEFAULT '',
  see_also TEXT NOT NULL DEFAULT '',
  type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS analyses (
  id TEXT PRIMARY KEY,
  statement_id TEXT NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
  kind TEXT NOT NULL CHECK (kind IN (
    'data_preprocessing','descriptive_statistics','algorithm_evaluation',
    'multilevel_analysis','correlation_analysis','group_comparison',
    'regression_analysis','class_prediction','class_discovery','factor_analysis')),
  label TEXT NOT NULL DEFAULT '',
  see_also TEXT NOT NULL DEFAULT '',
  evaluate_id TEXT NOT NULL DEFAULT '',
  evaluates_for_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_analyses_statement ON analyses(statement_id, created_at);
CREATE TABLE IF NOT EXISTS analysis_methods (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  method_id TEXT NOT NULL REFERENCES software_methods(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (analysis_id, method_id)
);
CREATE TABLE IF NOT EXISTS analysis_inputs (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  data_item_id TEXT NOT NULL REFERENCES data_items(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (analysis_id, data_item_id)
);
CREATE TABLE IF NOT EXISTS analysis_outputs (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  data_item_id TEXT NOT NULL REFERENCES data_items(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (analysis_id, data_item_id)
);
CREATE TABLE IF NOT EXISTS analysis_targets (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  shared_type_id TEXT NOT NULL REFERENCES shared_types(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (analysis_id, shared_type_id)
);
CREATE TABLE IF NOT EXISTS analysis_levels (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  shared_type_id TEXT NOT NULL REFERENCES shared_types(id) ON DELETE CASCADE,
  pos INT NOT NULL DEFAULT 0,
  PRIMARY KEY (analysis_id, shared_type_id)
);

CREATE TABLE IF NOT EXISTS type_schemas (
  type_id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  properties TEXT[] NOT NULL DEFAULT '{}',
  last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS registry_calls (
  call_id UUID PRIMARY KEY,
  type_id TEXT NOT NULL DEFAULT '',
  request_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT '',
  error_kind TEXT,
  http_status INT NOT NULL DEFAULT 0,
  elapsed_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_registry_calls_type ON registry_calls(type_id, created_at DESC);
CREATE TABLE IF NOT EXISTS ingest_runs (
  run_id TEXT PRIMARY KEY,
  harvest_id TEXT NOT NULL DEFAULT '',
  graph_url TEXT NOT NULL DEFAULT '',
  article_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL CHECK (status IN ('running','completed','failed')),
  statement_count INT NOT NULL DEFAULT 0,
  fail_reason TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_harvest ON ingest_runs(harvest_id, updated_at DESC);
`
	if _, err := p.db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	schemaPrepared = true
	return nil
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, util.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

// Link tables all share the (owner, ref, pos) shape.
type linkSpec struct {
	table string
	owner string
	ref   string
}

var (
	linkComponentUnits      = linkSpec{"component_units", "component_id", "unit_id"}
	linkJournalFields       = linkSpec{"journal_research_fields", "journal_id", "research_field_id"}
	linkConferenceFields    = linkSpec{"conference_research_fields", "conference_id", "research_field_id"}
	linkArticleAuthors      = linkSpec{"article_authors", "article_id", "author_id"}
	linkArticleConcepts     = linkSpec{"article_concepts", "article_id", "concept_id"}
	linkArticleFields       = linkSpec{"article_research_fields", "article_id", "research_field_id"}
	linkStatementComponents = linkSpec{"statement_components", "statement_id", "component_id"}
	linkStatementConcepts   = linkSpec{"statement_concepts", "statement_id", "concept_id"}
	linkStatementAuthors    = linkSpec{"statement_authors", "statement_id", "author_id"}
	linkDataItemFigures     = linkSpec{"data_item_figures", "data_item_id", "figure_id"}
	linkDataItemParts       = linkSpec{"data_item_parts", "data_item_id", "part_id"}
	linkAnalysisMethods     = linkSpec{"analysis_methods", "analysis_id", "method_id"}
	linkAnalysisInputs      = linkSpec{"analysis_inputs", "analysis_id", "data_item_id"}
	linkAnalysisOutputs     = linkSpec{"analysis_outputs", "analysis_id", "data_item_id"}
	linkAnalysisTargets     = linkSpec{"analysis_targets", "analysis_id", "shared_type_id"}
	linkAnalysisLevels      = linkSpec{"analysis_levels", "analysis_id", "shared_type_id"}
)

// setLinks replaces the owner's link set, keeping slice order in pos.
func (p *Postgres) setLinks(ctx context.Context, s linkSpec, ownerID string, ids []string) error {
	if _, err := p.q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, s.table, s.owner), ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}
	for i, id := range ids {
		if id == "" {
			continue
		}
		stmt := fmt.Sprintf(`
INSERT INTO %s (%s, %s, pos) VALUES ($1, $2, $3)
ON CONFLICT (%s, %s) DO UPDATE SET pos = EXCLUDED.pos`, s.table, s.owner, s.ref, s.owner, s.ref)
		if _, err := p.q.Exec(ctx, stmt, ownerID, id, i); err != nil {
			return fmt.Errorf("link %s: %w", s.table, err)
		}
	}
	return nil
}

func (p *Postgres) linkIDs(ctx context.Context, s linkSpec, ownerID string) ([]string, error) {
	rows, err := p.q.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY pos`, s.ref, s.table, s.owner), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return out, nil
}

// upsertLabeled covers the simple id+label leaf tables.
func (p *Postgres) upsertLabeled(ctx context.Context, table, id, label string) error {
	stmt := fmt.Sprintf(`
INSERT INTO %s (id, label) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET label = COALESCE(NULLIF(EXCLUDED.label, ''), %s.label)`, table, table)
	if _, err := p.q.Exec(ctx, stmt, id, util.SanitizeText(label)); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func (p *Postgres) getLabel(ctx context.Context, table, kind, id string) (string, error) {
	var label string
	if err := p.q.QueryRow(ctx, fmt.Sprintf(`SELECT label FROM %s WHERE id = $1`, table), id).Scan(&label); err != nil {
		return "", notFound(kind, id, err)
	}
	return label, nil
}

// jsonBytes marshals optional JSON payloads for jsonb columns; nil maps
// become the JSON null literal rather than SQL NULL.
func jsonBytes(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb payload: %w", err)
	}
	return b, nil
}
