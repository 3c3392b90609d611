package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"sciflow/internal/models"
	"sciflow/internal/util"
)

func (p *Postgres) UpsertArticle(ctx context.Context, rec models.Article) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO articles (id, name, year_published, doi, reborn_doi)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  name = COALESCE(NULLIF(EXCLUDED.name, ''), articles.name),
  year_published = COALESCE(EXCLUDED.year_published, articles.year_published),
  doi = COALESCE(NULLIF(EXCLUDED.doi, ''), articles.doi),
  reborn_doi = COALESCE(NULLIF(EXCLUDED.reborn_doi, ''), articles.reborn_doi),
  updated_at = NOW()`,
		rec.ID, util.SanitizeText(rec.Name), rec.YearPublished, rec.DOI, rec.RebornDOI)
	if err != nil {
		return fmt.Errorf("upsert article: %w", err)
	}
	if err := p.setLinks(ctx, linkArticleAuthors, rec.ID, rec.AuthorIDs); err != nil {
		return err
	}
	if err := p.setLinks(ctx, linkArticleConcepts, rec.ID, rec.ConceptIDs); err != nil {
		return err
	}
	return p.setLinks(ctx, linkArticleFields, rec.ID, rec.ResearchFieldIDs)
}

func (p *Postgres) UpsertStatement(ctx context.Context, rec models.Statement) error {
	content, err := jsonBytes(rec.Content)
	if err != nil {
		return err
	}
	_, err = p.q.Exec(ctx, `
INSERT INTO statements (id, article_id, label, ord, content)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  article_id = EXCLUDED.article_id,
  label = COALESCE(NULLIF(EXCLUDED.label, ''), statements.label),
  ord = EXCLUDED.ord,
  content = EXCLUDED.content,
  updated_at = NOW()`,
		rec.ID, rec.ArticleID, util.SanitizeText(rec.Label), rec.Order, content)
	if err != nil {
		return fmt.Errorf("upsert statement: %w", err)
	}
	if err := p.setLinks(ctx, linkStatementComponents, rec.ID, rec.ComponentIDs); err != nil {
		return err
	}
	if err := p.setLinks(ctx, linkStatementConcepts, rec.ID, rec.ConceptIDs); err != nil {
		return err
	}
	return p.setLinks(ctx, linkStatementAuthors, rec.ID, rec.AuthorIDs)
}

func (p *Postgres) UpsertImplementation(ctx context.Context, rec models.Implementation) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO implementations (id, statement_id, url) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET url = EXCLUDED.url`,
		rec.ID, rec.StatementID, rec.URL)
	if err != nil {
		return fmt.Errorf("upsert implementation: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertHasPart(ctx context.Context, rec models.HasPart) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO has_parts (id, statement_id, label, type, schema_type, description)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), has_parts.label),
  type = COALESCE(NULLIF(EXCLUDED.type, ''), has_parts.type),
  schema_type = COALESCE(NULLIF(EXCLUDED.schema_type, ''), has_parts.schema_type),
  description = COALESCE(NULLIF(EXCLUDED.description, ''), has_parts.description)`,
		rec.ID, rec.StatementID, util.SanitizeText(rec.Label), rec.Type, rec.SchemaType, util.SanitizeText(rec.Description))
	if err != nil {
		return fmt.Errorf("upsert has_part: %w", err)
	}
	return nil
}

func (p *Postgres) GetArticle(ctx context.Context, id string) (models.Article, error) {
	rec := models.Article{ID: id}
	err := p.q.QueryRow(ctx, `
SELECT name, year_published, doi, reborn_doi, created_at, updated_at
FROM articles WHERE id = $1`, id).
		Scan(&rec.Name, &rec.YearPublished, &rec.DOI, &rec.RebornDOI, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return models.Article{}, notFound("article", id, err)
	}
	if rec.AuthorIDs, err = p.linkIDs(ctx, linkArticleAuthors, id); err != nil {
		return models.Article{}, err
	}
	if rec.ConceptIDs, err = p.linkIDs(ctx, linkArticleConcepts, id); err != nil {
		return models.Article{}, err
	}
	if rec.ResearchFieldIDs, err = p.linkIDs(ctx, linkArticleFields, id); err != nil {
		return models.Article{}, err
	}
	return rec, nil
}

func (p *Postgres) ListArticles(ctx context.Context) ([]models.Article, error) {
	rows, err := p.q.Query(ctx, `
SELECT id, name, year_published, doi, reborn_doi, created_at, updated_at
FROM articles ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()
	var out []models.Article
	for rows.Next() {
		var rec models.Article
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.YearPublished, &rec.DOI, &rec.RebornDOI, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}

func (p *Postgres) GetStatement(ctx context.Context, id string) (models.Statement, error) {
	rec := models.Statement{ID: id}
	var content []byte
	err := p.q.QueryRow(ctx, `
SELECT article_id, label, ord, content, created_at, updated_at
FROM statements WHERE id = $1`, id).
		Scan(&rec.ArticleID, &rec.Label, &rec.Order, &content, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return models.Statement{}, notFound("statement", id, err)
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &rec.Content); err != nil {
			return models.Statement{}, fmt.Errorf("decode statement content %s: %w", id, err)
		}
	}
	if rec.ComponentIDs, err = p.linkIDs(ctx, linkStatementComponents, id); err != nil {
		return models.Statement{}, err
	}
	if rec.ConceptIDs, err = p.linkIDs(ctx, linkStatementConcepts, id); err != nil {
		return models.Statement{}, err
	}
	if rec.AuthorIDs, err = p.linkIDs(ctx, linkStatementAuthors, id); err != nil {
		return models.Statement{}, err
	}
	return rec, nil
}

func (p *Postgres) ListStatementsByArticle(ctx context.Context, articleID string) ([]models.Statement, error) {
	rows, err := p.q.Query(ctx, `SELECT id FROM statements WHERE article_id = $1 ORDER BY ord, id`, articleID)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan statement id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	out := make([]models.Statement, 0, len(ids))
	for _, id := range ids {
		rec, err := p.GetStatement(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Postgres) ListHasParts(ctx context.Context, statementID string) ([]models.HasPart, error) {
	rows, err := p.q.Query(ctx, `
SELECT id, label, type, schema_type, description
FROM has_parts WHERE statement_id = $1 ORDER BY created_at, id`, statementID)
	if err != nil {
		return nil, fmt.Errorf("list has_parts: %w", err)
	}
	defer rows.Close()
	var out []models.HasPart
	for rows.Next() {
		rec := models.HasPart{StatementID: statementID}
		if err := rows.Scan(&rec.ID, &rec.Label, &rec.Type, &rec.SchemaType, &rec.Description); err != nil {
			return nil, fmt.Errorf("scan has_part: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate has_parts: %w", err)
	}
	return out, nil
}

func (p *Postgres) ListImplementations(ctx context.Context, statementID string) ([]models.Implementation, error) {
	rows, err := p.q.Query(ctx, `
SELECT id, url FROM implementations WHERE statement_id = $1 ORDER BY created_at, id`, statementID)
	if err != nil {
		return nil, fmt.Errorf("list implementations: %w", err)
	}
	defer rows.Close()
	var out []models.Implementation
	for rows.Next() {
		rec := models.Implementation{StatementID: statementID}
		if err := rows.Scan(&rec.ID, &rec.URL); err != nil {
			return nil, fmt.Errorf("scan implementation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate implementations: %w", err)
	}
	return out, nil
}
