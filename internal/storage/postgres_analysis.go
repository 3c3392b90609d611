package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"sciflow/internal/models"
	"sciflow/internal/util"
)

func (p *Postgres) UpsertMatrixSize(ctx context.Context, rec models.MatrixSize) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO matrix_sizes (id, number_rows, number_columns) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
  number_rows = EXCLUDED.number_rows,
  number_columns = EXCLUDED.number_columns`,
		rec.ID, rec.NumberRows, rec.NumberColumns)
	if err != nil {
		return fmt.Errorf("upsert matrix size: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertFigure(ctx context.Context, rec models.Figure) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO figures (id, label, source_url) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), figures.label),
  source_url = COALESCE(NULLIF(EXCLUDED.source_url, ''), figures.source_url)`,
		rec.ID, util.SanitizeText(rec.Label), rec.SourceURL)
	if err != nil {
		return fmt.Errorf("upsert figure: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertDataItemComponent(ctx context.Context, rec models.DataItemComponent) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO data_item_components (id, label, see_also) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), data_item_components.label),
  see_also = COALESCE(NULLIF(EXCLUDED.see_also, ''), data_item_components.see_also)`,
		rec.ID, util.SanitizeText(rec.Label), rec.SeeAlso)
	if err != nil {
		return fmt.Errorf("upsert data item component: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertDataItem(ctx context.Context, rec models.DataItem) error {
	table, err := jsonBytes(rec.SourceTable)
	if err != nil {
		return err
	}
	_, err = p.q.Exec(ctx, `
INSERT INTO data_items (id, label, source_url, source_table, comments, characteristic_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), data_items.label),
  source_url = COALESCE(NULLIF(EXCLUDED.source_url, ''), data_items.source_url),
  source_table = EXCLUDED.source_table,
  comments = EXCLUDED.comments,
  characteristic_id = EXCLUDED.characteristic_id`,
		rec.ID, util.SanitizeText(rec.Label), rec.SourceURL, table, textArray(rec.Comments), rec.CharacteristicID)
	if err != nil {
		return fmt.Errorf("upsert data item: %w", err)
	}
	if err := p.setLinks(ctx, linkDataItemFigures, rec.ID, rec.FigureIDs); err != nil {
		return err
	}
	return p.setLinks(ctx, linkDataItemParts, rec.ID, rec.PartIDs)
}

func (p *Postgres) UpsertSoftware(ctx context.Context, rec models.Software) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO software (id, label, version_info, support_url) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), software.label),
  version_info = COALESCE(NULLIF(EXCLUDED.version_info, ''), software.version_info),
  support_url = COALESCE(NULLIF(EXCLUDED.support_url, ''), software.support_url)`,
		rec.ID, util.SanitizeText(rec.Label), rec.VersionInfo, rec.SupportURL)
	if err != nil {
		return fmt.Errorf("upsert software: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertSoftwareLibrary(ctx context.Context, rec models.SoftwareLibrary) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO software_libraries (id, label, version_info, support_url, software_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), software_libraries.label),
  version_info = COALESCE(NULLIF(EXCLUDED.version_info, ''), software_libraries.version_info),
  support_url = COALESCE(NULLIF(EXCLUDED.support_url, ''), software_libraries.support_url),
  software_id = COALESCE(NULLIF(EXCLUDED.software_id, ''), software_libraries.software_id)`,
		rec.ID, util.SanitizeText(rec.Label), rec.VersionInfo, rec.SupportURL, rec.SoftwareID)
	if err != nil {
		return fmt.Errorf("upsert software library: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertSoftwareMethod(ctx context.Context, rec models.SoftwareMethod) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO software_methods (id, label, implemented_by, support_url, library_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), software_methods.label),
  implemented_by = COALESCE(NULLIF(EXCLUDED.implemented_by, ''), software_methods.implemented_by),
  support_url = COALESCE(NULLIF(EXCLUDED.support_url, ''), software_methods.support_url),
  library_id = COALESCE(NULLIF(EXCLUDED.library_id, ''), software_methods.library_id)`,
		rec.ID, util.SanitizeText(rec.Label), rec.ImplementedBy, rec.SupportURL, rec.LibraryID)
	if err != nil {
		return fmt.Errorf("upsert software method: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertSharedType(ctx context.Context, rec models.SharedType) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO shared_types (id, label, see_also, type) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), shared_types.label),
  see_also = COALESCE(NULLIF(EXCLUDED.see_also, ''), shared_types.see_also),
  type = EXCLUDED.type`,
		rec.ID, util.SanitizeText(rec.Label), rec.SeeAlso, rec.Type)
	if err != nil {
		return fmt.Errorf("upsert shared type: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertAnalysis(ctx context.Context, rec models.Analysis) error {
	rec.ApplyCapabilities()
	_, err := p.q.Exec(ctx, `
INSERT INTO analyses (id, statement_id, kind, label, see_also, evaluate_id, evaluates_for_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  statement_id = EXCLUDED.statement_id,
  kind = EXCLUDED.kind,
  label = COALESCE(NULLIF(EXCLUDED.label, ''), analyses.label),
  see_also = COALESCE(NULLIF(EXCLUDED.see_also, ''), analyses.see_also),
  evaluate_id = EXCLUDED.evaluate_id,
  evaluates_for_id = EXCLUDED.evaluates_for_id`,
		rec.ID, rec.StatementID, string(rec.Kind), util.SanitizeText(rec.Label), rec.SeeAlso,
		rec.EvaluateID, rec.EvaluatesForID)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	if err := p.setLinks(ctx, linkAnalysisMethods, rec.ID, rec.MethodIDs); err != nil {
		return err
	}
	if err := p.setLinks(ctx, linkAnalysisInputs, rec.ID, rec.InputIDs); err != nil {
		return err
	}
	if err := p.setLinks(ctx, linkAnalysisOutputs, rec.ID, rec.OutputIDs); err != nil {
		return err
	}
	if err := p.setLinks(ctx, linkAnalysisTargets, rec.ID, rec.TargetIDs); err != nil {
		return err
	}
	return p.setLinks(ctx, linkAnalysisLevels, rec.ID, rec.LevelIDs)
}

func (p *Postgres) ListAnalyses(ctx context.Context, statementID string) ([]models.Analysis, error) {
	rows, err := p.q.Query(ctx, `
SELECT id, kind, label, see_also, evaluate_id, evaluates_for_id
FROM analyses WHERE statement_id = $1 ORDER BY created_at, id`, statementID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()
	var out []models.Analysis
	for rows.Next() {
		rec := models.Analysis{StatementID: statementID}
		var kind string
		if err := rows.Scan(&rec.ID, &kind, &rec.Label, &rec.SeeAlso, &rec.EvaluateID, &rec.EvaluatesForID); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		rec.Kind = models.AnalysisKind(kind)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	for i := range out {
		a := &out[i]
		if a.MethodIDs, err = p.linkIDs(ctx, linkAnalysisMethods, a.ID); err != nil {
			return nil, err
		}
		if a.InputIDs, err = p.linkIDs(ctx, linkAnalysisInputs, a.ID); err != nil {
			return nil, err
		}
		if a.OutputIDs, err = p.linkIDs(ctx, linkAnalysisOutputs, a.ID); err != nil {
			return nil, err
		}
		if a.TargetIDs, err = p.linkIDs(ctx, linkAnalysisTargets, a.ID); err != nil {
			return nil, err
		}
		if a.LevelIDs, err = p.linkIDs(ctx, linkAnalysisLevels, a.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Postgres) GetDataItem(ctx context.Context, id string) (models.DataItem, error) {
	rec := models.DataItem{ID: id}
	var table []byte
	err := p.q.QueryRow(ctx, `
SELECT label, source_url, source_table, comments, characteristic_id
FROM data_items WHERE id = $1`, id).
		Scan(&rec.Label, &rec.SourceURL, &table, &rec.Comments, &rec.CharacteristicID)
	if err != nil {
		return models.DataItem{}, notFound("data item", id, err)
	}
	if len(table) > 0 {
		if err := json.Unmarshal(table, &rec.SourceTable); err != nil {
			return models.DataItem{}, fmt.Errorf("decode data item table %s: %w", id, err)
		}
	}
	if rec.FigureIDs, err = p.linkIDs(ctx, linkDataItemFigures, id); err != nil {
		return models.DataItem{}, err
	}
	if rec.PartIDs, err = p.linkIDs(ctx, linkDataItemParts, id); err != nil {
		return models.DataItem{}, err
	}
	return rec, nil
}

func (p *Postgres) GetFigure(ctx context.Context, id string) (models.Figure, error) {
	rec := models.Figure{ID: id}
	err := p.q.QueryRow(ctx, `SELECT label, source_url FROM figures WHERE id = $1`, id).
		Scan(&rec.Label, &rec.SourceURL)
	if err != nil {
		return models.Figure{}, notFound("figure", id, err)
	}
	return rec, nil
}

func (p *Postgres) GetDataItemComponent(ctx context.Context, id string) (models.DataItemComponent, error) {
	rec := models.DataItemComponent{ID: id}
	err := p.q.QueryRow(ctx, `SELECT label, see_also FROM data_item_components WHERE id = $1`, id).
		Scan(&rec.Label, &rec.SeeAlso)
	if err != nil {
		return models.DataItemComponent{}, notFound("data item component", id, err)
	}
	return rec, nil
}

func (p *Postgres) GetMatrixSize(ctx context.Context, id string) (models.MatrixSize, error) {
	rec := models.MatrixSize{ID: id}
	err := p.q.QueryRow(ctx, `SELECT number_rows, number_columns FROM matrix_sizes WHERE id = $1`, id).
		Scan(&rec.NumberRows, &rec.NumberColumns)
	if err != nil {
		return models.MatrixSize{}, notFound("matrix size", id, err)
	}
	return rec, nil
}

func (p *Postgres) GetSoftware(ctx context.Context, id string) (models.Software, error) {
	rec := models.Software{ID: id}
	err := p.q.QueryRow(ctx, `SELECT label, version_info, support_url FROM software WHERE id = $1`, id).
		Scan(&rec.Label, &rec.VersionInfo, &rec.SupportURL)
	if err != nil {
		return models.Software{}, notFound("software", id, err)
	}
	return rec, nil
}

func (p *Postgres) GetSoftwareLibrary(ctx context.Context, id string) (models.SoftwareLibrary, error) {
	rec := models.SoftwareLibrary{ID: id}
	err := p.q.QueryRow(ctx, `
SELECT label, version_info, support_url, software_id FROM software_libraries WHERE id = $1`, id).
		Scan(&rec.Label, &rec.VersionInfo, &rec.SupportURL, &rec.SoftwareID)
	if err != nil {
		return models.SoftwareLibrary{}, notFound("software library", id, err)
	}
	return rec, nil
}

func (p *Postgres) GetSoftwareMethod(ctx context.Context, id string) (models.SoftwareMethod, error) {
	rec := models.SoftwareMethod{ID: id}
	err := p.q.QueryRow(ctx, `
SELECT label, implemented_by, support_url, library_id FROM software_methods WHERE id = $1`, id).
		Scan(&rec.Label, &rec.ImplementedBy, &rec.SupportURL, &rec.LibraryID)
	if err != nil {
		return models.SoftwareMethod{}, notFound("software method", id, err)
	}
	return rec, nil
}

func (p *Postgres) GetSharedType(ctx context.Context, id string) (models.SharedType, error) {
	rec := models.SharedType{ID: id}
	err := p.q.QueryRow(ctx, `SELECT label, see_also, type FROM shared_types WHERE id = $1`, id).
		Scan(&rec.Label, &rec.SeeAlso, &rec.Type)
	if err != nil {
		return models.SharedType{}, notFound("shared type", id, err)
	}
	return rec, nil
}
