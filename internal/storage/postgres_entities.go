package storage

import (
	"context"
	"fmt"

	"sciflow/internal/models"
	"sciflow/internal/util"
)

// textArray sanitizes string lists for TEXT[] columns; nil stays a valid
// empty array rather than SQL NULL.
func textArray(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if s := util.SanitizeText(x); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *Postgres) UpsertResearchField(ctx context.Context, rec models.ResearchField) error {
	return p.upsertLabeled(ctx, "research_fields", rec.ID, rec.Label)
}

func (p *Postgres) UpsertAuthor(ctx context.Context, rec models.Author) error {
	return p.upsertLabeled(ctx, "authors", rec.ID, rec.Label)
}

func (p *Postgres) UpsertUnit(ctx context.Context, rec models.Unit) error {
	return p.upsertLabeled(ctx, "units", rec.ID, rec.Label)
}

func (p *Postgres) UpsertObjectOfInterest(ctx context.Context, rec models.ObjectOfInterest) error {
	return p.upsertLabeled(ctx, "objects_of_interest", rec.ID, rec.Label)
}

func (p *Postgres) UpsertMatrix(ctx context.Context, rec models.Matrix) error {
	return p.upsertLabeled(ctx, "matrices", rec.ID, rec.Label)
}

func (p *Postgres) UpsertProperty(ctx context.Context, rec models.Property) error {
	return p.upsertLabeled(ctx, "properties", rec.ID, rec.Label)
}

func (p *Postgres) UpsertConstraint(ctx context.Context, rec models.Constraint) error {
	return p.upsertLabeled(ctx, "constraints", rec.ID, rec.Label)
}

func (p *Postgres) UpsertOperation(ctx context.Context, rec models.Operation) error {
	return p.upsertLabeled(ctx, "operations", rec.ID, rec.Label)
}

func (p *Postgres) UpsertPublisher(ctx context.Context, rec models.Publisher) error {
	return p.upsertLabeled(ctx, "publishers", rec.ID, rec.Label)
}

func (p *Postgres) UpsertComponent(ctx context.Context, rec models.Component) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO components (id, label, matrix_id, object_of_interest_id, property_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), components.label),
  matrix_id = EXCLUDED.matrix_id,
  object_of_interest_id = EXCLUDED.object_of_interest_id,
  property_id = EXCLUDED.property_id`,
		rec.ID, util.SanitizeText(rec.Label), rec.MatrixID, rec.ObjectOfInterestID, rec.PropertyID)
	if err != nil {
		return fmt.Errorf("upsert component: %w", err)
	}
	return p.setLinks(ctx, linkComponentUnits, rec.ID, rec.UnitIDs)
}

func (p *Postgres) UpsertJournal(ctx context.Context, rec models.Journal) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO journals (id, label, publisher_id) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), journals.label),
  publisher_id = COALESCE(NULLIF(EXCLUDED.publisher_id, ''), journals.publisher_id)`,
		rec.ID, util.SanitizeText(rec.Label), rec.PublisherID)
	if err != nil {
		return fmt.Errorf("upsert journal: %w", err)
	}
	return p.setLinks(ctx, linkJournalFields, rec.ID, rec.ResearchFieldIDs)
}

func (p *Postgres) UpsertConference(ctx context.Context, rec models.Conference) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO conferences (id, label, publisher_id) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), conferences.label),
  publisher_id = COALESCE(NULLIF(EXCLUDED.publisher_id, ''), conferences.publisher_id)`,
		rec.ID, util.SanitizeText(rec.Label), rec.PublisherID)
	if err != nil {
		return fmt.Errorf("upsert conference: %w", err)
	}
	return p.setLinks(ctx, linkConferenceFields, rec.ID, rec.ResearchFieldIDs)
}

func (p *Postgres) UpsertConcept(ctx context.Context, rec models.Concept) error {
	_, err := p.q.Exec(ctx, `
INSERT INTO concepts (id, label, definition, see_also, string_match)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  label = COALESCE(NULLIF(EXCLUDED.label, ''), concepts.label),
  definition = COALESCE(NULLIF(EXCLUDED.definition, ''), concepts.definition),
  see_also = EXCLUDED.see_also,
  string_match = EXCLUDED.string_match`,
		rec.ID, util.SanitizeText(rec.Label), util.SanitizeText(rec.Definition),
		textArray(rec.SeeAlso), textArray(rec.StringMatch))
	if err != nil {
		return fmt.Errorf("upsert concept: %w", err)
	}
	return nil
}

func (p *Postgres) GetComponent(ctx context.Context, id string) (models.Component, error) {
	rec := models.Component{ID: id}
	err := p.q.QueryRow(ctx, `
SELECT label, matrix_id, object_of_interest_id, property_id FROM components WHERE id = $1`, id).
		Scan(&rec.Label, &rec.MatrixID, &rec.ObjectOfInterestID, &rec.PropertyID)
	if err != nil {
		return models.Component{}, notFound("component", id, err)
	}
	rec.UnitIDs, err = p.linkIDs(ctx, linkComponentUnits, id)
	if err != nil {
		return models.Component{}, err
	}
	return rec, nil
}

func (p *Postgres) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	label, err := p.getLabel(ctx, "units", "unit", id)
	if err != nil {
		return models.Unit{}, err
	}
	return models.Unit{ID: id, Label: label}, nil
}

func (p *Postgres) GetMatrix(ctx context.Context, id string) (models.Matrix, error) {
	label, err := p.getLabel(ctx, "matrices", "matrix", id)
	if err != nil {
		return models.Matrix{}, err
	}
	return models.Matrix{ID: id, Label: label}, nil
}

func (p *Postgres) GetObjectOfInterest(ctx context.Context, id string) (models.ObjectOfInterest, error) {
	label, err := p.getLabel(ctx, "objects_of_interest", "object of interest", id)
	if err != nil {
		return models.ObjectOfInterest{}, err
	}
	return models.ObjectOfInterest{ID: id, Label: label}, nil
}

func (p *Postgres) GetProperty(ctx context.Context, id string) (models.Property, error) {
	label, err := p.getLabel(ctx, "properties", "property", id)
	if err != nil {
		return models.Property{}, err
	}
	return models.Property{ID: id, Label: label}, nil
}
