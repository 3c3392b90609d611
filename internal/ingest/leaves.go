package ingest

import (
	"context"

	"sciflow/internal/models"
	"sciflow/internal/storage"
	"sciflow/internal/util"
)

// leaves upserts the simple reference buckets. Natural keys are label hashes
// so the same unit or author appearing in many documents stays one row.
// Unlabeled nodes are skipped.
func (r *run) leaves(ctx context.Context, g storage.Gateway) error {
	for _, n := range r.buckets.ResearchFields {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("research_field", label)
		if err := g.UpsertResearchField(ctx, models.ResearchField{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
		r.fieldIDs = appendUnique(r.fieldIDs, id)
	}
	for _, n := range r.buckets.Authors {
		label := first(n, "label", "name")
		if label == "" {
			continue
		}
		id := util.StableHash("author", label)
		if err := g.UpsertAuthor(ctx, models.Author{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
		r.authorIDs = appendUnique(r.authorIDs, id)
	}
	for _, n := range r.buckets.Units {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("unit", label)
		if err := g.UpsertUnit(ctx, models.Unit{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
	}
	for _, n := range r.buckets.ObjectsOfInterest {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("object_of_interest", label)
		if err := g.UpsertObjectOfInterest(ctx, models.ObjectOfInterest{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
	}
	for _, n := range r.buckets.Matrices {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("matrix", label)
		if err := g.UpsertMatrix(ctx, models.Matrix{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
	}
	for _, n := range r.buckets.Properties {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("property", label)
		if err := g.UpsertProperty(ctx, models.Property{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
	}
	for _, n := range r.buckets.Constraints {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("constraint", label)
		if err := g.UpsertConstraint(ctx, models.Constraint{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
	}
	for _, n := range r.buckets.Operations {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("operation", label)
		if err := g.UpsertOperation(ctx, models.Operation{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
	}
	return nil
}

// components upserts the Component/Variable/Measure family, attaching the
// matrix, object of interest, property and units the node references.
func (r *run) components(ctx context.Context, g storage.Gateway) error {
	for _, n := range r.buckets.Components {
		label := lookupString(n, "label")
		id := n.ID()
		if id == "" {
			if label == "" {
				continue
			}
			id = util.StableHash("component", label)
		}

		rec := models.Component{ID: id, Label: label}
		if v, ok := lookup(n, "matrix"); ok {
			if ids := r.mappedIDs(v); len(ids) > 0 {
				rec.MatrixID = ids[0]
			}
		}
		if v, ok := lookupAny(n, "objectOfInterest", "object_of_interest"); ok {
			if ids := r.mappedIDs(v); len(ids) > 0 {
				rec.ObjectOfInterestID = ids[0]
			}
		}
		if v, ok := lookup(n, "property"); ok {
			if ids := r.mappedIDs(v); len(ids) > 0 {
				rec.PropertyID = ids[0]
			}
		}
		if v, ok := lookupAny(n, "unit", "units"); ok {
			rec.UnitIDs = r.mappedIDs(v)
		}
		if err := g.UpsertComponent(ctx, rec); err != nil {
			return err
		}
		r.remember(n, id)
	}
	return nil
}

// venues upserts the publisher (at most one per document) and any journals
// and conferences, each carrying the publisher and the document's research
// field set.
func (r *run) venues(ctx context.Context, g storage.Gateway) error {
	var publisherID string
	for _, n := range r.buckets.Publishers {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("publisher", label)
		if err := g.UpsertPublisher(ctx, models.Publisher{ID: id, Label: label}); err != nil {
			return err
		}
		r.remember(n, id)
		if publisherID == "" {
			publisherID = id
		}
	}
	for _, n := range r.buckets.Journals {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("journal", label)
		rec := models.Journal{ID: id, Label: label, PublisherID: publisherID, ResearchFieldIDs: r.fieldIDs}
		if err := g.UpsertJournal(ctx, rec); err != nil {
			return err
		}
		r.remember(n, id)
	}
	for _, n := range r.buckets.Conferences {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("conference", label)
		rec := models.Conference{ID: id, Label: label, PublisherID: publisherID, ResearchFieldIDs: r.fieldIDs}
		if err := g.UpsertConference(ctx, rec); err != nil {
			return err
		}
		r.remember(n, id)
	}
	return nil
}

func (r *run) concepts(ctx context.Context, g storage.Gateway) error {
	for _, n := range r.buckets.Concepts {
		label := lookupString(n, "label")
		if label == "" {
			continue
		}
		id := util.StableHash("concept", label)
		rec := models.Concept{
			ID:          id,
			Label:       label,
			Definition:  lookupString(n, "definition"),
			SeeAlso:     lookupStrings(n, "see_also"),
			StringMatch: lookupStrings(n, "string_match"),
		}
		if err := g.UpsertConcept(ctx, rec); err != nil {
			return err
		}
		r.remember(n, id)
		r.conceptIDs = appendUnique(r.conceptIDs, id)
	}
	return nil
}
