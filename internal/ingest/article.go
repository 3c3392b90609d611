package ingest

import (
	"context"
	"strconv"

	"sciflow/internal/models"
	"sciflow/internal/storage"
	"sciflow/internal/util"
)

// article upserts the document's ScholarlyArticle node, keyed by a hash of
// its name, and links every author, concept and research field collected so
// far. The reborn DOI lookup is best effort.
func (r *run) article(ctx context.Context, g storage.Gateway) error {
	n := r.buckets.Articles[0]
	name := first(n, "name", "label")
	id := util.StableHash("article", name)

	doi := first(n, "doi", "identifier")
	reborn := ""
	if doi != "" {
		v, err := r.doi.LookupRebornDOI(ctx, doi)
		if err != nil {
			r.log.Warn("reborn doi lookup failed", "doi", doi, "err", err)
		} else {
			reborn = v
		}
	}

	rec := models.Article{
		ID:               id,
		Name:             name,
		YearPublished:    parseYear(lookupString(n, "date_published")),
		DOI:              doi,
		RebornDOI:        reborn,
		AuthorIDs:        r.authorIDs,
		ConceptIDs:       r.conceptIDs,
		ResearchFieldIDs: r.fieldIDs,
	}
	if err := g.UpsertArticle(ctx, rec); err != nil {
		return err
	}
	r.articleID = id
	r.remember(n, id)
	return nil
}

// parseYear extracts the first run of exactly four digits. Anything else
// (five-digit runs, no digits at all) yields nil.
func parseYear(s string) *int {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			continue
		}
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j-i == 4 {
			y, err := strconv.Atoi(s[i:j])
			if err == nil {
				return &y
			}
		}
		i = j
	}
	return nil
}
