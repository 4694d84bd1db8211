package reconcile

import (
	"github.com/rtvfan-io/backend/models"
)

// ReconcileShows folds the source show's attributes into the target in
// place, without touching the store: scalars keep the target's value and
// fall back to the source's, array attributes become the sorted
// case-sensitive union, and the "still awaiting enrichment" flags combine
// with AND: the merged show only needs a source re-visited if both halves
// still did.
func ReconcileShows(target, source *models.Show) {
	if target.Name == "" {
		target.Name = source.Name
	}

	target.IMDBID = firstNonNil(target.IMDBID, source.IMDBID)
	target.TMDBID = firstNonNil(target.TMDBID, source.TMDBID)
	target.TVDBID = firstNonNil(target.TVDBID, source.TVDBID)
	target.WikidataID = firstNonNil(target.WikidataID, source.WikidataID)
	target.Instagram = firstNonNil(target.Instagram, source.Instagram)
	target.Twitter = firstNonNil(target.Twitter, source.Twitter)

	target.Genres = models.UnionSorted(target.Genres, source.Genres)
	target.Keywords = models.UnionSorted(target.Keywords, source.Keywords)
	target.Tags = models.UnionSorted(target.Tags, source.Tags)
	target.Networks = models.UnionSorted(target.Networks, source.Networks)
	target.StreamingProviders = models.UnionSorted(target.StreamingProviders, source.StreamingProviders)
	target.ListedOn = models.UnionSorted(target.ListedOn, source.ListedOn)

	target.NeedsIMDBSync = target.NeedsIMDBSync && source.NeedsIMDBSync
	target.NeedsTMDBSync = target.NeedsTMDBSync && source.NeedsTMDBSync
}

func firstNonNil[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}
