package reconcile

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rtvfan-io/backend/models"
	"github.com/rtvfan-io/backend/services/propagate"
)

var (
	// ErrSourceNotFound covers both a bad id and a merge that already ran:
	// either way there is nothing to merge.
	ErrSourceNotFound = errors.New("nothing to merge: source show not found")
	ErrTargetNotFound = errors.New("merge target show not found")
)

// MergeShows folds the show at sourceID into the one at targetID and deletes
// the source row. Scalars are coalesced (target wins), array attributes are
// unioned, enrichment flags combine with AND, and every dependent relation is
// deduplicated on its own natural key before being re-pointed. The whole
// operation runs in one transaction.
//
// Merging assumes exclusive access to both ids; it is a maintenance
// operation, not an ingestion one.
func MergeShows(ctx context.Context, db *pg.DB, sourceID, targetID int64) error {
	if sourceID == targetID {
		return nil
	}
	return db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		return mergeShows(ctx, tx, sourceID, targetID)
	})
}

func mergeShows(ctx context.Context, tx *pg.Tx, sourceID, targetID int64) error {
	source, err := lockShow(ctx, tx, sourceID)
	if err != nil {
		return err
	}
	if source == nil {
		return errors.Wrapf(ErrSourceNotFound, "show %d", sourceID)
	}
	target, err := lockShow(ctx, tx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return errors.Wrapf(ErrTargetNotFound, "show %d", targetID)
	}

	log.Infof("merging show %d %q into %d %q", sourceID, source.Name, targetID, target.Name)

	// People credited under the source need their aggregates rebuilt under
	// the target once the facts have moved.
	personIDs, err := affectedPersonIDs(ctx, tx, sourceID)
	if err != nil {
		return err
	}

	// The external ids are globally unique, so the source must let go of
	// them before the target can pick them up.
	_, err = tx.ModelContext(ctx, (*models.Show)(nil)).
		Set("imdb_id = NULL, tmdb_id = NULL").
		Where("show_id = ?", sourceID).
		Update()
	if err != nil {
		return errors.Wrap(err, "failed to release source external ids")
	}

	ReconcileShows(target, source)
	target.UpdatedAt = time.Now()
	_, err = tx.ModelContext(ctx, target).
		WherePK().
		Column("updated_at", "name", "imdb_id", "tmdb_id",
			"genres", "keywords", "tags", "networks", "streaming_providers", "listed_on",
			"tvdb_id", "wikidata_id", "instagram", "twitter",
			"needs_imdb_sync", "needs_tmdb_sync").
		Update()
	if err != nil {
		return errors.Wrap(err, "failed to update merge target")
	}

	// A differently-named source survives as an alias of the target.
	if source.Name != "" && source.Name != target.Name {
		err = models.UpsertShowAlias(ctx, tx, &models.ShowAlias{
			ShowID: targetID,
			Alias:  source.Name,
		})
		if err != nil {
			return err
		}
	}

	for _, r := range showRelations {
		if err := r.merge(ctx, tx, sourceID, targetID); err != nil {
			return err
		}
	}
	if err := mergeHierarchy(ctx, tx, sourceID, targetID); err != nil {
		return err
	}
	for _, r := range bookkeepingRelations {
		if err := r.merge(ctx, tx, sourceID, targetID); err != nil {
			return err
		}
	}

	// Re-pointed appearance rows may now describe the same (show, person)
	// pair the target already had; rebuild them wholesale from the facts.
	for _, personID := range personIDs {
		if err := models.RecomputeEpisodeAppearance(ctx, tx, targetID, personID); err != nil {
			return err
		}
	}

	// Re-pointed children still carry the source's denormalized name.
	if err := propagate.ApplyShowName(ctx, tx, targetID, target.Name); err != nil {
		return err
	}

	if err := models.DeleteShow(ctx, tx, sourceID); err != nil {
		return errors.Wrap(err, "failed to delete merged source show")
	}
	return nil
}

func lockShow(ctx context.Context, tx *pg.Tx, id int64) (*models.Show, error) {
	var show models.Show
	err := tx.ModelContext(ctx, &show).
		Where("show_id = ?", id).
		For("UPDATE").
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock show %d", id)
	}
	return &show, nil
}

func affectedPersonIDs(ctx context.Context, db orm.DB, showID int64) ([]int64, error) {
	var ids []struct {
		PersonID int64
	}
	_, err := db.QueryContext(ctx, &ids, `
		SELECT person_id FROM episode_credits WHERE show_id = ?
		UNION
		SELECT person_id FROM episode_appearances WHERE show_id = ?
	`, showID, showID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect affected people")
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.PersonID)
	}
	return out, nil
}

// mergeHierarchy folds the source's seasons into the target's. A source
// season whose number exists under the target is dissolved: its episodes are
// deduplicated by episode number against the target season, survivors are
// re-pointed, and the emptied season row is deleted. Non-colliding seasons
// move over wholesale.
func mergeHierarchy(ctx context.Context, db orm.DB, sourceID, targetID int64) error {
	var srcSeasons, tgtSeasons []*models.Season
	err := db.ModelContext(ctx, &srcSeasons).
		Where("show_id = ?", sourceID).
		Select()
	if err != nil {
		return errors.Wrap(err, "failed to load source seasons")
	}
	err = db.ModelContext(ctx, &tgtSeasons).
		Where("show_id = ?", targetID).
		Select()
	if err != nil {
		return errors.Wrap(err, "failed to load target seasons")
	}
	byNumber := map[int16]*models.Season{}
	for _, season := range tgtSeasons {
		byNumber[season.Number] = season
	}
	for _, season := range srcSeasons {
		kept, collides := byNumber[season.Number]
		if !collides {
			_, err = db.ExecContext(ctx,
				"UPDATE seasons SET show_id = ? WHERE season_id = ?",
				targetID, season.SeasonID)
			if err != nil {
				return errors.Wrapf(err, "failed to re-parent season %d", season.Number)
			}
			_, err = db.ExecContext(ctx,
				"UPDATE episodes SET show_id = ? WHERE season_id = ?",
				targetID, season.SeasonID)
			if err != nil {
				return errors.Wrapf(err, "failed to re-parent episodes of season %d", season.Number)
			}
			continue
		}
		_, err = db.ExecContext(ctx, `
			DELETE FROM episodes dup USING episodes kept
			WHERE dup.season_id = ? AND kept.season_id = ? AND dup.number = kept.number
		`, season.SeasonID, kept.SeasonID)
		if err != nil {
			return errors.Wrapf(err, "failed to dedupe episodes of season %d", season.Number)
		}
		_, err = db.ExecContext(ctx,
			"UPDATE episodes SET season_id = ?, show_id = ? WHERE season_id = ?",
			kept.SeasonID, targetID, season.SeasonID)
		if err != nil {
			return errors.Wrapf(err, "failed to move episodes of season %d", season.Number)
		}
		_, err = db.ExecContext(ctx,
			"DELETE FROM seasons WHERE season_id = ?", season.SeasonID)
		if err != nil {
			return errors.Wrapf(err, "failed to delete duplicate season %d", season.Number)
		}
	}
	return nil
}
