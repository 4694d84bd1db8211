package propagate

import (
	"context"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	cs "github.com/webtor-io/common-services"

	"github.com/rtvfan-io/backend/models"
)

// Pair identifies one (show, person) aggregate.
type Pair struct {
	ShowID   int64
	PersonID int64
}

// CollectPairs extracts the distinct (show, person) pairs touched by a batch
// of fact rows, preserving first-seen order. Bulk loads recompute each
// aggregate exactly once per batch instead of once per fact row.
func CollectPairs(credits []*models.EpisodeCredit) []Pair {
	seen := map[Pair]struct{}{}
	var out []Pair
	for _, c := range credits {
		p := Pair{ShowID: c.ShowID, PersonID: c.PersonID}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Propagator keeps denormalized copy-fields and rollup aggregates in
// lockstep with their sources of truth. Propagation is synchronous: when a
// call returns, dependent rows are already consistent.
type Propagator struct {
	pg *cs.PG
}

func New(pg *cs.PG) *Propagator {
	return &Propagator{pg: pg}
}

// ShowRenamed renames the show and refreshes every row caching its name,
// scoped to that show, in one transaction.
func (s *Propagator) ShowRenamed(ctx context.Context, showID int64, name string) error {
	db := s.pg.Get()
	if db == nil {
		return errors.New("db not initialized")
	}
	return db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		return ApplyShowName(ctx, tx, showID, name)
	})
}

// PersonRenamed is the person-side twin of ShowRenamed.
func (s *Propagator) PersonRenamed(ctx context.Context, personID int64, name string) error {
	db := s.pg.Get()
	if db == nil {
		return errors.New("db not initialized")
	}
	return db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		return ApplyPersonName(ctx, tx, personID, name)
	})
}

// CreditsChanged rebuilds the EpisodeAppearance aggregate for every pair
// affected by the batch, once per pair.
func (s *Propagator) CreditsChanged(ctx context.Context, credits []*models.EpisodeCredit) error {
	pairs := CollectPairs(credits)
	if len(pairs) == 0 {
		return nil
	}
	db := s.pg.Get()
	if db == nil {
		return errors.New("db not initialized")
	}
	err := db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		return RefreshPairs(ctx, tx, pairs)
	})
	if err != nil {
		return err
	}
	log.Infof("refreshed %d episode appearance aggregates", len(pairs))
	return nil
}

// RefreshPairs recomputes the named aggregates against db, which may be a
// surrounding transaction.
func RefreshPairs(ctx context.Context, db orm.DB, pairs []Pair) error {
	for _, p := range pairs {
		if err := models.RecomputeEpisodeAppearance(ctx, db, p.ShowID, p.PersonID); err != nil {
			return err
		}
	}
	return nil
}

// ApplyShowName updates the show row and every dependent row caching the
// show's display name. Bounded by show_id on every statement.
func ApplyShowName(ctx context.Context, db orm.DB, showID int64, name string) error {
	statements := []string{
		"UPDATE shows SET name = ?, updated_at = now() WHERE show_id = ? AND name <> ?",
		"UPDATE seasons SET show_name = ?, updated_at = now() WHERE show_id = ? AND show_name <> ?",
		"UPDATE episodes SET show_name = ?, updated_at = now() WHERE show_id = ? AND show_name <> ?",
		"UPDATE cast_memberships SET show_name = ?, updated_at = now() WHERE show_id = ? AND show_name <> ?",
		"UPDATE episode_appearances SET show_name = ?, updated_at = now() WHERE show_id = ? AND show_name <> ?",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt, name, showID, name); err != nil {
			return errors.Wrapf(err, "failed to propagate show name to %d", showID)
		}
	}
	return nil
}

// ApplyPersonName updates the person row and every dependent row caching the
// person's display name.
func ApplyPersonName(ctx context.Context, db orm.DB, personID int64, name string) error {
	statements := []string{
		"UPDATE people SET name = ?, updated_at = now() WHERE person_id = ? AND name <> ?",
		"UPDATE cast_memberships SET person_name = ?, updated_at = now() WHERE person_id = ? AND person_name <> ?",
		"UPDATE episode_appearances SET person_name = ?, updated_at = now() WHERE person_id = ? AND person_name <> ?",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt, name, personID, name); err != nil {
			return errors.Wrapf(err, "failed to propagate person name to %d", personID)
		}
	}
	return nil
}
