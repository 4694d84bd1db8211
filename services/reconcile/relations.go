package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// relation describes one show-owned table for the merge cascade: where its
// foreign key lives and which column sets identify a row within one show.
// Before re-parenting, any source-owned row whose key already exists under
// the target is deleted, so the move can never trip a uniqueness constraint.
type relation struct {
	Table string
	FK    string
	Keys  [][]string
}

// showRelations is the cascade order for flat show-owned relations: assets,
// attribute tables, then cast and appearance facts. The season/episode
// hierarchy and the sync bookkeeping are handled separately around it.
var showRelations = []relation{
	{
		Table: "show_images",
		FK:    "show_id",
		Keys: [][]string{
			{"source", "source_image_id"},
			{"source", "kind", "path"},
		},
	},
	{
		Table: "show_aliases",
		FK:    "show_id",
		Keys:  [][]string{{"alias"}},
	},
	{
		Table: "cast_memberships",
		FK:    "show_id",
		Keys:  [][]string{{"person_id", "category"}},
	},
	{
		Table: "episode_credits",
		FK:    "show_id",
		Keys:  [][]string{{"person_id", "episode_imdb_id"}},
	},
	{
		Table: "episode_appearances",
		FK:    "show_id",
		Keys:  [][]string{{"person_id"}},
	},
}

var bookkeepingRelations = []relation{
	{
		Table: "show_sync_statuses",
		FK:    "show_id",
		Keys:  [][]string{{"source"}},
	},
}

// dedupeSQL deletes source-owned rows colliding with a target-owned row on
// one key set. Plain column equality is used on purpose: a NULL key column
// never matches, so rows without that identity survive to be re-parented.
func (r relation) dedupeSQL(key []string) string {
	conds := make([]string, 0, len(key))
	for _, k := range key {
		conds = append(conds, fmt.Sprintf("dup.%[1]s = kept.%[1]s", k))
	}
	return fmt.Sprintf(
		"DELETE FROM %[1]s dup USING %[1]s kept WHERE dup.%[2]s = ? AND kept.%[2]s = ? AND %[3]s",
		r.Table, r.FK, strings.Join(conds, " AND "))
}

func (r relation) reparentSQL() string {
	return fmt.Sprintf("UPDATE %[1]s SET %[2]s = ? WHERE %[2]s = ?", r.Table, r.FK)
}

func (r relation) merge(ctx context.Context, db orm.DB, sourceID, targetID int64) error {
	for _, key := range r.Keys {
		if _, err := db.ExecContext(ctx, r.dedupeSQL(key), sourceID, targetID); err != nil {
			return errors.Wrapf(err, "failed to dedupe %s", r.Table)
		}
	}
	if _, err := db.ExecContext(ctx, r.reparentSQL(), targetID, sourceID); err != nil {
		return errors.Wrapf(err, "failed to re-parent %s", r.Table)
	}
	return nil
}
