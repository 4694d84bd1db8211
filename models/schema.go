package models

import (
	"context"
	"strings"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// StoreTables is every table the reconciliation subsystem owns, in merge
// cascade order for the show-owned ones.
var StoreTables = []string{
	"shows",
	"people",
	"show_images",
	"cast_photos",
	"show_aliases",
	"cast_memberships",
	"episode_credits",
	"episode_appearances",
	"seasons",
	"episodes",
	"show_sync_statuses",
}

// VerifySchema fails fast when the expected tables are absent, which means
// the command is pointed at the wrong database. Writing plausible-looking
// rows into a foreign schema is worse than refusing to start.
func VerifySchema(ctx context.Context, db orm.DB) error {
	var present []struct {
		TableName string
	}
	_, err := db.QueryContext(ctx, &present, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY(?)
	`, pg.Array(StoreTables))
	if err != nil {
		return errors.Wrap(err, "failed to inspect schema")
	}
	got := map[string]struct{}{}
	for _, t := range present {
		got[t.TableName] = struct{}{}
	}
	var missing []string
	for _, t := range StoreTables {
		if _, ok := got[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf(
			"store schema mismatch: missing tables %s (wrong database or migrations not applied)",
			strings.Join(missing, ", "))
	}
	return nil
}
