package migrations

import (
	"fmt"
	"strings"

	"github.com/go-pg/migrations/v8"
	"github.com/pkg/errors"
)

type uniqueIndex struct {
	Table  string
	Column string
	Name   string
}

var externalIDIndexes = []uniqueIndex{
	{"shows", "imdb_id", "shows_imdb_id_key"},
	{"shows", "tmdb_id", "shows_tmdb_id_key"},
	{"people", "imdb_id", "people_imdb_id_key"},
	{"seasons", "imdb_id", "seasons_imdb_id_key"},
	{"seasons", "tmdb_id", "seasons_tmdb_id_key"},
	{"episodes", "imdb_id", "episodes_imdb_id_key"},
	{"episodes", "tmdb_id", "episodes_tmdb_id_key"},
}

// EnforceExternalIDUniqueness tightens the "one row per external id"
// invariant. Data imported from the spreadsheet era may violate it, so each
// index creation is preceded by a verification query; on violation the
// migration aborts with the offending keys spelled out instead of letting
// the index build fail opaquely.
func EnforceExternalIDUniqueness(col *migrations.Collection) {
	col.MustRegisterTx(func(db migrations.DB) error {
		for _, idx := range externalIDIndexes {
			var dups []struct {
				Value string
				Count int
			}
			_, err := db.Query(&dups, fmt.Sprintf(`
				SELECT %[2]s::text AS value, count(*) AS count
				FROM %[1]s
				WHERE %[2]s IS NOT NULL
				GROUP BY %[2]s
				HAVING count(*) > 1
				ORDER BY count(*) DESC
			`, idx.Table, idx.Column))
			if err != nil {
				return errors.Wrapf(err, "failed to verify %s.%s uniqueness", idx.Table, idx.Column)
			}
			if len(dups) > 0 {
				var keys []string
				for _, d := range dups {
					keys = append(keys, fmt.Sprintf("%s (%d rows)", d.Value, d.Count))
				}
				return errors.Errorf(
					"cannot enforce unique %s.%s: duplicate keys %s; merge the duplicate rows first",
					idx.Table, idx.Column, strings.Join(keys, ", "))
			}
			_, err = db.Exec(fmt.Sprintf(
				"CREATE UNIQUE INDEX %s ON %s (%s) WHERE %s IS NOT NULL",
				idx.Name, idx.Table, idx.Column, idx.Column))
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", idx.Name)
			}
		}
		return nil
	}, func(db migrations.DB) error {
		for _, idx := range externalIDIndexes {
			if _, err := db.Exec("DROP INDEX IF EXISTS " + idx.Name); err != nil {
				return err
			}
		}
		return nil
	})
}
