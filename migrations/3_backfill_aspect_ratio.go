package migrations

import (
	"github.com/go-pg/migrations/v8"
)

// BackfillAspectRatio derives aspect_ratio for assets upserted before the
// column existed. Irreversible on purpose: recomputed data has no down path.
func BackfillAspectRatio(col *migrations.Collection) {
	col.MustRegisterTx(func(db migrations.DB) error {
		for _, table := range []string{"show_images", "cast_photos"} {
			_, err := db.Exec(`
				UPDATE ` + table + `
				SET aspect_ratio = width::double precision / height
				WHERE aspect_ratio IS NULL AND width IS NOT NULL AND height IS NOT NULL AND height > 0
			`)
			if err != nil {
				return err
			}
		}
		return nil
	}, func(db migrations.DB) error {
		return nil
	})
}
