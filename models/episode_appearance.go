package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// EpisodeAppearance is the pre-aggregated rollup of EpisodeCredit facts for
// one (show, person) pair. total_episodes is the cardinality of the distinct
// episode-id set, so "how many episodes has X been in on show Y" is an O(1)
// read for the serving layer.
type EpisodeAppearance struct {
	tableName struct{} `pg:"episode_appearances,alias:episode_appearance"`

	EpisodeAppearanceID int64  `pg:"episode_appearance_id,pk"`
	ShowID              int64  `pg:"show_id,use_zero"`
	PersonID            int64  `pg:"person_id,use_zero"`
	ShowName            string `pg:"show_name"`
	PersonName          string `pg:"person_name"`

	SeasonNumbers  []int16  `pg:"season_numbers,array"`
	EpisodeIMDBIDs []string `pg:"episode_imdb_ids,array"`
	TotalEpisodes  int      `pg:"total_episodes,use_zero"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
	UpdatedAt time.Time `pg:"updated_at,default:now()"`
}

// RecomputeEpisodeAppearance rebuilds the aggregate row for one (show,
// person) pair wholesale from the surviving episode_credits facts. A pair
// with no facts left loses its aggregate row.
func RecomputeEpisodeAppearance(ctx context.Context, db orm.DB, showID, personID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO episode_appearances
			(show_id, person_id, show_name, person_name, season_numbers, episode_imdb_ids, total_episodes)
		SELECT c.show_id,
		       c.person_id,
		       s.name,
		       p.name,
		       array_agg(DISTINCT c.season_number ORDER BY c.season_number),
		       array_agg(DISTINCT c.episode_imdb_id ORDER BY c.episode_imdb_id),
		       count(DISTINCT c.episode_imdb_id)
		FROM episode_credits c
		JOIN shows s ON s.show_id = c.show_id
		JOIN people p ON p.person_id = c.person_id
		WHERE c.show_id = ? AND c.person_id = ?
		GROUP BY c.show_id, c.person_id, s.name, p.name
		ON CONFLICT (show_id, person_id) DO UPDATE SET
			show_name = EXCLUDED.show_name,
			person_name = EXCLUDED.person_name,
			season_numbers = EXCLUDED.season_numbers,
			episode_imdb_ids = EXCLUDED.episode_imdb_ids,
			total_episodes = EXCLUDED.total_episodes,
			updated_at = now()
	`, showID, personID)
	if err != nil {
		return errors.Wrapf(err, "failed to recompute appearance for show %d person %d", showID, personID)
	}
	_, err = db.ExecContext(ctx, `
		DELETE FROM episode_appearances ea
		WHERE ea.show_id = ? AND ea.person_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM episode_credits c
			WHERE c.show_id = ea.show_id AND c.person_id = ea.person_id
		)
	`, showID, personID)
	return errors.Wrapf(err, "failed to drop empty appearance for show %d person %d", showID, personID)
}

func GetAppearancesByPersonID(ctx context.Context, db orm.DB, personID int64) ([]*EpisodeAppearance, error) {
	var apps []*EpisodeAppearance
	err := db.ModelContext(ctx, &apps).
		Where("person_id = ?", personID).
		Order("show_name ASC").
		Select()
	if err != nil {
		return nil, err
	}
	return apps, nil
}
