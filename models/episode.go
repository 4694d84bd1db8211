package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

type Episode struct {
	tableName struct{} `pg:"episodes,alias:episode"`

	EpisodeID int64  `pg:"episode_id,pk"`
	SeasonID  int64  `pg:"season_id,use_zero"`
	ShowID    int64  `pg:"show_id,use_zero"`
	Number    int16  `pg:"number,use_zero"`
	ShowName  string `pg:"show_name"`

	Title   *string    `pg:"title"`
	AiredAt *time.Time `pg:"aired_at"`
	IMDBID  *string    `pg:"imdb_id"`
	TMDBID  *int64     `pg:"tmdb_id"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
	UpdatedAt time.Time `pg:"updated_at,default:now()"`
}

// EnsureEpisode inserts the (season, number) episode if it is not known yet
// and enriches nullable fields on the existing row otherwise.
func EnsureEpisode(ctx context.Context, db orm.DB, episode *Episode) (*Episode, error) {
	_, err := db.ModelContext(ctx, episode).
		OnConflict("(season_id, number) DO UPDATE").
		Set(`
			title = coalesce(EXCLUDED.title, episode.title),
			aired_at = coalesce(EXCLUDED.aired_at, episode.aired_at),
			imdb_id = coalesce(episode.imdb_id, EXCLUDED.imdb_id),
			tmdb_id = coalesce(episode.tmdb_id, EXCLUDED.tmdb_id),
			updated_at = now()
		`).
		Returning("*").
		Insert()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to ensure episode %d of season %d", episode.Number, episode.SeasonID)
	}
	return episode, nil
}
