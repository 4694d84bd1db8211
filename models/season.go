package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

type Season struct {
	tableName struct{} `pg:"seasons,alias:season"`

	SeasonID int64  `pg:"season_id,pk"`
	ShowID   int64  `pg:"show_id,use_zero"`
	Number   int16  `pg:"number,use_zero"`
	ShowName string `pg:"show_name"`

	IMDBID *string `pg:"imdb_id"`
	TMDBID *int64  `pg:"tmdb_id"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
	UpdatedAt time.Time `pg:"updated_at,default:now()"`

	Episodes []*Episode `pg:"rel:has-many,fk:season_id"`
}

// EnsureSeason inserts the (show, number) season if it is not known yet and
// returns the surviving row either way.
func EnsureSeason(ctx context.Context, db orm.DB, season *Season) (*Season, error) {
	_, err := db.ModelContext(ctx, season).
		OnConflict("(show_id, number) DO UPDATE").
		Set(`
			imdb_id = coalesce(season.imdb_id, EXCLUDED.imdb_id),
			tmdb_id = coalesce(season.tmdb_id, EXCLUDED.tmdb_id),
			updated_at = now()
		`).
		Returning("*").
		Insert()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to ensure season %d of show %d", season.Number, season.ShowID)
	}
	return season, nil
}

func GetSeasonsByShowID(ctx context.Context, db orm.DB, showID int64) ([]*Season, error) {
	var seasons []*Season
	err := db.ModelContext(ctx, &seasons).
		Where("show_id = ?", showID).
		Order("number ASC").
		Relation("Episodes", func(q *orm.Query) (*orm.Query, error) {
			return q.Order("number ASC"), nil
		}).
		Select()
	if err != nil {
		return nil, err
	}
	return seasons, nil
}
