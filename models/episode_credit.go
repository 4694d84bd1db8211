package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// EpisodeCredit is the atomic fact "this person was credited in this
// episode". The EpisodeAppearance aggregate is always recomputed from these
// rows, never patched incrementally.
type EpisodeCredit struct {
	tableName struct{} `pg:"episode_credits,alias:episode_credit"`

	EpisodeCreditID int64  `pg:"episode_credit_id,pk"`
	ShowID          int64  `pg:"show_id,use_zero"`
	PersonID        int64  `pg:"person_id,use_zero"`
	SeasonNumber    int16  `pg:"season_number,use_zero"`
	EpisodeIMDBID   string `pg:"episode_imdb_id"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
}

// InsertEpisodeCredits records a batch of facts, silently skipping ones the
// store already holds. Callers are expected to follow up with an aggregate
// refresh for the affected (show, person) pairs.
func InsertEpisodeCredits(ctx context.Context, db orm.DB, credits []*EpisodeCredit) error {
	if len(credits) == 0 {
		return nil
	}
	_, err := db.ModelContext(ctx, &credits).
		OnConflict("(show_id, person_id, episode_imdb_id) DO NOTHING").
		Insert()
	return errors.Wrap(err, "failed to insert episode credits")
}

func DeleteEpisodeCredit(ctx context.Context, db orm.DB, showID, personID int64, episodeIMDBID string) (bool, error) {
	res, err := db.ModelContext(ctx, (*EpisodeCredit)(nil)).
		Where("show_id = ?", showID).
		Where("person_id = ?", personID).
		Where("episode_imdb_id = ?", episodeIMDBID).
		Delete()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
