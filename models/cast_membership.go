package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

type CastCategory string

const (
	CastCategoryCast  CastCategory = "cast"
	CastCategoryHost  CastCategory = "host"
	CastCategoryJudge CastCategory = "judge"
	CastCategoryGuest CastCategory = "guest"
)

// CastMembership links a person to a show in one role category. Show and
// person names are denormalized onto the row for the hot cast-list read path
// and kept in sync by services/propagate.
type CastMembership struct {
	tableName struct{} `pg:"cast_memberships,alias:cast_membership"`

	CastMembershipID int64        `pg:"cast_membership_id,pk"`
	ShowID           int64        `pg:"show_id,use_zero"`
	PersonID         int64        `pg:"person_id,use_zero"`
	Category         CastCategory `pg:"category"`
	ShowName         string       `pg:"show_name"`
	PersonName       string       `pg:"person_name"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
	UpdatedAt time.Time `pg:"updated_at,default:now()"`

	Person *Person `pg:"rel:has-one,fk:person_id"`
}

func UpsertCastMembership(ctx context.Context, db orm.DB, m *CastMembership) (*CastMembership, error) {
	_, err := db.ModelContext(ctx, m).
		OnConflict("(show_id, person_id, category) DO UPDATE").
		Set(`
			show_name = EXCLUDED.show_name,
			person_name = EXCLUDED.person_name,
			updated_at = now()
		`).
		Returning("*").
		Insert()
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert cast membership")
	}
	return m, nil
}

func GetCastByShowID(ctx context.Context, db orm.DB, showID int64) ([]*CastMembership, error) {
	var cast []*CastMembership
	err := db.ModelContext(ctx, &cast).
		Where("show_id = ?", showID).
		Order("category ASC", "person_name ASC").
		Select()
	if err != nil {
		return nil, err
	}
	return cast, nil
}
