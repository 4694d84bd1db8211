package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// Person rows are created on first appearance in any cast list and never
// deleted under normal operation.
type Person struct {
	tableName struct{} `pg:"people,alias:person"`

	PersonID int64   `pg:"person_id,pk"`
	Name     string  `pg:"name"`
	IMDBID   *string `pg:"imdb_id"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
	UpdatedAt time.Time `pg:"updated_at,default:now()"`

	Memberships []*CastMembership `pg:"rel:has-many,fk:person_id"`
	Photos      []*CastPhoto      `pg:"rel:has-many,fk:person_id"`
}

func GetPersonByID(ctx context.Context, db orm.DB, id int64) (*Person, error) {
	var p Person
	err := db.ModelContext(ctx, &p).
		Where("person_id = ?", id).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPersonByName is a fallback lookup for cast lists scraped without
// person ids. Exact match only.
func GetPersonByName(ctx context.Context, db orm.DB, name string) (*Person, error) {
	var p Person
	err := db.ModelContext(ctx, &p).
		Where("name = ?", name).
		Where("imdb_id IS NULL").
		Limit(1).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPerson inserts the person or fills the name on the row sharing the
// same IMDb id. People without an external id are always inserted, there is
// nothing to key de-duplication on.
func UpsertPerson(ctx context.Context, db orm.DB, p *Person) (*Person, error) {
	if p.IMDBID == nil {
		_, err := db.ModelContext(ctx, p).Returning("*").Insert()
		if err != nil {
			return nil, errors.Wrap(err, "failed to insert person")
		}
		return p, nil
	}
	_, err := db.ModelContext(ctx, p).
		OnConflict("(imdb_id) WHERE imdb_id IS NOT NULL DO UPDATE").
		Set(`
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE person.name END,
			updated_at = now()
		`).
		Returning("*").
		Insert()
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert person")
	}
	return p, nil
}
