package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// ShowAlias holds alternate titles collected from the catalogs (working
// titles, localized titles). Purely additive.
type ShowAlias struct {
	tableName struct{} `pg:"show_aliases,alias:show_alias"`

	ShowAliasID int64  `pg:"show_alias_id,pk"`
	ShowID      int64  `pg:"show_id,use_zero"`
	Alias       string `pg:"alias"`
	Source      Source `pg:"source"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
}

func UpsertShowAlias(ctx context.Context, db orm.DB, a *ShowAlias) error {
	_, err := db.ModelContext(ctx, a).
		OnConflict("(show_id, alias) DO NOTHING").
		Insert()
	return errors.Wrap(err, "failed to upsert show alias")
}
