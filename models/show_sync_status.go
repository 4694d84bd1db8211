package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

// ShowSyncStatus is per-source scrape bookkeeping: when a show was last
// pulled from a catalog and where to resume. Owned by the ingestion
// collaborators, but lives here so show merges can carry it along.
type ShowSyncStatus struct {
	tableName struct{} `pg:"show_sync_statuses,alias:show_sync_status"`

	ShowSyncStatusID int64      `pg:"show_sync_status_id,pk"`
	ShowID           int64      `pg:"show_id,use_zero"`
	Source           Source     `pg:"source"`
	LastSyncedAt     *time.Time `pg:"last_synced_at"`
	Cursor           *string    `pg:"sync_cursor"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
	UpdatedAt time.Time `pg:"updated_at,default:now()"`
}

func TouchShowSyncStatus(ctx context.Context, db orm.DB, st *ShowSyncStatus) error {
	_, err := db.ModelContext(ctx, st).
		OnConflict("(show_id, source) DO UPDATE").
		Set(`
			last_synced_at = coalesce(EXCLUDED.last_synced_at, show_sync_status.last_synced_at),
			sync_cursor = coalesce(EXCLUDED.sync_cursor, show_sync_status.sync_cursor),
			updated_at = now()
		`).
		Insert()
	return errors.Wrap(err, "failed to touch show sync status")
}
