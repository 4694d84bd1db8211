package models

import (
	"context"
	"sort"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
)

type Source string

const (
	SourceIMDB Source = "imdb"
	SourceTMDB Source = "tmdb"
)

// Show is the canonical row for a real-world program. Duplicate rows
// discovered from different identity spaces are folded together by
// services/reconcile; nothing else ever deletes a show.
type Show struct {
	tableName struct{} `pg:"shows,alias:show"`

	ShowID int64   `pg:"show_id,pk"`
	Name   string  `pg:"name"`
	IMDBID *string `pg:"imdb_id"`
	TMDBID *int64  `pg:"tmdb_id"`

	Genres             []string `pg:"genres,array"`
	Keywords           []string `pg:"keywords,array"`
	Tags               []string `pg:"tags,array"`
	Networks           []string `pg:"networks,array"`
	StreamingProviders []string `pg:"streaming_providers,array"`
	ListedOn           []string `pg:"listed_on,array"`

	TVDBID     *int64  `pg:"tvdb_id"`
	WikidataID *string `pg:"wikidata_id"`
	Instagram  *string `pg:"instagram"`
	Twitter    *string `pg:"twitter"`

	NeedsIMDBSync bool `pg:"needs_imdb_sync,use_zero"`
	NeedsTMDBSync bool `pg:"needs_tmdb_sync,use_zero"`

	CreatedAt time.Time `pg:"created_at,default:now()"`
	UpdatedAt time.Time `pg:"updated_at,default:now()"`

	Seasons []*Season         `pg:"rel:has-many,fk:show_id"`
	Cast    []*CastMembership `pg:"rel:has-many,fk:show_id"`
	Images  []*ShowImage      `pg:"rel:has-many,fk:show_id"`
}

// UnionSorted merges two string sets into a sorted, deduplicated slice.
// Comparison is case-sensitive: "Reality" and "reality" are distinct values,
// since folding case would drop information the scrapers captured.
func UnionSorted(a, b []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, vs := range [][]string{a, b} {
		for _, v := range vs {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// arrayUnionExpr renders the same union as UnionSorted as a SQL expression
// over an existing array column and its EXCLUDED counterpart.
func arrayUnionExpr(alias, col string) string {
	return "(SELECT coalesce(array_agg(DISTINCT v ORDER BY v), '{}') FROM unnest(coalesce(" +
		alias + "." + col + ", '{}') || coalesce(EXCLUDED." + col + ", '{}')) AS v WHERE v <> '')"
}

func GetShowByID(ctx context.Context, db orm.DB, id int64) (*Show, error) {
	var show Show
	err := db.ModelContext(ctx, &show).
		Where("show_id = ?", id).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &show, nil
}

func GetShowByExternalID(ctx context.Context, db orm.DB, source Source, imdbID string, tmdbID int64) (*Show, error) {
	var show Show
	q := db.ModelContext(ctx, &show)
	switch source {
	case SourceIMDB:
		q = q.Where("imdb_id = ?", imdbID)
	case SourceTMDB:
		q = q.Where("tmdb_id = ?", tmdbID)
	default:
		return nil, errors.Errorf("unknown source %q", source)
	}
	err := q.Limit(1).Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &show, nil
}

func ListShows(ctx context.Context, db orm.DB, limit, offset int) ([]*Show, error) {
	var shows []*Show
	err := db.ModelContext(ctx, &shows).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Select()
	if err != nil {
		return nil, err
	}
	return shows, nil
}

// UpsertShow inserts the show or enriches the existing row sharing the same
// external id. The conflict target is whichever external identity the
// candidate carries, so concurrent ingestion runs against the same id resolve
// through a single atomic statement. Existing scalars are kept (fill-if-null),
// array attributes are unioned, sync flags combine conservatively with AND.
func UpsertShow(ctx context.Context, db orm.DB, show *Show) (*Show, error) {
	var conflict string
	switch {
	case show.IMDBID != nil:
		conflict = "(imdb_id) WHERE imdb_id IS NOT NULL DO UPDATE"
	case show.TMDBID != nil:
		conflict = "(tmdb_id) WHERE tmdb_id IS NOT NULL DO UPDATE"
	default:
		return nil, errors.New("candidate show carries no external id")
	}
	_, err := db.ModelContext(ctx, show).
		OnConflict(conflict).
		Set(`
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE show.name END,
			imdb_id = coalesce(show.imdb_id, EXCLUDED.imdb_id),
			tmdb_id = coalesce(show.tmdb_id, EXCLUDED.tmdb_id),
			genres = `+arrayUnionExpr("show", "genres")+`,
			keywords = `+arrayUnionExpr("show", "keywords")+`,
			tags = `+arrayUnionExpr("show", "tags")+`,
			networks = `+arrayUnionExpr("show", "networks")+`,
			streaming_providers = `+arrayUnionExpr("show", "streaming_providers")+`,
			listed_on = `+arrayUnionExpr("show", "listed_on")+`,
			tvdb_id = coalesce(show.tvdb_id, EXCLUDED.tvdb_id),
			wikidata_id = coalesce(show.wikidata_id, EXCLUDED.wikidata_id),
			instagram = coalesce(show.instagram, EXCLUDED.instagram),
			twitter = coalesce(show.twitter, EXCLUDED.twitter),
			needs_imdb_sync = show.needs_imdb_sync AND EXCLUDED.needs_imdb_sync,
			needs_tmdb_sync = show.needs_tmdb_sync AND EXCLUDED.needs_tmdb_sync,
			updated_at = now()
		`).
		Returning("*").
		Insert()
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert show")
	}
	return show, nil
}

func DeleteShow(ctx context.Context, db orm.DB, id int64) error {
	_, err := db.ModelContext(ctx, (*Show)(nil)).
		Where("show_id = ?", id).
		Delete()
	return err
}
