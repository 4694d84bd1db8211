package migrations

import (
	"github.com/go-pg/migrations/v8"
)

// InitSchema creates the entity store. Natural-key uniqueness (the conflict
// targets of every upsert) is part of the base schema; the external-id
// uniqueness across shows/people/seasons/episodes is tightened separately by
// the guarded migration 2, since pre-relational spreadsheet loads could
// contain duplicates.
func InitSchema(col *migrations.Collection) {
	col.MustRegisterTx(func(db migrations.DB) error {
		_, err := db.Exec(`
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE shows (
	show_id bigserial PRIMARY KEY,
	name text NOT NULL DEFAULT '',
	imdb_id text,
	tmdb_id bigint,
	genres text[] NOT NULL DEFAULT '{}',
	keywords text[] NOT NULL DEFAULT '{}',
	tags text[] NOT NULL DEFAULT '{}',
	networks text[] NOT NULL DEFAULT '{}',
	streaming_providers text[] NOT NULL DEFAULT '{}',
	listed_on text[] NOT NULL DEFAULT '{}',
	tvdb_id bigint,
	wikidata_id text,
	instagram text,
	twitter text,
	needs_imdb_sync boolean NOT NULL DEFAULT true,
	needs_tmdb_sync boolean NOT NULL DEFAULT true,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE people (
	person_id bigserial PRIMARY KEY,
	name text NOT NULL DEFAULT '',
	imdb_id text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE seasons (
	season_id bigserial PRIMARY KEY,
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	number smallint NOT NULL,
	show_name text NOT NULL DEFAULT '',
	imdb_id text,
	tmdb_id bigint,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (show_id, number)
);

CREATE TABLE episodes (
	episode_id bigserial PRIMARY KEY,
	season_id bigint NOT NULL REFERENCES seasons (season_id) ON DELETE CASCADE,
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	number smallint NOT NULL,
	show_name text NOT NULL DEFAULT '',
	title text,
	aired_at timestamptz,
	imdb_id text,
	tmdb_id bigint,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (season_id, number)
);

CREATE TABLE cast_memberships (
	cast_membership_id bigserial PRIMARY KEY,
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	person_id bigint NOT NULL REFERENCES people (person_id) ON DELETE CASCADE,
	category text NOT NULL DEFAULT 'cast',
	show_name text NOT NULL DEFAULT '',
	person_name text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (show_id, person_id, category)
);

CREATE TABLE episode_credits (
	episode_credit_id bigserial PRIMARY KEY,
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	person_id bigint NOT NULL REFERENCES people (person_id) ON DELETE CASCADE,
	season_number smallint NOT NULL DEFAULT 0,
	episode_imdb_id text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (show_id, person_id, episode_imdb_id)
);

CREATE TABLE episode_appearances (
	episode_appearance_id bigserial PRIMARY KEY,
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	person_id bigint NOT NULL REFERENCES people (person_id) ON DELETE CASCADE,
	show_name text NOT NULL DEFAULT '',
	person_name text NOT NULL DEFAULT '',
	season_numbers smallint[] NOT NULL DEFAULT '{}',
	episode_imdb_ids text[] NOT NULL DEFAULT '{}',
	total_episodes integer NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (show_id, person_id)
);

CREATE TABLE show_aliases (
	show_alias_id bigserial PRIMARY KEY,
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	alias text NOT NULL,
	source text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (show_id, alias)
);

CREATE TABLE show_images (
	show_image_id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	source text NOT NULL,
	source_image_id text,
	kind text NOT NULL DEFAULT '',
	path text NOT NULL DEFAULT '',
	url text,
	width integer,
	height integer,
	aspect_ratio double precision,
	hosted_url text,
	hosted_hash text,
	hosted_size_bytes bigint,
	attrs jsonb,
	fetched_at timestamptz,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (show_id, source, kind, path)
);
CREATE UNIQUE INDEX show_images_source_image_id_idx
	ON show_images (show_id, source, source_image_id)
	WHERE source_image_id IS NOT NULL;

CREATE TABLE cast_photos (
	cast_photo_id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
	person_id bigint NOT NULL REFERENCES people (person_id) ON DELETE CASCADE,
	source text NOT NULL,
	source_image_id text,
	kind text NOT NULL DEFAULT '',
	path text NOT NULL DEFAULT '',
	url text,
	width integer,
	height integer,
	aspect_ratio double precision,
	hosted_url text,
	hosted_hash text,
	hosted_size_bytes bigint,
	attrs jsonb,
	fetched_at timestamptz,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (person_id, source, kind, path)
);
CREATE UNIQUE INDEX cast_photos_source_image_id_idx
	ON cast_photos (person_id, source, source_image_id)
	WHERE source_image_id IS NOT NULL;

CREATE TABLE show_sync_statuses (
	show_sync_status_id bigserial PRIMARY KEY,
	show_id bigint NOT NULL REFERENCES shows (show_id) ON DELETE CASCADE,
	source text NOT NULL,
	last_synced_at timestamptz,
	sync_cursor text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (show_id, source)
);

CREATE INDEX episode_credits_pair_idx ON episode_credits (show_id, person_id);
CREATE INDEX episode_appearances_person_idx ON episode_appearances (person_id);
CREATE INDEX cast_memberships_person_idx ON cast_memberships (person_id);
`)
		return err
	}, func(db migrations.DB) error {
		_, err := db.Exec(`
DROP TABLE IF EXISTS show_sync_statuses, cast_photos, show_images, show_aliases,
	episode_appearances, episode_credits, cast_memberships, episodes, seasons,
	people, shows;
`)
		return err
	})
}
