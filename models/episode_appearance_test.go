package models

import (
	"context"
	"testing"

	"github.com/go-pg/pg/v10/orm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRecorder captures raw statements so the SQL that enforces the
// aggregate rules can be asserted without a live store.
type execRecorder struct {
	orm.DB
	queries []string
	params  [][]interface{}
}

func (r *execRecorder) ExecContext(ctx context.Context, query interface{}, params ...interface{}) (orm.Result, error) {
	r.queries = append(r.queries, query.(string))
	r.params = append(r.params, params)
	return nil, nil
}

func TestRecomputeEpisodeAppearance(t *testing.T) {
	rec := &execRecorder{}
	err := RecomputeEpisodeAppearance(context.Background(), rec, 7, 9)
	require.NoError(t, err)
	require.Len(t, rec.queries, 2)

	upsert := rec.queries[0]
	// Totals count distinct episode ids, so re-ingesting the same credit
	// (E1, E2, E1) still yields a total of 2.
	assert.Contains(t, upsert, "count(DISTINCT c.episode_imdb_id)")
	// The set columns are distinct and sorted.
	assert.Contains(t, upsert, "array_agg(DISTINCT c.season_number ORDER BY c.season_number)")
	assert.Contains(t, upsert, "array_agg(DISTINCT c.episode_imdb_id ORDER BY c.episode_imdb_id)")
	// Rebuilt wholesale onto the pair's single row.
	assert.Contains(t, upsert, "ON CONFLICT (show_id, person_id) DO UPDATE")
	assert.Contains(t, upsert, "FROM episode_credits c")
	assert.Equal(t, []interface{}{int64(7), int64(9)}, rec.params[0])

	// A pair with no surviving facts loses its aggregate row.
	cleanup := rec.queries[1]
	assert.Contains(t, cleanup, "DELETE FROM episode_appearances")
	assert.Contains(t, cleanup, "NOT EXISTS")
	assert.Equal(t, []interface{}{int64(7), int64(9)}, rec.params[1])
}
