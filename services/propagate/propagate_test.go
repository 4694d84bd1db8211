package propagate

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/go-pg/pg/v10/orm"

	"github.com/rtvfan-io/backend/models"
)

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

func TestCollectPairs(t *testing.T) {
	credits := []*models.EpisodeCredit{
		{ShowID: 1, PersonID: 10, EpisodeIMDBID: "tt1"},
		{ShowID: 1, PersonID: 10, EpisodeIMDBID: "tt2"},
		{ShowID: 1, PersonID: 11, EpisodeIMDBID: "tt1"},
		{ShowID: 2, PersonID: 10, EpisodeIMDBID: "tt3"},
		{ShowID: 1, PersonID: 10, EpisodeIMDBID: "tt4"},
	}
	got := CollectPairs(credits)
	want := []Pair{
		{ShowID: 1, PersonID: 10},
		{ShowID: 1, PersonID: 11},
		{ShowID: 2, PersonID: 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pairs = %v, want %v", got, want)
	}
}

func TestCollectPairsEmpty(t *testing.T) {
	if got := CollectPairs(nil); got != nil {
		t.Errorf("pairs = %v, want nil", got)
	}
}

func TestRefreshPairs(t *testing.T) {
	// RefreshPairs runs against any orm.DB, so callers holding a batch
	// transaction refresh aggregates inside it; recompute plus cleanup is
	// two statements per pair.
	rec := &execRecorder{}
	pairs := []Pair{{ShowID: 1, PersonID: 2}, {ShowID: 1, PersonID: 3}}
	if err := RefreshPairs(context.Background(), rec, pairs); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(rec.queries) != 4 {
		t.Fatalf("got %d statements, want 2 per pair", len(rec.queries))
	}
	for i, pair := range pairs {
		for j := 0; j < 2; j++ {
			want := []interface{}{pair.ShowID, pair.PersonID}
			if !reflect.DeepEqual(rec.params[i*2+j], want) {
				t.Errorf("statement %d params = %v, want %v", i*2+j, rec.params[i*2+j], want)
			}
		}
	}
}

func TestApplyShowName(t *testing.T) {
	rec := &execRecorder{}
	if err := ApplyShowName(context.Background(), rec, 5, "The Real Deal"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	tables := []string{"shows", "seasons", "episodes", "cast_memberships", "episode_appearances"}
	if len(rec.queries) != len(tables) {
		t.Fatalf("got %d statements, want %d", len(rec.queries), len(tables))
	}
	for i, table := range tables {
		stmt := rec.queries[i]
		if !strings.HasPrefix(stmt, "UPDATE "+table+" ") {
			t.Errorf("statement %d = %q, want update of %s", i, stmt, table)
		}
		// Bounded by the show and skipping rows already carrying the name.
		if !strings.Contains(stmt, "WHERE show_id = ?") {
			t.Errorf("statement %d is not scoped by show_id: %q", i, stmt)
		}
		if !strings.Contains(stmt, "<> ?") {
			t.Errorf("statement %d rewrites unchanged rows: %q", i, stmt)
		}
		want := []interface{}{"The Real Deal", int64(5), "The Real Deal"}
		if !reflect.DeepEqual(rec.params[i], want) {
			t.Errorf("statement %d params = %v, want %v", i, rec.params[i], want)
		}
	}
}

func TestApplyPersonName(t *testing.T) {
	rec := &execRecorder{}
	if err := ApplyPersonName(context.Background(), rec, 8, "Padma Lakshmi"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	tables := []string{"people", "cast_memberships", "episode_appearances"}
	if len(rec.queries) != len(tables) {
		t.Fatalf("got %d statements, want %d", len(rec.queries), len(tables))
	}
	for i, table := range tables {
		if !strings.HasPrefix(rec.queries[i], "UPDATE "+table+" ") {
			t.Errorf("statement %d = %q, want update of %s", i, rec.queries[i], table)
		}
		if !strings.Contains(rec.queries[i], "person_id = ?") {
			t.Errorf("statement %d is not scoped by person_id: %q", i, rec.queries[i])
		}
	}
}
