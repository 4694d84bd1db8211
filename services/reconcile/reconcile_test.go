package reconcile

import (
	"reflect"
	"testing"

	"github.com/rtvfan-io/backend/models"
)

func strp(s string) *string { return &s }
func int64p(i int64) *int64 { return &i }

func TestReconcileShows_ScalarsTargetWins(t *testing.T) {
	target := &models.Show{
		Name:   "The Great Race",
		IMDBID: strp("tt0100"),
	}
	source := &models.Show{
		Name:       "Great Race (US)",
		IMDBID:     strp("tt9999"),
		TMDBID:     int64p(42),
		WikidataID: strp("Q1234"),
	}

	ReconcileShows(target, source)

	if *target.IMDBID != "tt0100" {
		t.Errorf("imdb id = %v, target must win", *target.IMDBID)
	}
	if target.TMDBID == nil || *target.TMDBID != 42 {
		t.Errorf("tmdb id = %v, want filled from source", target.TMDBID)
	}
	if target.WikidataID == nil || *target.WikidataID != "Q1234" {
		t.Errorf("wikidata id = %v, want filled from source", target.WikidataID)
	}
	if target.Name != "The Great Race" {
		t.Errorf("name = %v, target must win", target.Name)
	}
}

func TestReconcileShows_ArrayUnionLaw(t *testing.T) {
	target := &models.Show{Genres: []string{"Drama", "Reality"}}
	source := &models.Show{Genres: []string{"reality", "Competition"}}

	ReconcileShows(target, source)

	// Union is case-sensitive: mixed casings both survive, sorted.
	want := []string{"Competition", "Drama", "Reality", "reality"}
	if !reflect.DeepEqual(target.Genres, want) {
		t.Errorf("genres = %v, want %v", target.Genres, want)
	}
}

func TestReconcileShows_FlagConservatism(t *testing.T) {
	tests := []struct {
		name           string
		target, source bool
		want           bool
	}{
		{"resolved target wins", false, true, false},
		{"resolved source wins", true, false, false},
		{"both pending stays pending", true, true, true},
		{"both resolved stays resolved", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &models.Show{NeedsIMDBSync: tt.target, NeedsTMDBSync: tt.target}
			source := &models.Show{NeedsIMDBSync: tt.source, NeedsTMDBSync: tt.source}
			ReconcileShows(target, source)
			if target.NeedsIMDBSync != tt.want || target.NeedsTMDBSync != tt.want {
				t.Errorf("flags = (%v, %v), want %v",
					target.NeedsIMDBSync, target.NeedsTMDBSync, tt.want)
			}
		})
	}
}

func TestReconcileShows_EmptyTargetNameFilled(t *testing.T) {
	target := &models.Show{}
	source := &models.Show{Name: "Island of Champions"}
	ReconcileShows(target, source)
	if target.Name != "Island of Champions" {
		t.Errorf("name = %q, want source name on empty target", target.Name)
	}
}

func TestReconcileShows_ListedOnUnion(t *testing.T) {
	target := &models.Show{ListedOn: []string{"imdb"}}
	source := &models.Show{ListedOn: []string{"tmdb", "imdb"}}
	ReconcileShows(target, source)
	want := []string{"imdb", "tmdb"}
	if !reflect.DeepEqual(target.ListedOn, want) {
		t.Errorf("listed_on = %v, want %v", target.ListedOn, want)
	}
}
