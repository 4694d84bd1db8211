package ingest

import (
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  Padma Lakshmi ", "Padma Lakshmi"},
		{"composes accents", "Chloé", "Chloé"},
		{"composed input unchanged", "Chloé", "Chloé"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestImagePayloadToFields(t *testing.T) {
	w, h := 1000, 1500
	p := &ImagePayload{Path: "/p/a.jpg", Width: &w, Height: &h}
	f := p.toFields()
	if f.AspectRatio == nil {
		t.Fatal("aspect ratio not derived")
	}
	if got := *f.AspectRatio; got < 0.666 || got > 0.667 {
		t.Errorf("aspect ratio = %v, want 1000/1500", got)
	}

	// No derivation without both dimensions or with a zero height.
	p = &ImagePayload{Path: "/p/a.jpg", Width: &w}
	if p.toFields().AspectRatio != nil {
		t.Error("aspect ratio derived without height")
	}
	zero := 0
	p = &ImagePayload{Path: "/p/a.jpg", Width: &w, Height: &zero}
	if p.toFields().AspectRatio != nil {
		t.Error("aspect ratio derived from zero height")
	}
}

func TestRefKey(t *testing.T) {
	imdb := "tt123"
	tmdb := int64(42)
	if got := refKey(ExternalRef{IMDBID: &imdb}); got != "imdb:tt123" {
		t.Errorf("refKey = %q", got)
	}
	if got := refKey(ExternalRef{TMDBID: &tmdb}); got != "tmdb:42" {
		t.Errorf("refKey = %q", got)
	}
	// IMDB id wins when both are present so cache keys stay stable across
	// partially-enriched readings.
	if got := refKey(ExternalRef{IMDBID: &imdb, TMDBID: &tmdb}); got != "imdb:tt123" {
		t.Errorf("refKey = %q", got)
	}
	if got := refKey(ExternalRef{}); got != "" {
		t.Errorf("refKey = %q, want empty", got)
	}
}

func TestNameChangeTracking(t *testing.T) {
	// Each display name fans out to dependent rows once per entity per
	// batch; repeats and empty names stay quiet.
	fanned := map[int64]string{}
	if !nameChanged(fanned, 1, "Untitled Project") {
		t.Error("first sighting must fan out")
	}
	if nameChanged(fanned, 1, "Untitled Project") {
		t.Error("repeated name must not fan out again")
	}
	if !nameChanged(fanned, 1, "The Real Deal") {
		t.Error("rename must fan out")
	}
	if nameChanged(fanned, 1, "") {
		t.Error("empty name must not fan out")
	}
	if !nameChanged(fanned, 2, "The Real Deal") {
		t.Error("another entity with the same name must fan out")
	}
}

func TestSummaryString(t *testing.T) {
	sum := &Summary{
		Counts: map[string]int{
			KindShow:             2,
			KindEpisodeCredit:    1500,
			KindCreditRetraction: 3,
		},
		Pairs: 37,
	}
	got := sum.String()
	for _, frag := range []string{"2 show", "1,500 episode_credit", "3 episode_credit_retraction", "1,505 rows", "37 aggregates refreshed"} {
		if !strings.Contains(got, frag) {
			t.Errorf("summary %q missing %q", got, frag)
		}
	}
}

func TestExternalRefSource(t *testing.T) {
	imdb := "tt1"
	tmdb := int64(5)
	if !(ExternalRef{}).empty() {
		t.Error("empty ref not reported empty")
	}
	if got := (ExternalRef{IMDBID: &imdb, TMDBID: &tmdb}).source(); got != "imdb" {
		t.Errorf("source = %q, imdb id must win", got)
	}
	if got := (ExternalRef{TMDBID: &tmdb}).source(); got != "tmdb" {
		t.Errorf("source = %q", got)
	}
}
