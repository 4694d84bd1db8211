package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string    { return &s }
func intp(i int) *int          { return &i }
func timep(t time.Time) *time.Time { return &t }

func TestMergeImageFields_WidthMonotonic(t *testing.T) {
	// Upserting readings at width 200, 500, 100 must leave width 500 and the
	// URL that came with the 500 reading, regardless of arrival order of the
	// downgrade.
	stored := &ImageFields{
		Source: SourceTMDB,
		Kind:   ImageKindPoster,
		Path:   "/p/small.jpg",
		URL:    strp("https://img/200.jpg"),
		Width:  intp(200),
		Height: intp(300),
	}
	stored = MergeImageFields(stored, &ImageFields{
		Path:   "/p/big.jpg",
		URL:    strp("https://img/500.jpg"),
		Width:  intp(500),
		Height: intp(750),
	})
	require.NotNil(t, stored.Width)
	assert.Equal(t, 500, *stored.Width)
	assert.Equal(t, "https://img/500.jpg", *stored.URL)
	assert.Equal(t, "/p/big.jpg", stored.Path)

	stored = MergeImageFields(stored, &ImageFields{
		Path:   "/p/tiny.jpg",
		URL:    strp("https://img/100.jpg"),
		Width:  intp(100),
		Height: intp(150),
	})
	assert.Equal(t, 500, *stored.Width)
	assert.Equal(t, "https://img/500.jpg", *stored.URL)
	assert.Equal(t, "/p/big.jpg", stored.Path)
	assert.Equal(t, 750, *stored.Height)
}

func TestMergeImageFields_EqualWidthKeepsExisting(t *testing.T) {
	stored := &ImageFields{URL: strp("https://img/a.jpg"), Width: intp(500)}
	out := MergeImageFields(stored, &ImageFields{URL: strp("https://img/b.jpg"), Width: intp(500)})
	assert.Equal(t, "https://img/a.jpg", *out.URL)
	assert.Equal(t, 500, *out.Width)
}

func TestMergeImageFields_FillsNulls(t *testing.T) {
	stored := &ImageFields{Width: intp(500)}
	out := MergeImageFields(stored, &ImageFields{
		SourceImageID: strp("tm123"),
		URL:           strp("https://img/x.jpg"),
		Height:        intp(750),
		HostedHash:    strp("abc"),
	})
	assert.Equal(t, "tm123", *out.SourceImageID)
	assert.Equal(t, "https://img/x.jpg", *out.URL)
	assert.Equal(t, 750, *out.Height)
	assert.Equal(t, "abc", *out.HostedHash)
	assert.Equal(t, 500, *out.Width)
}

func TestMergeImageFields_SourceImageIDNeverChanges(t *testing.T) {
	stored := &ImageFields{SourceImageID: strp("tm1")}
	out := MergeImageFields(stored, &ImageFields{SourceImageID: strp("tm2")})
	assert.Equal(t, "tm1", *out.SourceImageID)
}

func TestMergeImageFields_AttrsShallowUnion(t *testing.T) {
	stored := &ImageFields{Attrs: map[string]any{"lang": "en", "vote": 7.0}}
	out := MergeImageFields(stored, &ImageFields{Attrs: map[string]any{"vote": 8.5}})
	// Incoming keys overwrite, absent keys survive.
	assert.Equal(t, "en", out.Attrs["lang"])
	assert.Equal(t, 8.5, out.Attrs["vote"])

	// An incoming row without attrs leaves the bag alone.
	out = MergeImageFields(out, &ImageFields{})
	assert.Equal(t, "en", out.Attrs["lang"])
}

func TestMergeImageFields_FetchedAtOnlyWhenSupplied(t *testing.T) {
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := &ImageFields{FetchedAt: timep(old)}

	out := MergeImageFields(stored, &ImageFields{})
	require.NotNil(t, out.FetchedAt)
	assert.True(t, out.FetchedAt.Equal(old))

	fresh := old.Add(24 * time.Hour)
	out = MergeImageFields(out, &ImageFields{FetchedAt: timep(fresh)})
	assert.True(t, out.FetchedAt.Equal(fresh))
}

func TestImageConflictSet(t *testing.T) {
	set := imageConflictSet("show_image")

	// Width can only grow.
	assert.Contains(t, set, "width = greatest(show_image.width, EXCLUDED.width)")
	// Quality-bearing fields follow the larger width.
	assert.Contains(t, set, "url = CASE WHEN coalesce(EXCLUDED.width, -1) > coalesce(show_image.width, -1)")
	// Attribute bags merge shallowly with incoming keys winning.
	assert.Contains(t, set, "attrs = coalesce(show_image.attrs, '{}'::jsonb) || coalesce(EXCLUDED.attrs, '{}'::jsonb)")
	// A stored native id is never replaced.
	assert.Contains(t, set, "source_image_id = coalesce(show_image.source_image_id, EXCLUDED.source_image_id)")
	assert.Contains(t, set, "fetched_at = coalesce(EXCLUDED.fetched_at, show_image.fetched_at)")
	assert.Contains(t, set, "updated_at = now()")

	// The cast photo variant references its own alias throughout.
	assert.False(t, strings.Contains(imageConflictSet("cast_photo"), "show_image."))
}
