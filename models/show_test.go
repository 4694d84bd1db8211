package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionSorted(t *testing.T) {
	t.Run("dedupes and sorts", func(t *testing.T) {
		got := UnionSorted([]string{"Bravo", "MTV"}, []string{"MTV", "ABC"})
		assert.Equal(t, []string{"ABC", "Bravo", "MTV"}, got)
	})

	t.Run("case sensitive", func(t *testing.T) {
		// "Reality" and "reality" are distinct values; the union must not
		// fold case.
		got := UnionSorted([]string{"Drama", "Reality"}, []string{"reality", "Competition"})
		assert.Equal(t, []string{"Competition", "Drama", "Reality", "reality"}, got)
	})

	t.Run("drops empty strings", func(t *testing.T) {
		got := UnionSorted([]string{"", "Drama"}, []string{""})
		assert.Equal(t, []string{"Drama"}, got)
	})

	t.Run("nil operands", func(t *testing.T) {
		assert.Equal(t, []string{"Drama"}, UnionSorted(nil, []string{"Drama"}))
		assert.Nil(t, UnionSorted(nil, nil))
	})

	t.Run("idempotent", func(t *testing.T) {
		a := []string{"Competition", "Drama"}
		assert.Equal(t, a, UnionSorted(a, a))
	})
}

func TestArrayUnionExpr(t *testing.T) {
	got := arrayUnionExpr("show", "genres")
	assert.Equal(t,
		"(SELECT coalesce(array_agg(DISTINCT v ORDER BY v), '{}') FROM unnest(coalesce(show.genres, '{}') || coalesce(EXCLUDED.genres, '{}')) AS v WHERE v <> '')",
		got)
}
