package reconcile

import (
	"testing"
)

func TestRelationDedupeSQL(t *testing.T) {
	r := relation{
		Table: "cast_memberships",
		FK:    "show_id",
		Keys:  [][]string{{"person_id", "category"}},
	}
	want := "DELETE FROM cast_memberships dup USING cast_memberships kept " +
		"WHERE dup.show_id = ? AND kept.show_id = ? " +
		"AND dup.person_id = kept.person_id AND dup.category = kept.category"
	if got := r.dedupeSQL(r.Keys[0]); got != want {
		t.Errorf("dedupeSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestRelationReparentSQL(t *testing.T) {
	r := relation{Table: "show_aliases", FK: "show_id"}
	want := "UPDATE show_aliases SET show_id = ? WHERE show_id = ?"
	if got := r.reparentSQL(); got != want {
		t.Errorf("reparentSQL = %s, want %s", got, want)
	}
}

func TestCascadeOrder(t *testing.T) {
	// Assets first, then attribute tables, then cast and appearance facts.
	// The season/episode hierarchy and bookkeeping run outside this list.
	want := []string{
		"show_images",
		"show_aliases",
		"cast_memberships",
		"episode_credits",
		"episode_appearances",
	}
	if len(showRelations) != len(want) {
		t.Fatalf("got %d show relations, want %d", len(showRelations), len(want))
	}
	for i, r := range showRelations {
		if r.Table != want[i] {
			t.Errorf("relation %d = %s, want %s", i, r.Table, want[i])
		}
	}
	if len(bookkeepingRelations) != 1 || bookkeepingRelations[0].Table != "show_sync_statuses" {
		t.Errorf("bookkeeping relations = %+v, want show_sync_statuses only", bookkeepingRelations)
	}
}

func TestImageDedupeCoversBothIdentities(t *testing.T) {
	// show_images must dedupe on the native-id identity and the path
	// identity, or re-parenting could trip either unique index.
	images := showRelations[0]
	if len(images.Keys) != 2 {
		t.Fatalf("show_images has %d key sets, want 2", len(images.Keys))
	}
	sqls := []string{
		images.dedupeSQL(images.Keys[0]),
		images.dedupeSQL(images.Keys[1]),
	}
	if sqls[0] == sqls[1] {
		t.Error("both dedupe statements are identical")
	}
}
