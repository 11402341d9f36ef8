//go:build !sqlite_fts5

package index

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jwintz/obsidianp-sub000/internal/models"
)

func TestFallbackSearch_LiteralAndStoreOrder(t *testing.T) {
	db := testDB(t)
	mustSync(t, db,
		&models.Document{ID: "z", Source: "50% off"},
		&models.Document{ID: "a", Source: "500 items"},
		&models.Document{ID: "m", Source: "also 50% less"})

	results, err := db.Search("50%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var ids []string
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"z", "m"}, ids); diff != "" {
		t.Errorf("hits (-want +got):\n%s", diff)
	}
}
