package index

import (
	"fmt"
	"log/slog"

	"github.com/jwintz/obsidianp-sub000/internal/checksum"
	"github.com/jwintz/obsidianp-sub000/internal/models"
)

// Sync makes the index mirror docs, given in store order, in a single
// transaction. Only documents whose source changed are rewritten; every
// document's links are replaced from its resolved outgoing list, and
// documents missing from docs are dropped.
func Sync(db *DB, docs []*models.Document, logger *slog.Logger) error {
	known, err := checksums(db)
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	updated := 0
	for i, d := range docs {
		cs := checksum.Sum([]byte(d.Source))
		prev, ok := known[d.ID]
		delete(known, d.ID)
		if ok && prev == cs {
			err = setOrder(tx, d.ID, i)
		} else {
			err = putDocument(tx, newRow(d, i, cs))
			updated++
		}
		if err != nil {
			return err
		}
		if err := setLinks(tx, d.ID, d.Outgoing); err != nil {
			return err
		}
	}

	for id := range known {
		if err := dropDocument(tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	stats, err := db.Stats()
	if err != nil {
		return err
	}
	logger.Debug("index: synced",
		slog.Int("documents", stats.Documents),
		slog.Int("links", stats.Links),
		slog.Int("updated", updated),
		slog.Int("removed", len(known)))
	return nil
}
