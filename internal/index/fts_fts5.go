//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

var textMigrations = []string{
	`CREATE VIRTUAL TABLE documents_fts USING fts5(
		id UNINDEXED, title, body, tags,
		tokenize = 'unicode61 remove_diacritics 2'
	)`,
}

// Best match first; ties keep store order.
const searchSQL = `
	SELECT documents_fts.id, documents_fts.title,
	       snippet(documents_fts, 2, '<b>', '</b>', '...', 16)
	FROM documents_fts JOIN documents ON documents.id = documents_fts.id
	WHERE documents_fts MATCH ?1
	ORDER BY documents_fts.rank, documents.ord
	LIMIT ?2`

// searchTerm quotes query as one FTS5 phrase.
func searchTerm(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

func putText(tx *sql.Tx, r row) error {
	if err := dropText(tx, r.id); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO documents_fts (id, title, body, tags) VALUES (?, ?, ?, ?)`,
		r.id, r.title, r.body, strings.Join(r.tags, " "))
	if err != nil {
		return fmt.Errorf("index: put text %s: %w", r.id, err)
	}
	return nil
}

func dropText(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM documents_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: drop text %s: %w", id, err)
	}
	return nil
}
