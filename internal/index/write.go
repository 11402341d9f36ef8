package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/models"
)

type row struct {
	id       string
	ord      int
	path     string
	title    string
	checksum string
	tags     []string
	body     string
	modified *time.Time
}

func newRow(d *models.Document, ord int, checksum string) row {
	r := row{
		id:       d.ID,
		ord:      ord,
		path:     d.Path,
		title:    d.Title,
		checksum: checksum,
		tags:     append([]string{}, d.Tags...),
		body:     d.Source,
	}
	if d.Stats != nil && !d.Stats.ModTime.IsZero() {
		t := d.Stats.ModTime
		r.modified = &t
	}
	return r
}

func putDocument(tx *sql.Tx, r row) error {
	tags, err := json.Marshal(r.tags)
	if err != nil {
		return fmt.Errorf("index: encode tags: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO documents (id, ord, path, title, checksum, tags, body, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ord = excluded.ord, path = excluded.path, title = excluded.title,
			checksum = excluded.checksum, tags = excluded.tags,
			body = excluded.body, modified = excluded.modified`,
		r.id, r.ord, r.path, r.title, r.checksum, string(tags), r.body, r.modified)
	if err != nil {
		return fmt.Errorf("index: put document %s: %w", r.id, err)
	}
	return putText(tx, r)
}

func setOrder(tx *sql.Tx, id string, ord int) error {
	if _, err := tx.Exec(`UPDATE documents SET ord = ? WHERE id = ?`, ord, id); err != nil {
		return fmt.Errorf("index: reorder %s: %w", id, err)
	}
	return nil
}

// setLinks replaces the outgoing edges of source, keeping their order.
func setLinks(tx *sql.Tx, source string, targets []string) error {
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, source); err != nil {
		return fmt.Errorf("index: clear links of %s: %w", source, err)
	}
	if len(targets) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare links: %w", err)
	}
	defer stmt.Close()
	for i, t := range targets {
		if _, err := stmt.Exec(source, t, i); err != nil {
			return fmt.Errorf("index: link %s -> %s: %w", source, t, err)
		}
	}
	return nil
}

// dropDocument removes a document; its links go with it through the
// foreign key.
func dropDocument(tx *sql.Tx, id string) error {
	if err := dropText(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: drop %s: %w", id, err)
	}
	return nil
}

func checksums(db *DB) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: load checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, fmt.Errorf("index: load checksums: %w", err)
		}
		out[id] = cs
	}
	return out, rows.Err()
}
