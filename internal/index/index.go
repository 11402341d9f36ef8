package index

import "fmt"

// Stats counts what the index currently mirrors.
type Stats struct {
	Documents int `json:"documents"`
	Links     int `json:"links"`
}

// Stats reports the number of indexed documents and link edges.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`SELECT (SELECT COUNT(*) FROM documents), (SELECT COUNT(*) FROM links)`).
		Scan(&s.Documents, &s.Links)
	if err != nil {
		return Stats{}, fmt.Errorf("index: stats: %w", err)
	}
	return s, nil
}
