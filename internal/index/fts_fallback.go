//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"strings"
)

// Without FTS5 search scans documents with LIKE.
var textMigrations []string

const searchSQL = `
	SELECT id, title, substr(body, 1, 160)
	FROM documents
	WHERE title LIKE ?1 ESCAPE '\' OR body LIKE ?1 ESCAPE '\' OR tags LIKE ?1 ESCAPE '\'
	ORDER BY ord
	LIMIT ?2`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func searchTerm(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

func putText(*sql.Tx, row) error { return nil }

func dropText(*sql.Tx, string) error { return nil }
