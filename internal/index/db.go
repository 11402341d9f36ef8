// Package index mirrors a finished graph into SQLite: one row per document
// in store order, its resolved outgoing links, and a full-text table when
// built with the sqlite_fts5 tag.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// migrations are applied in order; PRAGMA user_version counts the applied
// steps. Build-tag specific steps are appended last.
var migrations = []string{
	`CREATE TABLE documents (
		id       TEXT PRIMARY KEY,
		ord      INTEGER NOT NULL,
		path     TEXT NOT NULL DEFAULT '',
		title    TEXT NOT NULL DEFAULT '',
		checksum TEXT NOT NULL DEFAULT '',
		tags     TEXT NOT NULL DEFAULT '[]',
		body     TEXT NOT NULL DEFAULT '',
		modified DATETIME
	)`,
	`CREATE TABLE links (
		source   TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		target   TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (source, target)
	)`,
	`CREATE INDEX links_by_target ON links(target)`,
}

// DB is an open index database.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the index at dsn and brings its schema up to date.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := migrate(conn, append(migrations[:len(migrations):len(migrations)], textMigrations...)); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB, steps []string) error {
	var applied int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&applied); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	for i := applied; i < len(steps); i++ {
		if _, err := conn.Exec(steps[i]); err != nil {
			return fmt.Errorf("index: migration %d: %w", i+1, err)
		}
		if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("index: record migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}
