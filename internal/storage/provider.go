// Package storage defines the vault file-system abstraction.
package storage

import "github.com/jwintz/obsidianp-sub000/internal/models"

// Provider is the read side of the vault used by ingest.
type Provider interface {
	// List returns metadata for every vault file under dir (relative to vault
	// root) whose extension is accepted, in lexical path order.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
}

// Writer stores generated artefacts.
type Writer interface {
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
}
