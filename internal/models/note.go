// Package models defines the domain types shared by the graph phases.
package models

import (
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// Document is one note in the vault.
//
// Outgoing and Backlinks are filled by the link graph builder, Expanded by
// the embed resolver; every phase works on its own copy.
type Document struct {
	ID         string                 `json:"id"`
	Path       string                 `json:"path"`
	Title      string                 `json:"title"`
	Source     string                 `json:"-"`
	Body       string                 `json:"body"`
	Metadata   map[string]value.Value `json:"metadata,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Aliases    []string               `json:"aliases,omitempty"`
	References []string               `json:"references,omitempty"`
	Outgoing   []string               `json:"outgoing,omitempty"`
	Backlinks  []string               `json:"backlinks,omitempty"`
	Expanded   string                 `json:"expanded,omitempty"`
	Stats      *FileStats             `json:"stats,omitempty"`
}

// Clone returns a shallow copy whose slices can be replaced without
// affecting the original.
func (d *Document) Clone() *Document {
	c := *d
	return &c
}

// Name returns the file stem of the document.
func (d *Document) Name() string {
	base := d.Path
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i > 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// FileStats holds the file-system facts reported by the ingest layer.
type FileStats struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	Created time.Time `json:"ctime"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link represents a directed, resolved edge between two documents.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
