// Package store assembles raw documents into the immutable Document Store.
package store

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/ident"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// RawDocument is one document as produced by the ingest layer.
type RawDocument struct {
	Path string
	// Metadata is the undecoded YAML block, nil when the document has none.
	Metadata   []byte
	Body       string
	Source     string
	References []string
	Tags       []string
	Title      string
	Stats      *models.FileStats
}

// Store holds the documents of one build, in input order.
// A Store is never mutated after construction; use With to derive a new one.
type Store struct {
	docs     []*models.Document
	byID     map[string]*models.Document
	byBase   map[string][]string
	byAlias  map[string]string
	shadowed []*models.Document
}

// Build assembles a Store from raw documents.
func Build(raws []RawDocument) (*Store, []diag.Diagnostic) {
	var ds []diag.Diagnostic
	reg := ident.NewRegistry()
	docs := make([]*models.Document, 0, len(raws))
	var shadowed []*models.Document

	for _, raw := range raws {
		a := reg.Register(raw.Path)
		doc, problem := assemble(a.ID, raw)
		if problem != "" {
			ds = append(ds, diag.New(diag.MalformedMetadata, a.ID, "", "metadata ignored: %s", problem))
		}

		if a.Duplicate {
			shadowed = append(shadowed, doc)
			ds = append(ds, diag.New(diag.ShadowedDocument, a.ID, raw.Path, "duplicate path %q ignored", raw.Path))
			continue
		}
		if a.Collided != "" {
			ds = append(ds, diag.New(diag.IdentifierCollision, a.ID, a.Collided,
				"%q normalises to the same identifier as %q", raw.Path, a.Collided))
		}
		docs = append(docs, doc)
	}

	s := index(docs)
	s.shadowed = shadowed
	return s, ds
}

func index(docs []*models.Document) *Store {
	s := &Store{
		docs:    docs,
		byID:    make(map[string]*models.Document, len(docs)),
		byBase:  make(map[string][]string, len(docs)),
		byAlias: make(map[string]string),
	}
	for _, d := range docs {
		s.byID[d.ID] = d
		b := ident.Base(d.ID)
		s.byBase[b] = append(s.byBase[b], d.ID)
	}
	for _, d := range docs {
		for _, alias := range d.Aliases {
			key := ident.Normalize(alias)
			if _, ok := s.byAlias[key]; !ok && key != "" {
				s.byAlias[key] = d.ID
			}
		}
	}
	return s
}

// assemble builds a Document from raw input. A non-empty problem means the
// metadata block could not be decoded and was replaced by an empty map.
func assemble(id string, raw RawDocument) (*models.Document, string) {
	meta, problem := decodeMetadata(raw.Metadata)

	doc := &models.Document{
		ID:         id,
		Path:       raw.Path,
		Source:     raw.Source,
		Body:       raw.Body,
		Metadata:   meta,
		References: append([]string(nil), raw.References...),
		Stats:      raw.Stats,
	}

	switch {
	case meta["title"].Kind == value.String && strings.TrimSpace(meta["title"].Str) != "":
		doc.Title = strings.TrimSpace(meta["title"].Str)
	case raw.Title != "":
		doc.Title = raw.Title
	default:
		doc.Title = doc.Name()
	}

	doc.Tags = mergeTags(listOf(meta, "tags", "tag"), raw.Tags)
	doc.Aliases = listOf(meta, "aliases", "alias")
	return doc, problem
}

func decodeMetadata(block []byte) (map[string]value.Value, string) {
	meta := make(map[string]value.Value)
	if len(strings.TrimSpace(string(block))) == 0 {
		return meta, ""
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(block, &decoded); err != nil {
		return meta, err.Error()
	}
	for k, v := range decoded {
		meta[k] = value.FromAny(v)
	}
	return meta, ""
}

// listOf reads the first present key as a list of strings. A plain string
// is split on commas.
func listOf(meta map[string]value.Value, keys ...string) []string {
	for _, k := range keys {
		v, ok := meta[k]
		if !ok || v.IsAbsent() {
			continue
		}
		switch v.Kind {
		case value.List:
			return append([]string(nil), v.List...)
		default:
			var out []string
			for _, part := range strings.Split(v.String(), ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return nil
}

func mergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of documents.
func (s *Store) Len() int { return len(s.docs) }

// Documents returns the documents in store order. The slice is a copy; the
// documents themselves must be treated as read-only.
func (s *Store) Documents() []*models.Document {
	out := make([]*models.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Get returns the document with the given ID.
func (s *Store) Get(id string) (*models.Document, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// Shadowed returns the documents dropped because their path was already
// present.
func (s *Store) Shadowed() []*models.Document {
	return append([]*models.Document(nil), s.shadowed...)
}

// Resolve maps a reference target to a document ID. It tries, in order, an
// exact ID match, a file-name match and an alias match.
func (s *Store) Resolve(ref string) (string, bool) {
	target, _, _ := ident.SplitTarget(ref)
	id := ident.Normalize(target)
	if id == "" {
		return "", false
	}
	if _, ok := s.byID[id]; ok {
		return id, true
	}
	if !strings.Contains(id, "/") {
		if ids := s.byBase[id]; len(ids) > 0 {
			return ids[0], true
		}
	} else {
		// A partial path matches the first document in store order whose
		// ID ends with it.
		for _, found := range s.byBase[path.Base(id)] {
			if strings.HasSuffix(found, "/"+id) {
				return found, true
			}
		}
	}
	if found, ok := s.byAlias[id]; ok {
		return found, true
	}
	return "", false
}

// With returns a new Store whose documents are copies of s's, each passed
// through fn. IDs and order must not be changed by fn.
func (s *Store) With(fn func(d *models.Document)) *Store {
	docs := make([]*models.Document, len(s.docs))
	for i, d := range s.docs {
		c := d.Clone()
		fn(c)
		docs[i] = c
	}
	next := index(docs)
	next.shadowed = s.shadowed
	return next
}

// Tags returns tag -> document IDs, IDs in store order.
func (s *Store) Tags() map[string][]string {
	out := make(map[string][]string)
	for _, d := range s.docs {
		for _, t := range d.Tags {
			out[t] = append(out[t], d.ID)
		}
	}
	return out
}

// Categories returns category -> document IDs from the "category" or
// "categories" metadata, IDs in store order.
func (s *Store) Categories() map[string][]string {
	out := make(map[string][]string)
	for _, d := range s.docs {
		for _, c := range listOf(d.Metadata, "categories", "category") {
			out[c] = append(out[c], d.ID)
		}
	}
	return out
}
