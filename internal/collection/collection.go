// Package collection decodes collection definitions and holds them in the
// Collection Store.
package collection

import (
	"path"
	"strings"

	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/ident"
	"github.com/jwintz/obsidianp-sub000/internal/models"
)

// DefaultExtension is the file extension of collection definitions.
const DefaultExtension = ".base"

// Raw is an undecoded collection definition.
type Raw struct {
	Path string
	Data []byte
}

// Store holds decoded collections in input order.
type Store struct {
	items  []*models.Collection
	byID   map[string]*models.Collection
	byBase map[string]string
	byStem map[string]string
}

// Build decodes every raw definition. Definitions that cannot be decoded
// are skipped with a malformed-collection diagnostic.
func Build(raws []Raw) (*Store, []diag.Diagnostic) {
	var ds []diag.Diagnostic
	reg := ident.NewRegistry()
	var items []*models.Collection

	for _, raw := range raws {
		a := reg.Register(raw.Path)
		if a.Duplicate {
			ds = append(ds, diag.New(diag.ShadowedDocument, a.ID, raw.Path, "duplicate collection path %q ignored", raw.Path))
			continue
		}
		if a.Collided != "" {
			ds = append(ds, diag.New(diag.IdentifierCollision, a.ID, a.Collided,
				"%q normalises to the same identifier as %q", raw.Path, a.Collided))
		}

		c, cds, err := Decode(a.ID, raw.Data)
		if err != nil {
			ds = append(ds, diag.New(diag.MalformedCollection, a.ID, "", "%v", err))
			continue
		}
		ds = append(ds, cds...)
		c.Path = raw.Path
		if c.Title == "" {
			c.Title = stem(raw.Path)
		}
		items = append(items, c)
	}

	return newStore(items), ds
}

func newStore(items []*models.Collection) *Store {
	s := &Store{
		items:  items,
		byID:   make(map[string]*models.Collection, len(items)),
		byBase: make(map[string]string, len(items)),
		byStem: make(map[string]string, len(items)),
	}
	for _, c := range items {
		s.byID[c.ID] = c
		b := ident.Base(c.ID)
		if _, ok := s.byBase[b]; !ok {
			s.byBase[b] = c.ID
		}
		if _, ok := s.byStem[stem(c.ID)]; !ok {
			s.byStem[stem(c.ID)] = c.ID
		}
	}
	return s
}

func stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Len returns the number of collections.
func (s *Store) Len() int { return len(s.items) }

// Collections returns the collections in input order.
func (s *Store) Collections() []*models.Collection {
	return append([]*models.Collection(nil), s.items...)
}

// Get returns the collection with the given ID.
func (s *Store) Get(id string) (*models.Collection, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Resolve maps an embed target such as "Tasks.base" or "views/tasks.base"
// to a collection ID. A reference without extension matches by file stem.
func (s *Store) Resolve(ref string) (string, bool) {
	id := ident.Normalize(ref)
	if _, ok := s.byID[id]; ok {
		return id, true
	}
	if found, ok := s.byBase[ident.Base(id)]; ok {
		return found, true
	}
	if path.Ext(id) == "" {
		if found, ok := s.byStem[ident.Base(id)]; ok {
			return found, true
		}
	}
	return "", false
}

// With returns a new Store holding copies of s's collections, each passed
// through fn.
func (s *Store) With(fn func(c *models.Collection)) *Store {
	items := make([]*models.Collection, len(s.items))
	for i, c := range s.items {
		cp := *c
		fn(&cp)
		items[i] = &cp
	}
	return newStore(items)
}

// IsCollection reports whether a path or link target names a collection
// file, given the configured extensions.
func IsCollection(target string, exts []string) bool {
	ext := strings.ToLower(path.Ext(target))
	if len(exts) == 0 {
		return ext == DefaultExtension
	}
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
