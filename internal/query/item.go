// Package query evaluates collections against the document store: root and
// view filters, formulas, sorting, limits and grouping.
package query

import (
	"path"
	"strings"

	"github.com/jwintz/obsidianp-sub000/internal/ident"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// Item is a document as seen through one collection: its metadata, the
// collection's property defaults and the formula values derived for it.
// Items are created fresh for every evaluation; the document is never
// modified.
type Item struct {
	Doc     *models.Document
	Display map[string]value.Value

	props map[string]models.PropertyDef
}

// NewItem wraps doc for evaluation under c. c may be nil.
func NewItem(doc *models.Document, c *models.Collection) *Item {
	it := &Item{Doc: doc, Display: make(map[string]value.Value)}
	if c != nil {
		it.props = c.Properties
	}
	return it
}

// Property resolves a property key.
//
// "file.x" reads file facts, "formula.x" reads derived values, "note.x"
// reads metadata. A bare key reads a file fact only for name, path, size,
// mtime, ctime and tags; any other bare key reads metadata. Absent metadata
// falls back to the collection's declared default.
func (it *Item) Property(key string) value.Value {
	key = strings.TrimSpace(key)
	switch {
	case strings.HasPrefix(key, "formula."):
		return it.Display[strings.TrimPrefix(key, "formula.")]
	case strings.HasPrefix(key, "note."):
		return it.meta(strings.TrimPrefix(key, "note."))
	case strings.HasPrefix(key, "file."):
		if v, ok := it.builtin(strings.TrimPrefix(key, "file.")); ok {
			return v
		}
		return value.Null
	}
	if bareBuiltins[key] {
		v, _ := it.builtin(key)
		return v
	}
	return it.meta(key)
}

var bareBuiltins = map[string]bool{
	"name": true, "path": true, "size": true, "mtime": true, "ctime": true,
	"tags": true, "tag": true,
}

func (it *Item) builtin(name string) (value.Value, bool) {
	d := it.Doc
	switch name {
	case "name", "basename":
		return value.OfString(d.Name()), true
	case "path":
		return value.OfString(d.Path), true
	case "id":
		return value.OfString(d.ID), true
	case "title":
		return value.OfString(d.Title), true
	case "folder":
		return value.OfString(ident.Dir(strings.ReplaceAll(d.Path, `\`, "/"))), true
	case "ext":
		return value.OfString(strings.TrimPrefix(path.Ext(d.Path), ".")), true
	case "tags", "tag":
		return value.OfList(append([]string(nil), d.Tags...)), true
	case "links":
		return value.OfList(append([]string(nil), d.Outgoing...)), true
	case "backlinks":
		return value.OfList(append([]string(nil), d.Backlinks...)), true
	case "size":
		if d.Stats == nil {
			return value.Null, true
		}
		return value.OfNumber(float64(d.Stats.Size)), true
	case "mtime":
		if d.Stats == nil || d.Stats.ModTime.IsZero() {
			return value.Null, true
		}
		return value.OfTime(d.Stats.ModTime), true
	case "ctime":
		return it.ctime(), true
	}
	return value.Null, false
}

// ctime prefers a "created" metadata date, then the recorded creation time,
// then the modification time.
func (it *Item) ctime() value.Value {
	if t, ok := it.Doc.Metadata["created"].AsTime(); ok {
		return value.OfTime(t)
	}
	st := it.Doc.Stats
	switch {
	case st == nil:
		return value.Null
	case !st.Created.IsZero():
		return value.OfTime(st.Created)
	case !st.ModTime.IsZero():
		return value.OfTime(st.ModTime)
	}
	return value.Null
}

func (it *Item) meta(key string) value.Value {
	def, declared := it.props["note."+key]
	if !declared {
		def, declared = it.props[key]
	}

	v, ok := it.Doc.Metadata[key]
	if !ok || v.IsAbsent() {
		if !declared {
			return value.Null
		}
		v = def.Default
	}
	if declared && def.Type != "" {
		return value.Coerce(v, def.Type)
	}
	return v
}

// HasTag reports whether the document carries tag or one of its children.
func (it *Item) HasTag(tag string) bool {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	for _, t := range it.Doc.Tags {
		if strings.EqualFold(t, tag) || (len(t) > len(tag) && strings.EqualFold(t[:len(tag)], tag) && t[len(tag)] == '/') {
			return true
		}
	}
	return false
}
