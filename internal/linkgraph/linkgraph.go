// Package linkgraph resolves document references into a bidirectional link
// graph.
package linkgraph

import (
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/store"
)

// Reference is a reference that matched no document.
type Reference struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph holds the resolved edges of one build.
type Graph struct {
	Outgoing   map[string][]string `json:"outgoing"`
	Backlinks  map[string][]string `json:"backlinks"`
	Unresolved []Reference         `json:"unresolved,omitempty"`
}

// Links returns every edge in store order of the source document.
func (g *Graph) Links(s *store.Store) []models.Link {
	var out []models.Link
	for _, d := range s.Documents() {
		for _, tgt := range g.Outgoing[d.ID] {
			out = append(out, models.Link{Source: d.ID, Target: tgt})
		}
	}
	return out
}

// Build resolves every document's references against s.
//
// Outgoing lists are de-duplicated in first-reference order. Backlinks are
// appended in store order of the referencing document, so
// A in Backlinks[B] exactly when B in Outgoing[A]. Self references are
// dropped. The returned Store carries Outgoing and Backlinks on each
// document; s is left unchanged.
func Build(s *store.Store) (*store.Store, *Graph, []diag.Diagnostic) {
	var ds []diag.Diagnostic
	g := &Graph{
		Outgoing:  make(map[string][]string, s.Len()),
		Backlinks: make(map[string][]string, s.Len()),
	}

	for _, d := range s.Documents() {
		seen := make(map[string]struct{}, len(d.References))
		for _, ref := range d.References {
			tgt, ok := s.Resolve(ref)
			if !ok {
				g.Unresolved = append(g.Unresolved, Reference{Source: d.ID, Target: ref})
				ds = append(ds, diag.New(diag.UnresolvedReference, d.ID, ref, "reference matches no document"))
				continue
			}
			if tgt == d.ID {
				continue // no self-edges
			}
			if _, dup := seen[tgt]; dup {
				continue
			}
			seen[tgt] = struct{}{}
			g.Outgoing[d.ID] = append(g.Outgoing[d.ID], tgt)
			g.Backlinks[tgt] = append(g.Backlinks[tgt], d.ID)
		}
	}

	next := s.With(func(d *models.Document) {
		d.Outgoing = append([]string(nil), g.Outgoing[d.ID]...)
		d.Backlinks = append([]string(nil), g.Backlinks[d.ID]...)
	})
	return next, g, ds
}
