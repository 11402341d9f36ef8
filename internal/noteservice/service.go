// Package noteservice answers read queries against the most recent build of
// the vault graph. The HTTP API and the MCP server both go through it.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/jwintz/obsidianp-sub000/internal/apperr"
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/index"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/pipeline"
	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	ID        string                 `json:"id"`
	Path      string                 `json:"path"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Metadata  map[string]value.Value `json:"metadata,omitempty"`
	Tags      []string               `json:"tags"`
	Aliases   []string               `json:"aliases,omitempty"`
	Outgoing  []string               `json:"outgoing"`
	Backlinks []string               `json:"backlinks"`
	Stats     *models.FileStats      `json:"stats,omitempty"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	ID    string            `json:"id"`
	Path  string            `json:"path"`
	Title string            `json:"title"`
	Tags  []string          `json:"tags"`
	Stats *models.FileStats `json:"stats,omitempty"`
}

// CollectionSummary describes a collection without its results.
type CollectionSummary struct {
	ID          string   `json:"id"`
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Views       []string `json:"views"`
	Matched     int      `json:"matched"`
}

// GraphNode is a node of the link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Service serves the current graph. Swap replaces it atomically, so readers
// always see one complete build.
type Service struct {
	graph  atomic.Pointer[pipeline.Graph]
	db     *index.DB
	logger *slog.Logger
}

// NewService creates a service over g. db is optional; without it search
// falls back to a scan of the in-memory documents.
func NewService(g *pipeline.Graph, db *index.DB, logger *slog.Logger) *Service {
	s := &Service{db: db, logger: logger}
	s.graph.Store(g)
	return s
}

// Current returns the graph being served.
func (s *Service) Current() *pipeline.Graph {
	return s.graph.Load()
}

// Swap syncs the search index with g and starts serving it.
func (s *Service) Swap(g *pipeline.Graph) error {
	if s.db != nil {
		if err := index.Sync(s.db, g.Store.Documents(), s.logger); err != nil {
			return fmt.Errorf("noteservice: sync index: %w", err)
		}
	}
	s.graph.Store(g)
	return nil
}

// Resolve maps an ID, path, file name or alias to a document ID.
func (s *Service) Resolve(ref string) (string, error) {
	g := s.Current()
	if _, ok := g.Document(ref); ok {
		return ref, nil
	}
	if id, ok := g.Store.Resolve(ref); ok {
		return id, nil
	}
	return "", apperr.ErrNotFound
}

// GetDocument returns a single document.
func (s *Service) GetDocument(_ context.Context, ref string) (*DocumentDetail, error) {
	id, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	d, _ := s.Current().Document(id)
	body := d.Expanded
	if body == "" {
		body = d.Body
	}
	return &DocumentDetail{
		ID:        d.ID,
		Path:      d.Path,
		Title:     d.Title,
		Body:      body,
		Metadata:  d.Metadata,
		Tags:      nonNilSlice(d.Tags),
		Aliases:   d.Aliases,
		Outgoing:  nonNilSlice(d.Outgoing),
		Backlinks: nonNilSlice(d.Backlinks),
		Stats:     d.Stats,
	}, nil
}

// ListDocuments returns documents with an optional tag filter, sorted by
// sortBy ("title", "path" or "mtime"; store order otherwise). A limit of
// zero returns everything after offset.
func (s *Service) ListDocuments(_ context.Context, limit, offset int, tag, sortBy string) ([]DocumentListItem, int, error) {
	g := s.Current()
	var docs []*models.Document
	if tag != "" {
		tag = strings.TrimPrefix(tag, "#")
		for _, id := range g.Tags[tag] {
			d, _ := g.Document(id)
			docs = append(docs, d)
		}
	} else {
		docs = g.Store.Documents()
	}

	switch sortBy {
	case "title":
		sort.SliceStable(docs, func(i, j int) bool {
			return strings.ToLower(docs[i].Title) < strings.ToLower(docs[j].Title)
		})
	case "path":
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	case "mtime":
		sort.SliceStable(docs, func(i, j int) bool {
			return modTime(docs[i]).After(modTime(docs[j]))
		})
	}

	total := len(docs)
	if offset > total {
		offset = total
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	items := make([]DocumentListItem, len(docs))
	for i, d := range docs {
		items[i] = DocumentListItem{
			ID:    d.ID,
			Path:  d.Path,
			Title: d.Title,
			Tags:  nonNilSlice(d.Tags),
			Stats: d.Stats,
		}
	}
	return items, total, nil
}

// Search finds documents whose title or source contains query. With an
// index it delegates to SQLite full-text search.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if s.db != nil {
		return s.db.Search(query, limit)
	}
	var out []index.SearchResult
	for _, d := range s.Current().Store.Documents() {
		start, end := indexFold(d.Source, query)
		if start < 0 {
			if t, _ := indexFold(d.Title, query); t < 0 {
				continue
			}
		}
		out = append(out, index.SearchResult{ID: d.ID, Title: d.Title, Snippet: snippet(d.Source, start, end-start)})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]GraphNode, []models.Link) {
	g := s.Current()
	docs := g.Store.Documents()
	nodes := make([]GraphNode, len(docs))
	for i, d := range docs {
		nodes[i] = GraphNode{ID: d.ID, Title: d.Title}
	}
	return nodes, nonNilSlice(g.Links.Links(g.Store))
}

// Backlinks returns the IDs of documents linking to ref.
func (s *Service) Backlinks(_ context.Context, ref string) ([]string, error) {
	id, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(s.Current().Links.Backlinks[id]), nil
}

// Collections lists every collection.
func (s *Service) Collections(_ context.Context) []CollectionSummary {
	cs := s.Current().Collections.Collections()
	out := make([]CollectionSummary, len(cs))
	for i, c := range cs {
		views := make([]string, 0, len(c.Views))
		for _, v := range c.Views {
			views = append(views, v.Name)
		}
		if len(views) == 0 {
			views = append(views, c.DefaultView().Name)
		}
		out[i] = CollectionSummary{
			ID:          c.ID,
			Path:        c.Path,
			Title:       c.Title,
			Description: c.Description,
			Views:       views,
			Matched:     len(c.Matched),
		}
	}
	return out
}

// View returns the evaluated result of one view of a collection. An empty
// view name selects the default view.
func (s *Service) View(_ context.Context, collectionRef, viewName string) (*models.ViewResult, error) {
	cs := s.Current().Collections
	id, ok := cs.Resolve(collectionRef)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionRef, apperr.ErrNotFound)
	}
	c, _ := cs.Get(id)
	v := c.DefaultView()
	if viewName != "" {
		found, ok := c.View(viewName)
		if !ok {
			return nil, fmt.Errorf("view %q: %w", viewName, apperr.ErrNotFound)
		}
		v = found
	}
	res, ok := c.Results[v.Name]
	if !ok {
		return nil, fmt.Errorf("view %q: %w", v.Name, apperr.ErrNotFound)
	}
	return res, nil
}

// Tags returns tag -> document IDs.
func (s *Service) Tags(_ context.Context) map[string][]string {
	return s.Current().Tags
}

// Diagnostics returns the build diagnostics, optionally only those of kind.
func (s *Service) Diagnostics(_ context.Context, kind string) []diag.Diagnostic {
	all := s.Current().Diagnostics
	if kind == "" {
		return nonNilSlice(all)
	}
	out := []diag.Diagnostic{}
	for _, d := range all {
		if string(d.Kind) == kind {
			out = append(out, d)
		}
	}
	return out
}

// indexFold finds needle in s under Unicode case folding and returns the
// byte range of the first match in s, or -1, -1.
func indexFold(s, needle string) (int, int) {
	if needle == "" {
		return 0, 0
	}
	for i := range s {
		j, k := i, 0
		for k < len(needle) && j < len(s) {
			r1, n1 := utf8.DecodeRuneInString(s[j:])
			r2, n2 := utf8.DecodeRuneInString(needle[k:])
			if r1 != r2 && !strings.EqualFold(string(r1), string(r2)) {
				break
			}
			j, k = j+n1, k+n2
		}
		if k == len(needle) {
			return i, j
		}
	}
	return -1, -1
}

// snippet returns the text around src[at:at+n], widened to rune boundaries.
func snippet(src string, at, n int) string {
	const radius = 40
	if at < 0 {
		at, n = 0, 0
	}
	at = min(at, len(src))
	start := max(at-radius, 0)
	end := min(at+n+radius, len(src))
	for start > 0 && !utf8.RuneStart(src[start]) {
		start--
	}
	for end < len(src) && !utf8.RuneStart(src[end]) {
		end++
	}
	out := strings.Join(strings.Fields(src[start:end]), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(src) {
		out += "..."
	}
	return out
}

func modTime(d *models.Document) time.Time {
	if d.Stats == nil {
		return time.Time{}
	}
	return d.Stats.ModTime
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
