// Package pipeline runs the graph phases in order and hands out the
// finished, read-only graph.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/apperr"
	"github.com/jwintz/obsidianp-sub000/internal/collection"
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/embed"
	"github.com/jwintz/obsidianp-sub000/internal/linkgraph"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/query"
	"github.com/jwintz/obsidianp-sub000/internal/render"
	"github.com/jwintz/obsidianp-sub000/internal/store"
)

// ErrEmptyInput is returned when there is nothing to build.
var ErrEmptyInput = apperr.ErrEmptyInput

// Input is the raw material of one build.
type Input struct {
	Documents   []store.RawDocument
	Collections []collection.Raw
	// Diagnostics raised before the build (e.g. unreadable files) are
	// carried through to the graph.
	Diagnostics []diag.Diagnostic
}

// Graph is the finished result of a build. It is never modified after
// Build returns and may be shared between goroutines.
type Graph struct {
	Store       *store.Store
	Links       *linkgraph.Graph
	Collections *collection.Store
	Tags        map[string][]string
	Categories  map[string][]string
	Diagnostics []diag.Diagnostic
	BuiltAt     time.Time
}

// Document returns the document with the given ID.
func (g *Graph) Document(id string) (*models.Document, bool) {
	return g.Store.Get(id)
}

// Collection returns the collection with the given ID.
func (g *Graph) Collection(id string) (*models.Collection, bool) {
	return g.Collections.Get(id)
}

type options struct {
	maxDepth     int
	workers      int
	now          func() time.Time
	logger       *slog.Logger
	placeholders embed.Placeholders
	collExts     []string
}

// Option configures Build.
type Option func(*options)

// WithMaxEmbedDepth bounds nested document embeds.
func WithMaxEmbedDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithWorkers bounds concurrency in every phase.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithClock sets the clock used for formulas and BuiltAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPlaceholders replaces the default HTML embed placeholders.
func WithPlaceholders(p embed.Placeholders) Option {
	return func(o *options) { o.placeholders = p }
}

// WithCollectionExtensions sets the file extensions that mark an embed
// target as a collection.
func WithCollectionExtensions(exts ...string) Option {
	return func(o *options) { o.collExts = exts }
}

func newOptions(opts []Option) options {
	o := options{
		maxDepth:     embed.DefaultMaxDepth,
		now:          time.Now,
		logger:       slog.Default(),
		placeholders: render.HTML{LinkPrefix: "/"},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Build runs store assembly, link resolution, collection evaluation and
// embed resolution. Only an empty input or a cancelled context is fatal;
// everything else ends up in Graph.Diagnostics.
func Build(ctx context.Context, in Input, opts ...Option) (*Graph, error) {
	if len(in.Documents) == 0 && len(in.Collections) == 0 {
		return nil, ErrEmptyInput
	}
	o := newOptions(opts)
	start := o.now()

	var ds diag.List
	ds.Add(in.Diagnostics...)

	s, sds := store.Build(in.Documents)
	ds.Add(sds...)

	s, links, lds := linkgraph.Build(s)
	ds.Add(lds...)

	cs, cds := collection.Build(in.Collections)
	ds.Add(cds...)

	engine := &query.Engine{Now: func() time.Time { return start }, Workers: o.workers}
	cs, qds, err := engine.Run(ctx, cs, s)
	if err != nil {
		return nil, fmt.Errorf("pipeline: query: %w", err)
	}
	ds.Add(qds...)

	s, eds, err := embed.ResolveAll(ctx, s, cs, embed.Options{
		Placeholders:         o.placeholders,
		MaxDepth:             o.maxDepth,
		Workers:              o.workers,
		CollectionExtensions: o.collExts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: embed: %w", err)
	}
	ds.Add(eds...)

	g := &Graph{
		Store:       s,
		Links:       links,
		Collections: cs,
		Tags:        s.Tags(),
		Categories:  s.Categories(),
		Diagnostics: ds.Items(),
		BuiltAt:     start,
	}
	o.logger.Info("pipeline: built",
		slog.Int("documents", s.Len()),
		slog.Int("collections", cs.Len()),
		slog.Int("diagnostics", len(g.Diagnostics)),
		slog.Duration("elapsed", o.now().Sub(start)))
	return g, nil
}

type export struct {
	BuiltAt     time.Time            `json:"built_at"`
	Documents   []*models.Document   `json:"documents"`
	Collections []*models.Collection `json:"collections"`
	Links       []models.Link        `json:"links"`
	Tags        map[string][]string  `json:"tags"`
	Categories  map[string][]string  `json:"categories"`
	Diagnostics []diag.Diagnostic    `json:"diagnostics"`
	Counts      map[diag.Kind]int    `json:"diagnostic_counts"`
}

// Export serialises the graph as indented JSON.
func Export(g *Graph) ([]byte, error) {
	out := export{
		BuiltAt:     g.BuiltAt,
		Documents:   g.Store.Documents(),
		Collections: g.Collections.Collections(),
		Links:       g.Links.Links(g.Store),
		Tags:        g.Tags,
		Categories:  g.Categories,
		Diagnostics: g.Diagnostics,
		Counts:      diag.Count(g.Diagnostics),
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []diag.Diagnostic{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("pipeline: export: %w", err)
	}
	return data, nil
}

// Diff reports the documents of next that are new or whose expanded body
// changed since prev, and the IDs of prev that are gone. Both lists follow
// store order. A nil prev counts every document as changed.
func Diff(prev, next *Graph) (changed, removed []string) {
	for _, d := range next.Store.Documents() {
		if prev == nil {
			changed = append(changed, d.ID)
			continue
		}
		old, ok := prev.Document(d.ID)
		if !ok || old.Expanded != d.Expanded || old.Title != d.Title {
			changed = append(changed, d.ID)
		}
	}
	if prev == nil {
		return changed, nil
	}
	for _, d := range prev.Store.Documents() {
		if _, ok := next.Document(d.ID); !ok {
			removed = append(removed, d.ID)
		}
	}
	return changed, removed
}
