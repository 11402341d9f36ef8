// Package embed expands embed markers in formatted document bodies.
//
// Markers have the form ![[target]], ![[target#section]] or
// ![[target|alias]]. A target naming a collection file embeds one of its
// views. Attachments (images, audio, video, PDF) are left untouched.
package embed

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jwintz/obsidianp-sub000/internal/collection"
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/ident"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/parser"
	"github.com/jwintz/obsidianp-sub000/internal/store"
)

// DefaultMaxDepth bounds nested document embeds.
const DefaultMaxDepth = 4

var (
	markerRe = regexp.MustCompile(`!\[\[([^\[\]]+)\]\]`)
	// Markers inside code are shown, not expanded.
	codeRe = regexp.MustCompile(`(?s)<pre[\s>].*?</pre>|<code[\s>].*?</code>`)
)

// Placeholders synthesises the text substituted for each marker.
type Placeholders interface {
	// Document wraps the already expanded content of an embedded document.
	Document(doc *models.Document, section, alias, content string) string
	// Collection renders a view from its ordered result IDs.
	Collection(c *models.Collection, view models.View, ids []string) string
	Cycle(target string) string
	Broken(target string) string
	Depth(target string, limit int) string
}

// Options configure resolution.
type Options struct {
	Placeholders Placeholders
	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth int
	// Workers bounds concurrent top-level resolutions. Defaults to GOMAXPROCS.
	Workers int
	// CollectionExtensions defaults to collection.DefaultExtension.
	CollectionExtensions []string
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// resolver expands one top-level document. It owns the visiting set and is
// not shared between goroutines.
type resolver struct {
	docs     *store.Store
	colls    *collection.Store
	opts     Options
	root     string
	visiting map[string]struct{}
	diags    []diag.Diagnostic
}

// Resolve returns doc's body with every embed marker expanded.
func Resolve(doc *models.Document, s *store.Store, cs *collection.Store, opts Options) (string, []diag.Diagnostic) {
	r := &resolver{
		docs:     s,
		colls:    cs,
		opts:     opts,
		root:     doc.ID,
		visiting: map[string]struct{}{doc.ID: {}},
	}
	out := r.expand(doc.Body, 0)
	return out, r.diags
}

// ResolveAll expands every document of s concurrently and returns a new
// Store whose documents carry Expanded. Diagnostics are in store order.
func ResolveAll(ctx context.Context, s *store.Store, cs *collection.Store, opts Options) (*store.Store, []diag.Diagnostic, error) {
	docs := s.Documents()
	expanded := make([]string, len(docs))
	perDoc := make([][]diag.Diagnostic, len(docs))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			expanded[i], perDoc[i] = Resolve(d, s, cs, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("embed: resolve: %w", err)
	}

	byID := make(map[string]string, len(docs))
	var ds []diag.Diagnostic
	for i, d := range docs {
		byID[d.ID] = expanded[i]
		ds = append(ds, perDoc[i]...)
	}
	next := s.With(func(d *models.Document) { d.Expanded = byID[d.ID] })
	return next, ds, nil
}

func (r *resolver) report(kind diag.Kind, target, format string, args ...any) {
	r.diags = append(r.diags, diag.New(kind, r.root, target, format, args...))
}

func (r *resolver) expand(body string, depth int) string {
	code := codeRe.FindAllStringIndex(body, -1)
	var b strings.Builder
	last := 0
	for _, loc := range markerRe.FindAllStringSubmatchIndex(body, -1) {
		if inside(code, loc[0]) {
			continue
		}
		b.WriteString(body[last:loc[0]])
		b.WriteString(r.replace(body[loc[0]:loc[1]], body[loc[2]:loc[3]], depth))
		last = loc[1]
	}
	if last == 0 {
		return body
	}
	b.WriteString(body[last:])
	return b.String()
}

func (r *resolver) replace(marker, inner string, depth int) string {
	target, section, alias := ident.SplitTarget(html.UnescapeString(inner))
	switch {
	case target == "" || parser.IsAsset(target):
		return marker
	case collection.IsCollection(target, r.opts.CollectionExtensions):
		return r.embedCollection(target, section)
	default:
		return r.embedDocument(target, section, alias, depth)
	}
}

// inside reports whether offset falls in one of the sorted spans.
func inside(spans [][]int, offset int) bool {
	i := sort.Search(len(spans), func(i int) bool { return spans[i][1] > offset })
	return i < len(spans) && spans[i][0] <= offset
}

func (r *resolver) embedDocument(target, section, alias string, depth int) string {
	p := r.opts.Placeholders
	id, ok := r.docs.Resolve(target)
	if !ok {
		r.report(diag.BrokenEmbed, target, "embedded document not found")
		return p.Broken(target)
	}
	if _, busy := r.visiting[id]; busy {
		r.report(diag.EmbedCycle, target, "embed cycle through %s", id)
		return p.Cycle(target)
	}
	if depth >= r.opts.maxDepth() {
		r.report(diag.EmbedDepth, target, "embed depth exceeds %d", r.opts.maxDepth())
		return p.Depth(target, r.opts.maxDepth())
	}
	if section != "" {
		r.report(diag.HeadingUnsupported, target+"#"+section, "section embeds show the whole document")
	}

	doc, _ := r.docs.Get(id)
	r.visiting[id] = struct{}{}
	content := r.expand(doc.Body, depth+1)
	delete(r.visiting, id)
	return p.Document(doc, section, alias, content)
}

func (r *resolver) embedCollection(target, viewName string) string {
	p := r.opts.Placeholders
	if r.colls == nil {
		r.report(diag.BrokenEmbed, target, "embedded collection not found")
		return p.Broken(target)
	}
	id, ok := r.colls.Resolve(target)
	if !ok {
		r.report(diag.BrokenEmbed, target, "embedded collection not found")
		return p.Broken(target)
	}
	c, _ := r.colls.Get(id)

	view := c.DefaultView()
	if viewName != "" {
		if v, found := c.View(viewName); found {
			view = v
		} else {
			r.report(diag.UnknownView, target, "view %q not found, using %q", viewName, view.Name)
		}
	}

	var ids []string
	if res, ok := c.Results[view.Name]; ok {
		ids = res.IDs
	}
	return p.Collection(c, view, ids)
}
