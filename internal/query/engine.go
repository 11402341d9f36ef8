package query

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwintz/obsidianp-sub000/internal/collection"
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/filter"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/store"
)

// DefaultParallelThreshold is the store size from which root filters are
// evaluated concurrently.
const DefaultParallelThreshold = 256

// Engine evaluates every collection against a document store.
type Engine struct {
	// Now is the clock used by formulas. Defaults to time.Now.
	Now func() time.Time
	// Workers bounds concurrent filter evaluation. Defaults to GOMAXPROCS.
	Workers int
	// ParallelThreshold defaults to DefaultParallelThreshold.
	ParallelThreshold int
}

// Run evaluates each collection of cs against s and returns a new
// collection store whose collections carry Matched and Results. cs is left
// unchanged.
func (e *Engine) Run(ctx context.Context, cs *collection.Store, s *store.Store) (*collection.Store, []diag.Diagnostic, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	at := now()
	docs := s.Documents()

	type outcome struct {
		matched []string
		results map[string]*models.ViewResult
	}
	outcomes := make(map[string]outcome, cs.Len())
	var ds []diag.Diagnostic

	for _, c := range cs.Collections() {
		items, err := e.filter(ctx, c, docs)
		if err != nil {
			return nil, nil, fmt.Errorf("query: filter %s: %w", c.ID, err)
		}
		ds = append(ds, EvaluateFormulas(c, items, at)...)

		o := outcome{
			matched: make([]string, 0, len(items)),
			results: make(map[string]*models.ViewResult, len(c.Views)),
		}
		for _, it := range items {
			o.matched = append(o.matched, it.Doc.ID)
		}
		views := c.Views
		if len(views) == 0 {
			views = []models.View{c.DefaultView()}
		}
		for _, v := range views {
			o.results[v.Name] = EvaluateView(v, items)
		}
		outcomes[c.ID] = o
	}

	next := cs.With(func(c *models.Collection) {
		o := outcomes[c.ID]
		c.Matched = o.matched
		c.Results = o.results
	})
	return next, ds, nil
}

// filter applies the root filter, concurrently for large stores. The result
// keeps store order.
func (e *Engine) filter(ctx context.Context, c *models.Collection, docs []*models.Document) ([]*Item, error) {
	threshold := e.ParallelThreshold
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	if len(docs) < threshold {
		return FilterCollection(c, docs), nil
	}

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(docs) + workers - 1) / workers

	keep := make([]*Item, len(docs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(docs); start += chunk {
		end := min(start+chunk, len(docs))
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				it := NewItem(docs[i], c)
				if filter.Eval(c.Filter, it) {
					keep[i] = it
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Item, 0, len(docs))
	for _, it := range keep {
		if it != nil {
			out = append(out, it)
		}
	}
	return out, nil
}
