package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jwintz/obsidianp-sub000/internal/collection"
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/ident"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/parser"
	"github.com/jwintz/obsidianp-sub000/internal/render"
	"github.com/jwintz/obsidianp-sub000/internal/storage"
	"github.com/jwintz/obsidianp-sub000/internal/store"
)

// IngestOptions configure Ingest.
type IngestOptions struct {
	// Workers bounds concurrent reads. Defaults to GOMAXPROCS.
	Workers int
	// CollectionExtensions defaults to collection.DefaultExtension.
	CollectionExtensions []string
	Logger               *slog.Logger
}

// ingested is the per-file outcome, merged in listing order.
type ingested struct {
	doc  *store.RawDocument
	coll *collection.Raw
	diag *diag.Diagnostic
}

// Ingest lists the vault, reads and parses every file and renders document
// bodies with r. Files that cannot be read or rendered become diagnostics;
// failing to list the vault is fatal.
func Ingest(ctx context.Context, p storage.Provider, r render.Content, opts IngestOptions) (Input, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metas, err := p.List("")
	if err != nil {
		return Input{}, fmt.Errorf("pipeline: ingest: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]ingested, len(metas))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range metas {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out[i] = ingestOne(p, r, m, opts.CollectionExtensions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Input{}, fmt.Errorf("pipeline: ingest: %w", err)
	}

	var in Input
	for _, o := range out {
		switch {
		case o.diag != nil:
			in.Diagnostics = append(in.Diagnostics, *o.diag)
		case o.coll != nil:
			in.Collections = append(in.Collections, *o.coll)
		case o.doc != nil:
			in.Documents = append(in.Documents, *o.doc)
		}
	}
	logger.Debug("pipeline: ingested",
		slog.Int("documents", len(in.Documents)),
		slog.Int("collections", len(in.Collections)),
		slog.Int("failed", len(in.Diagnostics)))
	return in, nil
}

func ingestOne(p storage.Provider, r render.Content, m models.NoteMetadata, collExts []string) ingested {
	fail := func(err error) ingested {
		d := diag.New(diag.ReadFailed, ident.Normalize(m.Path), m.Path, "%v", err)
		return ingested{diag: &d}
	}

	data, err := p.Read(m.Path)
	if err != nil {
		return fail(err)
	}
	if collection.IsCollection(m.Path, collExts) {
		return ingested{coll: &collection.Raw{Path: m.Path, Data: data}}
	}

	res := parser.Parse(data)
	body, err := r.Render([]byte(res.Body))
	if err != nil {
		return fail(err)
	}

	refs := make([]string, 0, len(res.Links))
	for _, l := range res.Links {
		if !collection.IsCollection(l, collExts) {
			refs = append(refs, l)
		}
	}
	return ingested{doc: &store.RawDocument{
		Path:       m.Path,
		Metadata:   res.Frontmatter,
		Body:       body,
		Source:     string(data),
		References: refs,
		Tags:       res.Tags,
		Title:      res.Title,
		Stats:      &models.FileStats{Size: m.Size, ModTime: m.UpdatedAt},
	}}
}
