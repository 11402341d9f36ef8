// Package testutil provides shared test helpers for setting up vaults,
// graphs and databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/index"
	"github.com/jwintz/obsidianp-sub000/internal/pipeline"
	"github.com/jwintz/obsidianp-sub000/internal/render"
	"github.com/jwintz/obsidianp-sub000/internal/storage"
)

// Clock is the fixed build time used by TestGraph.
var Clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vaultgraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault holding files (relative path to
// content) and returns its root and provider.
func TestVault(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	fs, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := fs.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return vaultDir, fs
}

// TestGraph ingests files from a temporary vault and builds their graph.
func TestGraph(t *testing.T, files map[string]string) *pipeline.Graph {
	t.Helper()
	_, fs := TestVault(t, files)
	return BuildGraph(t, fs)
}

// BuildGraph ingests every file of p and builds the graph at Clock.
func BuildGraph(t *testing.T, p storage.Provider) *pipeline.Graph {
	t.Helper()
	ctx := context.Background()
	in, err := pipeline.Ingest(ctx, p, render.NewMarkdown("/"), pipeline.IngestOptions{Logger: Logger()})
	if err != nil {
		t.Fatal(err)
	}
	g, err := pipeline.Build(ctx, in,
		pipeline.WithLogger(Logger()),
		pipeline.WithClock(func() time.Time { return Clock }))
	if err != nil {
		t.Fatal(err)
	}
	return g
}
