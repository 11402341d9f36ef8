// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/jwintz/obsidianp-sub000/internal/api"
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/index"
	"github.com/jwintz/obsidianp-sub000/internal/mcpserver"
	"github.com/jwintz/obsidianp-sub000/internal/noteservice"
	"github.com/jwintz/obsidianp-sub000/internal/pipeline"
	"github.com/jwintz/obsidianp-sub000/internal/render"
	"github.com/jwintz/obsidianp-sub000/internal/sse"
	"github.com/jwintz/obsidianp-sub000/internal/storage"
)

// Version is reported by the MCP server. Set at link time.
var Version = "dev"

func newApplication(logOut io.Writer, opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

func (a *application) openVault() (*storage.FS, error) {
	cfg := a.config.Vault
	vault, err := storage.NewFS(cfg.Path,
		storage.WithExtensions(cfg.Extensions()...),
		storage.WithIgnoreDirs(cfg.IgnoreDirs...),
		storage.WithIgnorePatterns(cfg.Ignore...))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return vault, nil
}

// build ingests the vault and builds its graph, logging every diagnostic.
func (a *application) build(ctx context.Context, vault storage.Provider) (*pipeline.Graph, error) {
	cfg := a.config
	start := time.Now()

	in, err := pipeline.Ingest(ctx, vault, render.NewMarkdown(cfg.Build.LinkPrefix), pipeline.IngestOptions{
		Workers:              cfg.Build.Workers,
		CollectionExtensions: cfg.Vault.CollectionExtensions,
		Logger:               a.logger,
	})
	if err != nil {
		return nil, err
	}
	g, err := pipeline.Build(ctx, in,
		pipeline.WithLogger(a.logger),
		pipeline.WithWorkers(cfg.Build.Workers),
		pipeline.WithMaxEmbedDepth(cfg.Build.MaxEmbedDepth),
		pipeline.WithCollectionExtensions(cfg.Vault.CollectionExtensions...),
		pipeline.WithPlaceholders(render.HTML{LinkPrefix: cfg.Build.LinkPrefix}))
	if err != nil {
		return nil, err
	}
	diag.Log(a.logger, g.Diagnostics)
	a.logger.Info("Graph built",
		slog.Int("documents", g.Store.Len()),
		slog.Int("collections", len(g.Collections.Collections())),
		slog.Int("diagnostics", len(g.Diagnostics)),
		slog.String("duration", time.Since(start).String()))
	return g, nil
}

// openIndex opens the search index, or returns nil when it is disabled.
func (a *application) openIndex() (*index.DB, error) {
	if !a.config.SQLite.Enabled() {
		return nil, nil
	}
	db, err := index.Open(a.config.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return db, nil
}

// Build builds the vault graph once and writes it as JSON to the configured
// output path.
func Build(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg := app.config

	vault, err := app.openVault()
	if err != nil {
		return err
	}
	g, err := app.build(ctx, vault)
	if err != nil {
		return err
	}

	data, err := pipeline.Export(g)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(cfg.Build.OutputPath)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outDir, err := storage.NewFS(filepath.Dir(out))
	if err != nil {
		return err
	}
	if err := outDir.Write(filepath.Base(out), data); err != nil {
		return err
	}

	app.logger.Info("Graph written", slog.String("path", out), slog.Int("bytes", len(data)))
	return nil
}

// Serve builds the graph, then serves it over HTTP and rebuilds it whenever
// the vault changes.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	vault, err := app.openVault()
	if err != nil {
		return err
	}
	db, err := app.openIndex()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	initial, err := app.build(ctx, vault)
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	svc := noteservice.NewService(initial, db, logger)
	if err := svc.Swap(initial); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rebuild := func(ctx context.Context) error {
		prev := svc.Current()
		next, err := app.build(ctx, vault)
		if err != nil {
			return err
		}
		if err := svc.Swap(next); err != nil {
			return err
		}
		changed, removed := pipeline.Diff(prev, next)
		broker.PublishRebuild(sse.Rebuild{
			Changed:     changed,
			Removed:     removed,
			Documents:   next.Store.Len(),
			Collections: len(next.Collections.Collections()),
			Diagnostics: len(next.Diagnostics),
			BuiltAt:     next.BuiltAt,
		})
		return nil
	}

	apiRouter := api.NewRouter(svc, vault, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pipeline.Watch(gCtx, vault.Root(), logger, rebuild)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// MCP builds the graph and serves it to an MCP client over stdio. Logs go
// to stderr since stdout carries the protocol.
func MCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return err
	}
	logger := app.logger

	vault, err := app.openVault()
	if err != nil {
		return err
	}
	db, err := app.openIndex()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	initial, err := app.build(ctx, vault)
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	svc := noteservice.NewService(initial, db, logger)
	if err := svc.Swap(initial); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}
	srv := mcpserver.New(svc, Version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pipeline.Watch(gCtx, vault.Root(), logger, func(ctx context.Context) error {
			next, err := app.build(ctx, vault)
			if err != nil {
				return err
			}
			return svc.Swap(next)
		})
	})
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server listening on stdio")
		return srv.ServeStdio()
	})
	return g.Wait()
}
