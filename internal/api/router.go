package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwintz/obsidianp-sub000/internal/noteservice"
	"github.com/jwintz/obsidianp-sub000/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vault serves attachment files referenced by documents.
func NewRouter(svc *noteservice.Service, vault storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(vault)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)
	r.Get("/backlinks/*", h.Backlinks)

	// Graph, tags and diagnostics.
	r.Get("/graph", h.Graph)
	r.Get("/tags", h.Tags)
	r.Get("/diagnostics", h.Diagnostics)

	// Collections.
	r.Get("/collections", h.ListCollections)
	r.Get("/collections/{id}", h.GetView)
	r.Get("/collections/{id}/views/{view}", h.GetView)

	// Search.
	r.Get("/search", h.Search)

	// Attachments.
	r.Get("/assets/*", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
