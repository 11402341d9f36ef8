package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/index"
	"github.com/jwintz/obsidianp-sub000/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcard extracts the trailing path of the URL (everything after the
// route prefix). Supports encoded slashes from OpenAPI clients
// (e.g. topics%2Fnote).
func wildcard(r *http.Request) string {
	return unescape(strings.TrimPrefix(chi.URLParam(r, "*"), "/"))
}

func param(r *http.Request, name string) string {
	return unescape(chi.URLParam(r, name))
}

func unescape(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(mtime, title, path)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), limit, max(offset, 0), q.Get("tag"), q.Get("sort"))
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document by ID, path, name or alias
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document reference"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ref := wildcard(r)
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("document reference is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), ref)
	if err != nil {
		writeFailure(w, "get document", ref, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List documents linking to a document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document reference"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{id} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	ref := wildcard(r)
	id, err := h.svc.Resolve(ref)
	if err != nil {
		writeFailure(w, "backlinks", ref, err)
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		writeFailure(w, "backlinks", ref, err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{ID: id, Backlinks: bl})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links := h.svc.Graph(r.Context())
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Tags handles GET /api/tags.
//
//	@Summary		Get the tag index
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TagsResponse{Tags: h.svc.Tags(r.Context())})
}

// Diagnostics handles GET /api/diagnostics.
//
//	@Summary		List the diagnostics of the last build
//	@Tags			graph
//	@Produce		json
//	@Param			kind	query		string	false	"Only diagnostics of this kind"
//	@Success		200		{object}	DiagnosticsResponse
//	@Security		BearerAuth
//	@Router			/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	ds := h.svc.Diagnostics(r.Context(), r.URL.Query().Get("kind"))
	writeJSON(w, http.StatusOK, DiagnosticsResponse{Diagnostics: ds, Counts: diag.Count(ds)})
}

// ListCollections handles GET /api/collections.
//
//	@Summary		List collections
//	@Tags			collections
//	@Produce		json
//	@Success		200	{object}	CollectionListResponse
//	@Security		BearerAuth
//	@Router			/collections [get]
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CollectionListResponse{Collections: h.svc.Collections(r.Context())})
}

// GetView handles GET /api/collections/{id} and
// GET /api/collections/{id}/views/{view}.
//
//	@Summary		Get the evaluated result of a collection view
//	@Tags			collections
//	@Produce		json
//	@Param			id		path		string	true	"Collection ID"
//	@Param			view	path		string	false	"View name"
//	@Success		200		{object}	ViewResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{id}/views/{view} [get]
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	res, err := h.svc.View(r.Context(), id, param(r, "view"))
	if err != nil {
		writeFailure(w, "get view", id, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{Collection: id, Result: res})
}
