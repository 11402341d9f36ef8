package api

import (
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/index"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/noteservice"
)

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = noteservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = noteservice.DocumentListItem

// CollectionSummary is one item of the collection listing.
type CollectionSummary = noteservice.CollectionSummary

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse lists the documents linking to one document.
type BacklinksResponse struct {
	ID        string   `json:"id" example:"notes/hello" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the link graph.
type GraphResponse struct {
	Nodes []noteservice.GraphNode `json:"nodes" validate:"required"`
	Links []models.Link           `json:"links" validate:"required"`
}

// CollectionListResponse wraps the collection listing.
type CollectionListResponse struct {
	Collections []CollectionSummary `json:"collections" validate:"required"`
}

// ViewResponse is the evaluated result of one collection view.
type ViewResponse struct {
	Collection string             `json:"collection" example:"tasks.base" validate:"required"`
	Result     *models.ViewResult `json:"result" validate:"required"`
}

// TagsResponse maps each tag to the documents carrying it.
type TagsResponse struct {
	Tags map[string][]string `json:"tags" validate:"required"`
}

// DiagnosticsResponse lists build diagnostics.
type DiagnosticsResponse struct {
	Diagnostics []diag.Diagnostic `json:"diagnostics" validate:"required"`
	Counts      map[diag.Kind]int `json:"counts" validate:"required"`
}
