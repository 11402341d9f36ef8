// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault graph to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwintz/obsidianp-sub000/internal/apperr"
	"github.com/jwintz/obsidianp-sub000/internal/noteservice"
)

const formatURI = "vaultgraph://vault-format"

// Server wraps the MCP server with the vault graph tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered. Every tool reads
// the graph svc is currently serving.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"vaultgraph",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document with its embeds expanded, its metadata and its links. "+
			"The reference may be an ID, a path, a file name or an alias."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Document reference (e.g. topics/go, Go.md, an alias)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List document IDs, optionally restricted to a folder or a tag."),
		mcp.WithString("folder", mcp.Description("Optional folder prefix (empty for all)")),
		mcp.WithString("tag", mcp.Description("Optional tag, with or without #")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to or embed the specified document."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Reference of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List collections with their views and match counts."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("query_collection",
		mcp.WithDescription("Return the evaluated rows of one view of a collection. "+
			"Read get_vault_format first to understand filters, sorting and formulas."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection ID or path (e.g. tasks.base)")),
		mcp.WithString("view", mcp.Description("View name (default view when empty)")),
	), s.queryCollection)

	s.mcp.AddTool(mcp.NewTool("list_diagnostics",
		mcp.WithDescription("List the problems found during the last build: unresolved references, "+
			"embed cycles, depth limits, malformed collections."),
		mcp.WithString("kind", mcp.Description("Optional diagnostic kind (e.g. unresolved-reference)")),
	), s.listDiagnostics)

	s.mcp.AddTool(mcp.NewTool("get_vault_format",
		mcp.WithDescription("Returns the document, reference and collection syntax of the vault."),
	), s.getVaultFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Vault Format",
			mcp.WithResourceDescription("Document, reference and collection syntax understood by the graph builder."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readVaultFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(ref string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", ref))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	return jsonResult(results)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, ref)
	if err != nil {
		return errorResult(ref, err), nil
	}
	return jsonResult(doc)
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(req.GetString("folder", ""), "/")
	items, _, err := s.svc.ListDocuments(ctx, 0, 0, req.GetString("tag", ""), "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ids []string
	for _, it := range items {
		if folder != "" && !strings.HasPrefix(it.Path, folder+"/") {
			continue
		}
		ids = append(ids, it.ID)
	}
	if len(ids) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, ref)
	if err != nil {
		return errorResult(ref, err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) listCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Collections(ctx))
}

func (s *Server) queryCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.View(ctx, ref, req.GetString("view", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) listDiagnostics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ds := s.svc.Diagnostics(ctx, req.GetString("kind", ""))
	if len(ds) == 0 {
		return mcp.NewToolResultText("no diagnostics"), nil
	}
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getVaultFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(vaultFormat()), nil
}

func (s *Server) readVaultFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     vaultFormat(),
		},
	}, nil
}
