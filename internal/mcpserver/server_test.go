package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jwintz/obsidianp-sub000/internal/noteservice"
	"github.com/jwintz/obsidianp-sub000/internal/testutil"
)

var vaultFiles = map[string]string{
	"hello.md":       "---\naliases: [greeting]\ntags: [intro]\n---\n# Hello\nWorld, see [[topics/Go]] and [[missing]].\n",
	"topics/go.md":   "# Go\nA language. ![[hello]]\n",
	"topics/rust.md": "---\ntags: [lang]\nstatus: draft\n---\n# Rust\nAnother language, links [[go]].\n",
	"langs.base":     "filters:\n  file.folder: topics\nviews:\n  - name: All\n    sort: ['file.name DESC']\n  - name: Drafts\n    filters:\n      status: draft\n",
}

func testServer(t *testing.T) *Server {
	t.Helper()
	g := testutil.TestGraph(t, vaultFiles)
	return New(noteservice.NewService(g, nil, testutil.Logger()), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "list_collections":
		result, err = srv.listCollections(ctx, req)
	case "query_collection":
		result, err = srv.queryCollection(ctx, req)
	case "list_diagnostics":
		result, err = srv.listDiagnostics(ctx, req)
	case "get_vault_format":
		result, err = srv.getVaultFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadDocument(t *testing.T) {
	srv := testServer(t)

	for _, ref := range []string{"topics/go", "Go.md", "topics/Go"} {
		r := callTool(t, srv, "read_document", map[string]any{"ref": ref})
		if r.IsError {
			t.Fatalf("%s: %s", ref, resultText(r))
		}
		var doc struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if doc.ID != "topics/go" || doc.Title != "Go" {
			t.Errorf("%s: id = %q, title = %q", ref, doc.ID, doc.Title)
		}
		if !strings.Contains(doc.Body, "World, see") {
			t.Errorf("%s: embed not expanded: %s", ref, doc.Body)
		}
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"ref": "nope"})
	if !r.IsError || resultText(r) != "not found: nope" {
		t.Errorf("result = %q, IsError = %v", resultText(r), r.IsError)
	}
	r = callTool(t, srv, "read_document", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing ref")
	}
}

func TestListDocuments(t *testing.T) {
	srv := testServer(t)

	cases := []struct {
		args map[string]any
		want string
	}{
		{map[string]any{}, "hello\ntopics/go\ntopics/rust"},
		{map[string]any{"folder": "topics/"}, "topics/go\ntopics/rust"},
		{map[string]any{"tag": "#lang"}, "topics/rust"},
		{map[string]any{"folder": "nowhere"}, "no documents found"},
	}
	for _, c := range cases {
		if got := resultText(callTool(t, srv, "list_documents", c.args)); got != c.want {
			t.Errorf("list_documents %v = %q, want %q", c.args, got, c.want)
		}
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_backlinks", map[string]any{"ref": "go"})
	if got := resultText(r); got != "hello\ntopics/rust" {
		t.Errorf("backlinks = %q", got)
	}
	r = callTool(t, srv, "get_backlinks", map[string]any{"ref": "topics/rust"})
	if got := resultText(r); got != "no backlinks found" {
		t.Errorf("backlinks = %q", got)
	}
}

func TestQueryCollection(t *testing.T) {
	srv := testServer(t)

	decode := func(r *mcp.CallToolResult) []string {
		t.Helper()
		if r.IsError {
			t.Fatalf("query_collection: %s", resultText(r))
		}
		var res struct {
			IDs []string `json:"ids"`
		}
		if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return res.IDs
	}

	got := decode(callTool(t, srv, "query_collection", map[string]any{"collection": "langs.base"}))
	if diff := cmp.Diff([]string{"topics/rust", "topics/go"}, got); diff != "" {
		t.Errorf("default view (-want +got):\n%s", diff)
	}
	got = decode(callTool(t, srv, "query_collection", map[string]any{"collection": "langs", "view": "Drafts"}))
	if diff := cmp.Diff([]string{"topics/rust"}, got); diff != "" {
		t.Errorf("drafts (-want +got):\n%s", diff)
	}

	r := callTool(t, srv, "query_collection", map[string]any{"collection": "langs", "view": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown view")
	}

	var summaries []noteservice.CollectionSummary
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_collections", nil))), &summaries); err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].Matched != 2 {
		t.Errorf("collections = %+v", summaries)
	}
}

func TestSearchDocuments(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "search_documents", map[string]any{"query": "another"})
	if !strings.Contains(resultText(r), `"topics/rust"`) {
		t.Errorf("search = %s", resultText(r))
	}
	r = callTool(t, srv, "search_documents", map[string]any{"query": "zzz"})
	if resultText(r) != "no results" {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestListDiagnostics(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_diagnostics", map[string]any{"kind": "unresolved-reference"})
	if got := resultText(r); !strings.HasPrefix(got, "unresolved-reference: hello -> missing") {
		t.Errorf("diagnostics = %q", got)
	}
	r = callTool(t, srv, "list_diagnostics", map[string]any{"kind": "embed-cycle"})
	if got := resultText(r); got != "no diagnostics" {
		t.Errorf("diagnostics = %q", got)
	}
}

func TestVaultFormat(t *testing.T) {
	srv := testServer(t)
	got := resultText(callTool(t, srv, "get_vault_format", nil))
	if !strings.HasPrefix(got, VaultFormat) || !strings.Contains(got, "Formula functions: ") || !strings.Contains(got, "default") {
		t.Errorf("format = %q", got)
	}
	contents, err := srv.readVaultFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc := contents[0].(mcp.TextResourceContents); tc.URI != formatURI || tc.Text != got {
		t.Errorf("resource = %q, %q", tc.URI, tc.Text)
	}
}
