package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/config"
	"github.com/mark3labs/mcp-go/mcp"
)

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("status"); got != "published" {
			t.Errorf("status = %q, want published", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"data": [{"documentId": "r1", "investor_info": {"file_info": [
				{"id": 5, "title": "Q1", "file_url": "https://files.example.org/q1.pdf"}
			]}}],
			"meta": {"pagination": {"page": 1, "pageCount": 1}}
		}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestListFileReferences(t *testing.T) {
	srv := newListingServer(t)
	cfg := config.Default()
	cfg.BaseURL = srv.URL

	_, handler := ListFileReferences(cfg)
	res := callTool(t, handler, map[string]interface{}{
		"path":      "/api/reports",
		"status":    "published",
		"page_size": float64(10),
	})
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	var plan api.Plan
	if err := json.Unmarshal([]byte(resultText(t, res)), &plan); err != nil {
		t.Fatal(err)
	}
	if plan.Pages != 1 || len(plan.References) != 1 {
		t.Fatalf("plan = %+v", plan)
	}
	if ref := plan.References[0]; ref.ID != "5" || ref.Owner != "r1" || ref.URL != "https://files.example.org/q1.pdf" {
		t.Errorf("reference = %+v", ref)
	}
}

func TestToolArgumentValidation(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
	}{
		{"Relative listing path", func() func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			_, h := ListFileReferences(cfg)
			return h
		}(), map[string]interface{}{"path": "api/reports"}},
		{"Unknown strategy", func() func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			_, h := RelayFiles(cfg)
			return h
		}(), map[string]interface{}{"strategy": "linear"}},
		{"Too many workers", func() func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			_, h := RelayFiles(cfg)
			return h
		}(), map[string]interface{}{"workers": float64(1000)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, tt.handler, tt.args)
			if !res.IsError {
				t.Errorf("tool accepted %v", tt.args)
			}
		})
	}
}

func TestInitTools(t *testing.T) {
	tools := InitTools(config.Default())
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Tool.Name] = true
	}
	for _, want := range []string{"list_file_references", "relay_files"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}
