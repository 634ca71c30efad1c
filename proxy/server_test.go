package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

type stubBackend struct {
	CallFunc func(ctx context.Context, name string, args map[string]any) (any, error)
	tools    []mcptypes.Tool
	calls    []string
}

func (s *stubBackend) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.calls = append(s.calls, name)
	if s.CallFunc != nil {
		return s.CallFunc(ctx, name, args)
	}
	return map[string]any{"files": []string{"a.txt"}}, nil
}

func (s *stubBackend) Tools() []mcptypes.Tool {
	return s.tools
}

func newTestServer(backend *stubBackend) *httptest.Server {
	srv := &Server{Backend: backend}
	return httptest.NewServer(srv.Handler())
}

func TestHandleToolSuccess(t *testing.T) {
	backend := &stubBackend{}
	ts := newTestServer(backend)
	defer ts.Close()

	body, _ := json.Marshal(ToolRequest{Name: "list_files", Arguments: map[string]any{"dir": ""}})
	resp, err := http.Post(ts.URL+"/api/tool", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out ToolResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !out.OK {
		t.Errorf("expected ok response, got error %q", out.Error)
	}
	if out.Result == nil {
		t.Error("expected a result payload")
	}
	if len(backend.calls) != 1 || backend.calls[0] != "list_files" {
		t.Errorf("expected one list_files call, got %v", backend.calls)
	}
}

func TestHandleToolFailure(t *testing.T) {
	backend := &stubBackend{
		CallFunc: func(ctx context.Context, name string, args map[string]any) (any, error) {
			return nil, errors.New("no such tool")
		},
	}
	ts := newTestServer(backend)
	defer ts.Close()

	body, _ := json.Marshal(ToolRequest{Name: "bogus"})
	resp, err := http.Post(ts.URL+"/api/tool", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out ToolResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.OK {
		t.Error("expected ok=false for a failing tool")
	}
	if out.Error != "no such tool" {
		t.Errorf("expected error message to pass through, got %q", out.Error)
	}
}

func TestHandleToolValidation(t *testing.T) {
	backend := &stubBackend{}
	ts := newTestServer(backend)
	defer ts.Close()

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"missing name", http.MethodPost, `{"arguments":{}}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, `{not json`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+"/api/tool", bytes.NewReader([]byte(tt.body)))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}

	if len(backend.calls) != 0 {
		t.Errorf("backend should not be called for invalid requests, got %v", backend.calls)
	}
}

func TestHandleTools(t *testing.T) {
	backend := &stubBackend{
		tools: []mcptypes.Tool{
			{Name: "list_files", Description: "List files"},
			{Name: "read_file", Description: "Read a file"},
		},
	}
	ts := newTestServer(backend)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/tools")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(out.Tools))
	}
	if out.Tools[0].Name != "list_files" {
		t.Errorf("expected list_files first, got %s", out.Tools[0].Name)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/tool", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected permissive CORS origin, got %q", got)
	}
}
