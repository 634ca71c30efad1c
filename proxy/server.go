// Package proxy bridges a browser UI to a locally spawned MCP tool
// process. The browser talks to the model endpoints itself; only tool
// execution goes through here.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ToolBackend executes tool calls and lists the available tool schemas.
// mcp.Client satisfies it.
type ToolBackend interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	Tools() []mcptypes.Tool
}

// Server exposes the tool backend over HTTP for a local browser UI.
type Server struct {
	Backend     ToolBackend
	StaticDir   string
	ToolTimeout time.Duration
	Logger      *log.Logger
}

// ToolRequest describes incoming tool-call payload.
type ToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResponse describes the tool-call response.
type ToolResponse struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Serve starts listening on the provided address.
func (s *Server) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *Server) ServeContext(ctx context.Context, addr string) error {
	server := s.newHTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	if s.Logger != nil {
		s.Logger.Printf("Tool proxy listening on %s", addr)
	}
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tool", s.handleTool)
	mux.HandleFunc("/api/tools", s.handleTools)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.StaticDir)))
	}
	return withCORS(mux)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ToolResponse{OK: false, Error: "tool name is required"})
		return
	}

	timeout := s.ToolTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	result, err := s.Backend.CallTool(ctx, req.Name, req.Arguments)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("Tool %s failed: %v", req.Name, err)
		}
		writeJSON(w, http.StatusOK, ToolResponse{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ToolResponse{OK: true, Result: result})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tools := s.Backend.Tools()
	type toolSchema struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema any    `json:"input_schema"`
	}
	schemas := make([]toolSchema, 0, len(tools))
	for _, tool := range tools {
		schemas = append(schemas, toolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": schemas})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// The UI is served from file:// or another local port during
// development, so responses allow any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
