package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	globalconfig "gesagent/config"
)

// ProcessHost spawns the filesystem tool server as a stdio subprocess and
// keeps its MCP client alive for the lifetime of the session. Exactly one
// process runs per host.
type ProcessHost struct {
	proc *ToolProcess
	mu   sync.RWMutex
}

func NewProcessHost() *ProcessHost {
	return &ProcessHost{}
}

// Start launches the tool server, initializes the MCP session, and caches
// the advertised tool list.
func (h *ProcessHost) Start(ctx context.Context, config ServerConfig) error {
	h.mu.Lock()
	if h.proc != nil && h.proc.Running {
		h.mu.Unlock()
		return fmt.Errorf("tool server already running")
	}
	h.mu.Unlock()

	if config.Command == "" {
		config.Command = "gesagent-tools"
	}

	env := os.Environ()
	for k, v := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	var capturedCmd *exec.Cmd
	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		capturedCmd = cmd
		return cmd, nil
	}

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		config.Command,
		env,
		config.Args,
		transport.WithCommandFunc(cmdFunc),
	)
	if err != nil {
		return fmt.Errorf("failed to start tool server: %w", err)
	}

	if capturedCmd != nil && capturedCmd.Process != nil && globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Started tool server %s (PID %d)", config.Command, capturedCmd.Process.Pid)
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "gesagent",
				Version: "1.0.0",
			},
		},
	}

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("failed to initialize tool server: %w", err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	h.mu.Lock()
	h.proc = &ToolProcess{
		Command: config.Command,
		Args:    config.Args,
		Process: capturedCmd,
		Client:  mcpClient,
		Tools:   toolsResult.Tools,
		Running: true,
	}
	h.mu.Unlock()

	return nil
}

// Client returns the live MCP client, or an error when the server is not
// running.
func (h *ProcessHost) Client() (*client.Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.proc == nil || !h.proc.Running {
		return nil, fmt.Errorf("tool server not running")
	}
	return h.proc.Client, nil
}

// Tools returns the tool list cached at startup.
func (h *ProcessHost) Tools() []mcptypes.Tool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.proc == nil {
		return nil
	}
	tools := make([]mcptypes.Tool, len(h.proc.Tools))
	copy(tools, h.proc.Tools)
	return tools
}

// Stop closes the MCP client and kills the subprocess if the close hangs.
func (h *ProcessHost) Stop(ctx context.Context) error {
	h.mu.Lock()
	proc := h.proc
	h.proc = nil
	h.mu.Unlock()

	if proc == nil {
		return nil
	}
	proc.Running = false

	clientClosed := false
	if proc.Client != nil {
		closeCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		defer cancel()

		closeDone := make(chan error, 1)
		go func() {
			closeDone <- proc.Client.Close()
		}()

		select {
		case err := <-closeDone:
			clientClosed = err == nil
		case <-closeCtx.Done():
			// Close is hanging, fall through to kill.
		}
	}

	if !clientClosed && proc.Process != nil && proc.Process.Process != nil {
		if globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Killing tool server (PID %d)", proc.Process.Process.Pid)
		}
		if err := proc.Process.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill tool server: %w", err)
		}
	}

	return nil
}
