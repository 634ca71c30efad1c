package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	globalconfig "gesagent/config"
)

// Client is the tool executor backed by the spawned tool-server process.
// It satisfies the orchestration loop's ToolExecutor contract: calls are
// issued one at a time and treated as stateless, safely repeatable remote
// calls.
type Client struct {
	host *ProcessHost
}

func NewClient() *Client {
	return &Client{host: NewProcessHost()}
}

// Start launches the tool server subprocess.
func (c *Client) Start(ctx context.Context, config ServerConfig) error {
	return c.host.Start(ctx, config)
}

// Tools returns the tool schemas the server advertised at startup.
func (c *Client) Tools() []mcptypes.Tool {
	return c.host.Tools()
}

// CallTool executes one tool and decodes its result. A tool-reported
// error comes back as a Go error with the server's message; the caller
// wraps it into the conversation rather than aborting.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	mcpClient, err := c.host.Client()
	if err != nil {
		return nil, err
	}

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] CallTool %s %v", name, args)
	}

	result, err := mcpClient.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tool call %s failed: %w", name, err)
	}

	text := flattenContent(result.Content)
	if result.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return nil, fmt.Errorf("%s", text)
	}

	// Tool servers reply with JSON text; fall back to the raw string for
	// servers that return plain text.
	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return text, nil
	}
	return payload, nil
}

// Shutdown stops the tool server subprocess.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.host.Stop(ctx)
}

// flattenContent joins the text parts of an MCP result.
func flattenContent(content []mcptypes.Content) string {
	var parts []string
	for _, item := range content {
		if tc, ok := item.(mcptypes.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
