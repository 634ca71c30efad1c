package mcp

import (
	"os/exec"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ServerConfig describes how to launch the tool server process.
type ServerConfig struct {
	// Command is the tool server binary (default: "gesagent-tools").
	Command string

	// Args are passed to the command, typically the dataset root flag.
	Args []string

	// Env entries are added on top of the parent environment.
	Env map[string]string
}

// ToolProcess is one running tool-server subprocess with its MCP client.
type ToolProcess struct {
	Command string
	Args    []string
	Process *exec.Cmd
	Client  *client.Client
	Tools   []mcptypes.Tool
	Running bool
}
