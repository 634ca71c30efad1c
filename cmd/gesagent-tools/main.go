package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"gesagent/tools"
)

func main() {
	dataDir := flag.String("data", "", "data directory to serve (default: GESAGENT_DATA_DIR or current directory)")
	flag.Parse()

	root := *dataDir
	if root == "" {
		root = os.Getenv("GESAGENT_DATA_DIR")
	}
	if root == "" {
		root = "."
	}

	lib, err := tools.NewLibrary(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"gesagent-tools",
		"1.0.0",
		server.WithLogging(),
	)

	tools.RegisterFileTools(s, lib)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
