package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gesagent/mcp"
	"gesagent/proxy"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8740", "address to listen on")
	uiDir := flag.String("ui", "", "directory with the static browser UI (optional)")
	toolCmd := flag.String("tool-cmd", "gesagent-tools", "command to spawn the MCP tool process")
	toolArgs := flag.String("tool-args", "", "extra arguments for the tool process, space separated")
	dataDir := flag.String("data", "", "data directory passed to the tool process")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	args := []string{}
	if *toolArgs != "" {
		args = strings.Fields(*toolArgs)
	}
	if *dataDir != "" {
		args = append(args, "--data", *dataDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := mcp.NewClient()
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := client.Start(startCtx, mcp.ServerConfig{Command: *toolCmd, Args: args})
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start tool process: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Tool process shutdown: %v", err)
		}
	}()

	logger.Printf("Tool process %s started with %d tools", *toolCmd, len(client.Tools()))

	server := &proxy.Server{
		Backend:   client,
		StaticDir: *uiDir,
		Logger:    logger,
	}
	if err := server.ServeContext(ctx, *addr); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
