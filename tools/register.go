package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterFileTools wires the library's operations onto an MCP server.
func RegisterFileTools(s *server.MCPServer, lib *Library) {
	// list_files
	s.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List files and subdirectories in a directory of the data set"),
		mcp.WithString("dir", mcp.Required(), mcp.Description("Directory relative to the data root; empty string for the root itself")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		dir, _ := args["dir"].(string)

		listing, err := lib.List(dir)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultStructuredOnly(listing), nil
	})

	// search_files
	s.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Search all data files for lines matching a query. Space-separated terms must all match (AND); terms joined with | are alternatives (OR)"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query, e.g. 'brake pad|disc'")),
		mcp.WithString("glob", mcp.Description("Filename pattern to restrict the search, e.g. '*.csv'")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of matching files to return (default 20)")),
		mcp.WithNumber("context_size", mcp.Description("Lines of context around each hit (default 2)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		query, _ := args["query"].(string)
		glob, _ := args["glob"].(string)
		maxResults := intArg(args, "max_results")
		contextSize := -1
		if _, ok := args["context_size"]; ok {
			contextSize = intArg(args, "context_size")
		}

		matches, err := lib.Search(query, glob, maxResults, contextSize)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultStructuredOnly(map[string]interface{}{
			"query":   query,
			"matches": matches,
		}), nil
	})

	// read_file
	s.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription(fmt.Sprintf("Read the full content of a file (up to %d bytes)", MaxReadSize)),
		mcp.WithString("file", mcp.Required(), mcp.Description("File path relative to the data root")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		file, _ := args["file"].(string)

		content, err := lib.Read(file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultStructuredOnly(map[string]interface{}{
			"file":    file,
			"content": content,
		}), nil
	})

	// get_file_info
	s.AddTool(mcp.NewTool("get_file_info",
		mcp.WithDescription("Get size, line count and modification time of a file"),
		mcp.WithString("file", mcp.Required(), mcp.Description("File path relative to the data root")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		file, _ := args["file"].(string)

		info, err := lib.Info(file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultStructuredOnly(info), nil
	})

	// read_file_chunk
	s.AddTool(mcp.NewTool("read_file_chunk",
		mcp.WithDescription("Read a window of lines from a file"),
		mcp.WithString("file", mcp.Required(), mcp.Description("File path relative to the data root")),
		mcp.WithNumber("start_line", mcp.Required(), mcp.Description("First line to read (1-based)")),
		mcp.WithNumber("num_lines", mcp.Description("Number of lines to read (default 100)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		file, _ := args["file"].(string)
		startLine := intArg(args, "start_line")
		numLines := intArg(args, "num_lines")

		chunk, err := lib.ReadChunk(file, startLine, numLines)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultStructuredOnly(chunk), nil
	})

	// find_and_read
	s.AddTool(mcp.NewTool("find_and_read",
		mcp.WithDescription("Find every occurrence of a text in one file and return each with surrounding context"),
		mcp.WithString("file", mcp.Required(), mcp.Description("File path relative to the data root")),
		mcp.WithString("search_text", mcp.Required(), mcp.Description("Text to locate (case-insensitive)")),
		mcp.WithNumber("context_lines", mcp.Description("Lines of context around each occurrence (default 3)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		file, _ := args["file"].(string)
		searchText, _ := args["search_text"].(string)
		contextLines := -1
		if _, ok := args["context_lines"]; ok {
			contextLines = intArg(args, "context_lines")
		}

		occurrences, err := lib.FindInFile(file, searchText, contextLines)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultStructuredOnly(map[string]interface{}{
			"file":        file,
			"occurrences": occurrences,
		}), nil
	})
}

// JSON numbers arrive as float64.
func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
