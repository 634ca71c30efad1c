package provider

import (
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func TestBuildToolInstructions(t *testing.T) {
	tools := []mcptypes.Tool{
		{
			Name:        "list_files",
			Description: "List files in a directory",
			InputSchema: mcptypes.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{"dir": map[string]any{"type": "string"}},
				Required:   []string{"dir"},
			},
		},
		{
			Name:        "search_files",
			Description: "Search file contents",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query":       map[string]any{"type": "string"},
					"glob":        map[string]any{"type": "string"},
					"max_results": map[string]any{"type": "integer"},
				},
				Required: []string{"query"},
			},
		},
	}

	got := BuildToolInstructions(tools)

	if !strings.Contains(got, "- list_files(dir): List files in a directory") {
		t.Errorf("list_files signature missing:\n%s", got)
	}
	// Required parameter first, optional ones alphabetical with a marker.
	if !strings.Contains(got, "- search_files(query, glob?, max_results?)") {
		t.Errorf("search_files signature wrong:\n%s", got)
	}
	if !strings.Contains(got, `[TOOL] <tool_name> {"arg": "value"}`) {
		t.Errorf("directive protocol description missing:\n%s", got)
	}
}

func TestBuildToolInstructionsStable(t *testing.T) {
	tool := mcptypes.Tool{
		Name: "read_file_chunk",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"num_lines":  map[string]any{"type": "integer"},
				"file":       map[string]any{"type": "string"},
				"start_line": map[string]any{"type": "integer"},
			},
			Required: []string{"file", "start_line"},
		},
	}

	first := BuildToolInstructions([]mcptypes.Tool{tool})
	for i := 0; i < 10; i++ {
		if BuildToolInstructions([]mcptypes.Tool{tool}) != first {
			t.Fatal("instructions are not deterministic across runs")
		}
	}
	if !strings.Contains(first, "read_file_chunk(file, start_line, num_lines?)") {
		t.Errorf("signature ordering wrong:\n%s", first)
	}
}
