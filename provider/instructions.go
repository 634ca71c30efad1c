package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// BuildToolInstructions renders the directive-protocol section of the
// system prompt from the tool list the MCP server advertises. Every
// provider gets the same text; tool use is driven entirely by the model
// emitting [TOOL] lines, not by provider-native tool APIs.
func BuildToolInstructions(tools []mcptypes.Tool) string {
	var lines []string

	lines = append(lines,
		"You can query the dataset files through the following tools:",
		"")

	for _, tool := range tools {
		lines = append(lines, describeTool(tool))
	}

	lines = append(lines,
		"",
		"To call a tool, emit EXACTLY ONE line of the form:",
		"",
		`[TOOL] <tool_name> {"arg": "value"}`,
		"",
		"Rules:",
		"- The JSON object must be valid and must fit on that single line.",
		"- Emit at most one [TOOL] line per response, then stop and wait for the result.",
		"- The result is inserted into the conversation as an [MCP ... result] block.",
		"- On an [MCP ... error] block, adjust the arguments and try again, or answer without the tool.",
		"- When you have enough information, answer the question directly with no [TOOL] line.")

	return strings.Join(lines, "\n")
}

// describeTool renders one tool as "- name(params): description".
func describeTool(tool mcptypes.Tool) string {
	params := parameterList(tool)
	if tool.Description == "" {
		return fmt.Sprintf("- %s(%s)", tool.Name, params)
	}
	return fmt.Sprintf("- %s(%s): %s", tool.Name, params, tool.Description)
}

// parameterList flattens the tool's input schema into a compact signature,
// marking optional parameters with a trailing question mark.
func parameterList(tool mcptypes.Tool) string {
	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return ""
	}

	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}

	// Schema properties come out of JSON as an unordered map; sort the
	// required parameters first, then the rest alphabetically, so the
	// prompt is stable across runs.
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if required[name] {
			parts = append(parts, name)
		} else {
			parts = append(parts, name+"?")
		}
	}
	return strings.Join(parts, ", ")
}

// FormatToolSchemas renders tool schemas as indented JSON for diagnostic
// output (the proxy's /api/tools endpoint and the chat UI's tool view).
func FormatToolSchemas(tools []mcptypes.Tool) (string, error) {
	data, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool schemas: %w", err)
	}
	return string(data), nil
}
