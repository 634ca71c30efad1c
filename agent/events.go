package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind tags the lifecycle events the orchestration loop emits.
type EventKind int

const (
	// EventIteration marks the start of one outer loop iteration.
	EventIteration EventKind = iota

	// EventText carries plain model output.
	EventText

	// EventToolCall reports a detected tool-call directive.
	EventToolCall

	// EventToolExecuting reports that the tool is being invoked.
	EventToolExecuting

	// EventToolResult carries a successful tool result payload.
	EventToolResult

	// EventToolError carries a recovered tool failure.
	EventToolError

	// EventMaxIterations reports that the turn stopped at the iteration cap
	// rather than by the model finishing naturally.
	EventMaxIterations
)

// Event is one typed entry in the loop's output sequence. The presentation
// layer decides how to render it; Line gives the canonical marker string
// that existing log-scraping callers expect.
type Event struct {
	Kind      EventKind
	Iteration int    // EventIteration
	Text      string // EventText: raw fragment text
	Tool      string
	RawArgs   string // EventToolCall: argument object as the model wrote it
	Payload   string // EventToolResult: result JSON
	Err       string // EventToolError: failure message
}

// toolErrorHint is appended after every tool error block so the model can
// recover instead of stalling.
const toolErrorHint = "[Hint] Check the tool name and arguments, then try again with corrected arguments, or answer with the information you already have."

// maxIterationsNotice distinguishes a cap stop from a natural completion.
const maxIterationsNotice = "[maximum iterations reached]"

// Line renders the event as the marker string emitted into the output
// stream. These are string conventions, reproduced verbatim for
// compatibility with callers that scrape the log.
func (e Event) Line() string {
	switch e.Kind {
	case EventText:
		return e.Text
	case EventToolCall:
		return fmt.Sprintf("%s %s %s", DirectiveMarker, e.Tool, e.RawArgs)
	case EventToolExecuting:
		return fmt.Sprintf("[calling MCP %s ...]", e.Tool)
	case EventToolResult:
		return fmt.Sprintf("[MCP %s result]\n%s", e.Tool, e.Payload)
	case EventToolError:
		return fmt.Sprintf("[MCP %s error] %s\n%s", e.Tool, e.Err, toolErrorHint)
	case EventMaxIterations:
		return maxIterationsNotice
	case EventIteration:
		return ""
	}
	return ""
}

// marshalPayload renders a tool result payload for the result block. A
// payload that cannot be marshalled is reported as its Go value; tool
// results come from JSON decoding so this path is unusual.
func marshalPayload(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// FilterTranscript strips tool-lifecycle marker lines from accumulated
// output, leaving the text a human should read. The unfiltered record stays
// in History so the model keeps seeing what it previously did.
func FilterTranscript(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	skipNext := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "[Hint]"):
			skipNext = false
		case strings.HasPrefix(trimmed, DirectiveMarker+" "):
		case strings.HasPrefix(trimmed, "[calling MCP "):
		case strings.HasPrefix(trimmed, "[MCP "):
			// The result payload continues on the following line.
			skipNext = true
		case skipNext:
			skipNext = false
		default:
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
