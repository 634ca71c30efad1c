package agent

import (
	"encoding/json"
	"strings"
)

// DirectiveMarker is the literal token a model emits at the start of a line
// to request a tool call. The full wire format is:
//
//	[TOOL] <tool-name> <single-line JSON object>
//
// with no other content on that line.
const DirectiveMarker = "[TOOL]"

// Directive is one parsed tool-call request. It lives only for the
// iteration that executes it.
type Directive struct {
	Name      string
	Arguments map[string]any

	// Raw is the argument object exactly as the model wrote it. The echo
	// line in the output stream reproduces it verbatim so that log-scraping
	// callers see what the model actually emitted.
	Raw string
}

// ParseDirective tests a single line (already trimmed of surrounding
// whitespace) against the directive wire format. Not matching is not an
// error: a line that looks almost like a directive, including one whose
// JSON does not parse, is passed through as ordinary text by the caller.
func ParseDirective(line string) (*Directive, bool) {
	rest, found := strings.CutPrefix(line, DirectiveMarker)
	if !found {
		return nil, false
	}
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return nil, false
	}
	rest = strings.TrimLeft(rest, " \t")

	sep := strings.IndexAny(rest, " \t")
	if sep <= 0 {
		return nil, false
	}
	name := rest[:sep]
	if !isToolIdentifier(name) {
		return nil, false
	}

	raw := strings.TrimSpace(rest[sep+1:])
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}

	// The object must occupy the remainder of the line. json.Unmarshal
	// rejects trailing content, which gives exactly that check.
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, false
	}

	return &Directive{Name: name, Arguments: args, Raw: raw}, true
}

func isToolIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '_':
		case (r >= '0' && r <= '9') && i > 0:
		default:
			return false
		}
	}
	return len(s) > 0
}

// scanResult is the outcome of one scan pass over the accumulated buffer.
type scanResult struct {
	// Text preceding the directive line (or all releasable text when no
	// directive was found), verbatim including newlines.
	pre string

	// The detected directive, nil when the pass found none.
	directive *Directive

	// Remainder of the buffer after the directive line. When directive is
	// nil this is the unterminated trailing line being held back.
	rest string
}

// scanForDirective re-splits buf on newlines and tests each eligible line
// against the directive format. Only a fully terminated line is eligible,
// unless final is set (the stream has ended, so the trailing line without a
// newline gets its one chance).
//
// At most one directive is consumed per pass; text after it stays in rest
// and is re-scanned on the next pass. A second directive sitting in the
// same buffered chunk therefore waits for the next read cycle — documented
// behavior, models are prompted to emit one directive at a time.
func scanForDirective(buf string, final bool) scanResult {
	pos := 0
	for pos < len(buf) {
		nl := strings.IndexByte(buf[pos:], '\n')
		var line string
		var end int
		switch {
		case nl >= 0:
			line = buf[pos : pos+nl]
			end = pos + nl + 1
		case final:
			line = buf[pos:]
			end = len(buf)
		default:
			// Unterminated trailing line: hold it until more data
			// arrives, it may be a directive split across fragments.
			return scanResult{pre: buf[:pos], rest: buf[pos:]}
		}

		if d, ok := ParseDirective(strings.TrimSpace(line)); ok {
			return scanResult{pre: buf[:pos], directive: d, rest: buf[end:]}
		}
		pos = end
	}
	return scanResult{pre: buf}
}
