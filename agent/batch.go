package agent

import (
	"context"
	"strings"

	"gesagent/model"
)

// BatchItem is one row of a batch run: an identifier for reporting and the
// question asked for that row.
type BatchItem struct {
	ID       string
	Question string
}

// BatchResult is the outcome of one row's turn.
type BatchResult struct {
	ID     string
	Answer string // filtered final assistant text
	Err    error  // connection-level failure for this row, if any
}

// RunBatch processes items sequentially, one full turn per item. Each turn
// gets a fresh History seeded with the system prompt and that item's
// question; turns never share state. Cancellation is cooperative: the
// context is checked before each row, an in-flight stream read finishes its
// current chunk first.
//
// A row whose turn fails records the error and the batch continues; only a
// cancelled context stops the run early, returning the results so far.
func (l *Loop) RunBatch(ctx context.Context, system string, items []BatchItem, emit func(id string, ev Event) error) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		history := NewHistory(system, item.Question)
		rowEmit := func(Event) error { return nil }
		if emit != nil {
			id := item.ID
			rowEmit = func(ev Event) error { return emit(id, ev) }
		}

		err := l.Run(ctx, history, rowEmit)
		res := BatchResult{ID: item.ID, Err: err}
		if err == nil {
			res.Answer = finalAnswer(history)
		}
		results = append(results, res)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	return results, nil
}

// finalAnswer extracts the human-readable text of the last assistant
// message in a completed turn.
func finalAnswer(history *History) string {
	messages := history.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant {
			return strings.TrimSpace(FilterTranscript(messages[i].Content))
		}
	}
	return ""
}
