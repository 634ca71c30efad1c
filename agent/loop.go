package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gesagent/model"
)

// MaxIterations caps the number of model rounds within one user turn. A
// turn that keeps requesting tools past the cap is stopped with a distinct
// terminal notice instead of looping forever.
const MaxIterations = 10

// continueNudge is appended as a synthetic user message after every
// iteration that executed at least one tool. It is invisible to the human
// caller; it only re-prompts the model.
const continueNudge = "Continue gathering any additional information needed to answer the question. When you have enough, give your final answer."

// Streamer is the model stream source: it sends the conversation and
// invokes fn for each decoded text delta, in arrival order. A non-success
// connection is returned as an error and is fatal to the current turn.
type Streamer interface {
	Stream(ctx context.Context, messages []model.Message, fn func(delta string) error) error
}

// ToolExecutor performs one tool call. Any returned error is recovered by
// the loop and surfaced to the model as an error block, never raised to
// the caller.
type ToolExecutor interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// Options tunes one loop instance. The zero value gives source-faithful
// behavior: MaxIterations rounds, no per-call timeouts.
type Options struct {
	MaxIterations int

	// ToolTimeout bounds a single tool call; exceeding it yields a tool
	// error block, the turn continues.
	ToolTimeout time.Duration

	// StreamTimeout bounds one full model stream; exceeding it is fatal to
	// the turn, like any other stream failure.
	StreamTimeout time.Duration
}

// Loop drives one user turn: stream model output, intercept tool
// directives, execute them, splice results back into the conversation, and
// re-invoke the model until it stops asking for tools or the iteration cap
// is hit. Exactly one turn runs on a Loop at a time; the turn exclusively
// owns its History for the duration.
type Loop struct {
	streamer Streamer
	executor ToolExecutor
	opts     Options
}

// NewLoop creates a loop over the given model stream source and tool
// executor.
func NewLoop(streamer Streamer, executor ToolExecutor, opts Options) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = MaxIterations
	}
	return &Loop{streamer: streamer, executor: executor, opts: opts}
}

// Run executes one user turn against history, emitting the output sequence
// through emit in order. It returns an error only for connection-level
// failures (or a cancelled context); tool failures are absorbed into the
// conversation. History gains one assistant entry per iteration, appended
// only after that iteration's stream has fully drained.
func (l *Loop) Run(ctx context.Context, history *History, emit func(Event) error) error {
	if emit == nil {
		emit = func(Event) error { return nil }
	}

	for iteration := 1; iteration <= l.opts.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(Event{Kind: EventIteration, Iteration: iteration}); err != nil {
			return err
		}

		toolCalls, err := l.runIteration(ctx, history, emit)
		if err != nil {
			return err
		}
		if toolCalls == 0 {
			return nil
		}

		history.Append(model.Message{Role: model.RoleUser, Content: continueNudge})
	}

	if err := emit(Event{Kind: EventMaxIterations}); err != nil {
		return err
	}
	return nil
}

// runIteration drives one model stream to completion, executing directives
// as they are detected, and appends the accumulated assistant message to
// history. It returns the number of tool calls executed.
func (l *Loop) runIteration(ctx context.Context, history *History, emit func(Event) error) (int, error) {
	var acc strings.Builder // becomes the iteration's assistant message
	var buf string          // line-scan buffer over raw deltas
	toolCalls := 0

	pass := func(final bool) error {
		res := scanForDirective(buf, final)
		if res.directive == nil {
			if res.pre != "" {
				acc.WriteString(res.pre)
				if err := emit(Event{Kind: EventText, Text: res.pre}); err != nil {
					return err
				}
			}
			buf = res.rest
			return nil
		}

		if res.pre != "" {
			acc.WriteString(res.pre)
			if err := emit(Event{Kind: EventText, Text: res.pre}); err != nil {
				return err
			}
		}
		buf = res.rest

		d := res.directive
		echo := Event{Kind: EventToolCall, Tool: d.Name, RawArgs: d.Raw}
		acc.WriteString(echo.Line() + "\n")
		if err := emit(echo); err != nil {
			return err
		}
		if err := emit(Event{Kind: EventToolExecuting, Tool: d.Name}); err != nil {
			return err
		}

		result := l.callTool(ctx, d)
		acc.WriteString(result.Line() + "\n")
		toolCalls++
		return emit(result)
	}

	streamCtx := ctx
	if l.opts.StreamTimeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, l.opts.StreamTimeout)
		defer cancel()
	}

	err := l.streamer.Stream(streamCtx, history.Messages(), func(delta string) error {
		buf += delta
		return pass(false)
	})
	if err != nil {
		return toolCalls, fmt.Errorf("model stream failed: %w", err)
	}

	// The stream is closed: the trailing line without a newline gets its
	// final flush, and any directive on it is still honored. Each pass
	// consumes at most one directive, so drain until the buffer is empty.
	for buf != "" {
		if err := pass(true); err != nil {
			return toolCalls, err
		}
	}

	history.Append(model.Message{Role: model.RoleAssistant, Content: acc.String()})
	return toolCalls, nil
}

// callTool invokes the executor and converts the outcome into a result or
// error event. Failures are data, not control flow: the model sees the
// error block and can adapt, and the call still counts as executed so the
// loop requests another iteration instead of stalling.
func (l *Loop) callTool(ctx context.Context, d *Directive) Event {
	callCtx := ctx
	if l.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, l.opts.ToolTimeout)
		defer cancel()
	}

	payload, err := l.executor.CallTool(callCtx, d.Name, d.Arguments)
	if err != nil {
		msg := err.Error()
		if callCtx.Err() == context.DeadlineExceeded {
			msg = fmt.Sprintf("tool call timed out after %s", l.opts.ToolTimeout)
		}
		return Event{Kind: EventToolError, Tool: d.Name, Err: msg}
	}
	return Event{Kind: EventToolResult, Tool: d.Name, Payload: marshalPayload(payload)}
}
