package agent

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"gesagent/model"
)

// scriptedStreamer replays fixed fragment sequences, one script per model
// invocation. When the scripts run out the last one repeats.
type scriptedStreamer struct {
	scripts [][]string
	calls   int
	seen    [][]model.Message
	err     error
}

func (s *scriptedStreamer) Stream(ctx context.Context, messages []model.Message, fn func(string) error) error {
	s.seen = append(s.seen, messages)
	idx := s.calls
	s.calls++
	if idx >= len(s.scripts) {
		idx = len(s.scripts) - 1
	}
	if s.err != nil {
		return s.err
	}
	for _, frag := range s.scripts[idx] {
		if err := fn(frag); err != nil {
			return err
		}
	}
	return nil
}

// recordedCall captures one executor invocation.
type recordedCall struct {
	Name string
	Args map[string]any
}

// stubExecutor answers tool calls through an injectable Func field,
// recording every invocation.
type stubExecutor struct {
	CallFunc func(name string, args map[string]any) (any, error)
	calls    []recordedCall
}

func (e *stubExecutor) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	e.calls = append(e.calls, recordedCall{Name: name, Args: args})
	if e.CallFunc != nil {
		return e.CallFunc(name, args)
	}
	return map[string]any{"ok": true}, nil
}

func collectEvents(t *testing.T) (func(Event) error, *[]Event) {
	t.Helper()
	var events []Event
	return func(ev Event) error {
		events = append(events, ev)
		return nil
	}, &events
}

func TestLoopNaturalTermination(t *testing.T) {
	streamer := &scriptedStreamer{scripts: [][]string{
		{"The answer ", "is 42.\n"},
	}}
	executor := &stubExecutor{}
	loop := NewLoop(streamer, executor, Options{})

	history := NewHistory("You are helpful", "what is the answer?")
	emit, events := collectEvents(t)

	if err := loop.Run(context.Background(), history, emit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if streamer.calls != 1 {
		t.Errorf("model invocations = %d, want 1", streamer.calls)
	}
	if len(executor.calls) != 0 {
		t.Errorf("tool calls = %d, want 0", len(executor.calls))
	}

	last := history.Last()
	if last.Role != model.RoleAssistant || last.Content != "The answer is 42.\n" {
		t.Errorf("last history entry = %+v", last)
	}

	var text strings.Builder
	for _, ev := range *events {
		if ev.Kind == EventText {
			text.WriteString(ev.Text)
		}
	}
	if text.String() != "The answer is 42.\n" {
		t.Errorf("streamed text = %q", text.String())
	}
}

func TestLoopToolCallScenario(t *testing.T) {
	// First round: the model asks for list_files and stops. Second round:
	// it answers with plain text.
	streamer := &scriptedStreamer{scripts: [][]string{
		{"Let me look.\n[TOOL] list_files ", "{\"dir\":\"\"}\n"},
		{"Two files: a.txt and b.txt.\n"},
	}}
	executor := &stubExecutor{
		CallFunc: func(name string, args map[string]any) (any, error) {
			return map[string]any{"files": []string{"a.txt", "b.txt"}}, nil
		},
	}
	loop := NewLoop(streamer, executor, Options{})

	history := NewHistory("You are helpful", "list files")
	emit, events := collectEvents(t)

	if err := loop.Run(context.Background(), history, emit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(executor.calls) != 1 {
		t.Fatalf("tool calls = %d, want exactly 1", len(executor.calls))
	}
	if executor.calls[0].Name != "list_files" {
		t.Errorf("tool name = %q", executor.calls[0].Name)
	}
	if !reflect.DeepEqual(executor.calls[0].Args, map[string]any{"dir": ""}) {
		t.Errorf("tool args = %#v", executor.calls[0].Args)
	}

	// History: system, user, assistant(with call+result), nudge user,
	// assistant(final).
	messages := history.Messages()
	if len(messages) != 5 {
		t.Fatalf("history length = %d, want 5", len(messages))
	}
	assistant := messages[2]
	if assistant.Role != model.RoleAssistant {
		t.Fatalf("messages[2].Role = %q", assistant.Role)
	}
	if !strings.Contains(assistant.Content, `[TOOL] list_files {"dir":""}`) {
		t.Errorf("assistant message lost the tool-call line: %q", assistant.Content)
	}
	if !strings.Contains(assistant.Content, "[MCP list_files result]") {
		t.Errorf("assistant message lost the result block: %q", assistant.Content)
	}
	if !strings.Contains(assistant.Content, `"files":["a.txt","b.txt"]`) {
		t.Errorf("result payload missing: %q", assistant.Content)
	}

	nudge := messages[3]
	if nudge.Role != model.RoleUser || nudge.Content != continueNudge {
		t.Errorf("messages[3] = %+v, want nudge user message", nudge)
	}

	if streamer.calls != 2 {
		t.Errorf("model invocations = %d, want 2", streamer.calls)
	}

	// The second invocation must replay the full augmented history.
	second := streamer.seen[1]
	if len(second) != 4 {
		t.Errorf("second invocation saw %d messages, want 4", len(second))
	}

	var sawResult bool
	for _, ev := range *events {
		if ev.Kind == EventToolResult && ev.Tool == "list_files" {
			sawResult = true
		}
	}
	if !sawResult {
		t.Error("no EventToolResult emitted")
	}
}

func TestLoopDirectiveSplitAcrossFragments(t *testing.T) {
	// The directive line arrives cut at an arbitrary byte offset, including
	// inside the marker itself.
	streamer := &scriptedStreamer{scripts: [][]string{
		{"[TO", "OL] get_file_info {\"fi", "le\":\"a.txt\"}", "\n"},
		{"done\n"},
	}}
	executor := &stubExecutor{}
	loop := NewLoop(streamer, executor, Options{})

	history := NewHistory("sys", "user")
	if err := loop.Run(context.Background(), history, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(executor.calls) != 1 {
		t.Fatalf("tool calls = %d, want exactly 1", len(executor.calls))
	}
	if executor.calls[0].Name != "get_file_info" {
		t.Errorf("tool name = %q", executor.calls[0].Name)
	}
	if executor.calls[0].Args["file"] != "a.txt" {
		t.Errorf("tool args = %#v", executor.calls[0].Args)
	}
}

func TestLoopDirectiveOnFinalUnterminatedLine(t *testing.T) {
	streamer := &scriptedStreamer{scripts: [][]string{
		{`[TOOL] list_files {"dir":""}`}, // no trailing newline, stream ends
		{"done\n"},
	}}
	executor := &stubExecutor{}
	loop := NewLoop(streamer, executor, Options{})

	if err := loop.Run(context.Background(), NewHistory("s", "u"), nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(executor.calls) != 1 {
		t.Errorf("tool calls = %d, want 1", len(executor.calls))
	}
}

func TestLoopMalformedDirectivePassesThrough(t *testing.T) {
	streamer := &scriptedStreamer{scripts: [][]string{
		{"[TOOL] list_files {\"dir\":\n", "that was not valid\n"},
	}}
	executor := &stubExecutor{}
	loop := NewLoop(streamer, executor, Options{})

	history := NewHistory("s", "u")
	emit, events := collectEvents(t)

	if err := loop.Run(context.Background(), history, emit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(executor.calls) != 0 {
		t.Fatalf("tool calls = %d, want 0", len(executor.calls))
	}

	var text strings.Builder
	for _, ev := range *events {
		if ev.Kind == EventText {
			text.WriteString(ev.Text)
		}
	}
	if !strings.Contains(text.String(), `[TOOL] list_files {"dir":`) {
		t.Errorf("malformed directive line not forwarded as text: %q", text.String())
	}
}

func TestLoopTerminatesAtMaxIterations(t *testing.T) {
	// The model never stops asking for tools.
	streamer := &scriptedStreamer{scripts: [][]string{
		{"[TOOL] list_files {\"dir\":\"\"}\n"},
	}}
	executor := &stubExecutor{}
	loop := NewLoop(streamer, executor, Options{})

	history := NewHistory("s", "u")
	emit, events := collectEvents(t)

	if err := loop.Run(context.Background(), history, emit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if streamer.calls != MaxIterations {
		t.Errorf("model invocations = %d, want %d", streamer.calls, MaxIterations)
	}
	if len(executor.calls) != MaxIterations {
		t.Errorf("tool calls = %d, want %d", len(executor.calls), MaxIterations)
	}

	last := (*events)[len(*events)-1]
	if last.Kind != EventMaxIterations {
		t.Errorf("final event kind = %v, want EventMaxIterations", last.Kind)
	}
}

func TestLoopAbsorbsToolFailure(t *testing.T) {
	streamer := &scriptedStreamer{scripts: [][]string{
		{"[TOOL] read_file {\"file\":\"x\"}\n"},
		{"I could not read it.\n"},
	}}
	executor := &stubExecutor{
		CallFunc: func(name string, args map[string]any) (any, error) {
			return nil, errors.New("permission denied")
		},
	}
	loop := NewLoop(streamer, executor, Options{})

	history := NewHistory("s", "u")
	emit, events := collectEvents(t)

	if err := loop.Run(context.Background(), history, emit); err != nil {
		t.Fatalf("tool failure must not abort the turn, got %v", err)
	}

	// The failure is folded into history like a success, and the loop asks
	// for another iteration.
	messages := history.Messages()
	if !strings.Contains(messages[2].Content, "[MCP read_file error] permission denied") {
		t.Errorf("error block missing from history: %q", messages[2].Content)
	}
	if streamer.calls != 2 {
		t.Errorf("model invocations = %d, want 2", streamer.calls)
	}

	var sawError bool
	for _, ev := range *events {
		if ev.Kind == EventToolError && ev.Tool == "read_file" {
			sawError = true
		}
	}
	if !sawError {
		t.Error("no EventToolError emitted")
	}
}

func TestLoopStreamFailureIsFatal(t *testing.T) {
	streamer := &scriptedStreamer{
		scripts: [][]string{{"x"}},
		err:     errors.New("connection refused"),
	}
	loop := NewLoop(streamer, &stubExecutor{}, Options{})

	err := loop.Run(context.Background(), NewHistory("s", "u"), nil)
	if err == nil {
		t.Fatal("expected error for stream connection failure")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error = %v", err)
	}
}

func TestLoopIdempotentReplay(t *testing.T) {
	fixture := [][]string{
		{"checking\n", "[TOOL] search_files {\"query\":\"Bremse\"}\n"},
		{"Found it in records.csv.\n"},
	}

	run := func() ([]model.Message, []Event) {
		streamer := &scriptedStreamer{scripts: fixture}
		executor := &stubExecutor{
			CallFunc: func(name string, args map[string]any) (any, error) {
				return map[string]any{"matches": 1}, nil
			},
		}
		loop := NewLoop(streamer, executor, Options{})
		history := NewHistory("s", "u")
		emit, events := collectEvents(t)
		if err := loop.Run(context.Background(), history, emit); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		msgs := history.Messages()
		for i := range msgs {
			msgs[i].Timestamp = time.Time{}
		}
		return msgs, *events
	}

	msgs1, events1 := run()
	msgs2, events2 := run()

	if !reflect.DeepEqual(msgs1, msgs2) {
		t.Error("replaying the same fixture produced different histories")
	}
	if !reflect.DeepEqual(events1, events2) {
		t.Error("replaying the same fixture produced different event sequences")
	}
}

func TestRunBatchFreshHistoryPerRow(t *testing.T) {
	streamer := &scriptedStreamer{scripts: [][]string{
		{"answer\n"},
	}}
	loop := NewLoop(streamer, &stubExecutor{}, Options{})

	items := []BatchItem{
		{ID: "row-1", Question: "first?"},
		{ID: "row-2", Question: "second?"},
	}
	results, err := loop.RunBatch(context.Background(), "sys", items, nil)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, res := range results {
		if res.Answer != "answer" {
			t.Errorf("results[%d].Answer = %q", i, res.Answer)
		}
	}

	// Each row's first invocation starts from exactly system + question.
	for i, seen := range streamer.seen {
		if len(seen) != 2 {
			t.Errorf("row %d saw %d seed messages, want 2", i, len(seen))
		}
	}
	if streamer.seen[0][1].Content != "first?" || streamer.seen[1][1].Content != "second?" {
		t.Error("rows did not get their own questions")
	}
}

func TestRunBatchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	rows := 0
	streamer := &scriptedStreamer{scripts: [][]string{{"ok\n"}}}
	loop := NewLoop(streamer, &stubExecutor{}, Options{})

	items := make([]BatchItem, 5)
	for i := range items {
		items[i] = BatchItem{ID: fmt.Sprintf("row-%d", i), Question: "q"}
	}

	results, err := loop.RunBatch(ctx, "sys", items, func(id string, ev Event) error {
		if ev.Kind == EventIteration {
			rows++
			if rows == 2 {
				cancel()
			}
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(results) >= len(items) {
		t.Errorf("batch did not stop early: %d results", len(results))
	}
}
