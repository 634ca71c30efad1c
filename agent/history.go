package agent

import (
	"time"

	"gesagent/model"
)

// History is the durable, append-only message log for one session. Every
// re-prompt of the model replays it verbatim, marker lines included, so the
// model sees its own past tool calls exactly as it made them. The
// human-facing transcript is a filtered projection computed by the caller
// (see FilterTranscript); History itself stores the unfiltered record.
type History struct {
	messages []model.Message
}

// NewHistory seeds a fresh history with the fixed system prompt and the
// turn's user message. Batch processing creates one of these per row; turns
// never share a History.
func NewHistory(system, user string) *History {
	now := time.Now()
	return &History{
		messages: []model.Message{
			{Role: model.RoleSystem, Content: system, Timestamp: now},
			{Role: model.RoleUser, Content: user, Timestamp: now},
		},
	}
}

// ReplayHistory rebuilds a History from a previously persisted message log,
// marker lines and all. Used when resuming a saved session.
func ReplayHistory(messages []model.Message) *History {
	h := &History{messages: make([]model.Message, len(messages))}
	copy(h.messages, messages)
	return h
}

// IsContinueNudge reports whether a user message is the synthetic re-prompt
// the loop inserts between tool iterations. Transcript views hide these.
func IsContinueNudge(m model.Message) bool {
	return m.Role == model.RoleUser && m.Content == continueNudge
}

// Append adds a message to the end of the log. Entries are never removed
// or edited afterwards.
func (h *History) Append(msg model.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	h.messages = append(h.messages, msg)
}

// AppendUser appends a user-role message.
func (h *History) AppendUser(content string) {
	h.Append(model.Message{Role: model.RoleUser, Content: content})
}

// Messages returns a copy of the log for the next model invocation.
func (h *History) Messages() []model.Message {
	out := make([]model.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages in the log.
func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the most recent message, or a zero Message when empty.
func (h *History) Last() model.Message {
	if len(h.messages) == 0 {
		return model.Message{}
	}
	return h.messages[len(h.messages)-1]
}
