package model

import "time"

// Message roles. Ordering within a conversation is significant and
// append-only; a message is never mutated after it has been appended.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in the conversation
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// ToolCall represents a provider-agnostic tool call request
type ToolCall struct {
	Name      string
	Arguments map[string]any
}
