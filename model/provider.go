package model

import (
	"context"
)

// Provider abstracts LLM provider implementations (Ollama, OpenAI, Anthropic)
// using provider-agnostic types from gesagent's model layer.
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations can import model, and model can use the
// Provider interface without importing the provider package.
type Provider interface {
	// Chat sends messages and streams response text back via callback,
	// one delta per invocation, in arrival order.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of streamed response text.
type StreamCallback func(chunk string) error

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	Name     string
	Size     int64
	Provider string // Provider ID: "ollama", "openai", "anthropic"
}
