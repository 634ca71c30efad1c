// Package provider implements the LLM providers gesagent can talk to.
//
// Three providers share the model.Provider contract: a local Ollama server
// (newline-delimited JSON stream framing), OpenAI (server-sent-event
// framing with a terminating "data: [DONE]" line), and Anthropic. All
// three reduce to the same abstract stream of text deltas, which is what
// the orchestration loop consumes.
//
// Tool use is text-based: providers receive a system-prompt section built
// by BuildToolInstructions describing the [TOOL] directive protocol, and
// the agent package scans the streamed text for directive lines. No
// provider-native tool-calling API is involved, so the same conversation
// works identically against every provider.
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Config holds provider-specific configuration. It is passed explicitly
// into whatever constructs the provider; nothing here is read from ambient
// global state.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // For OpenAI/Anthropic (unused for Ollama)
}
