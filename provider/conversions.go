package provider

import (
	"github.com/ollama/ollama/api"

	"gesagent/model"
)

// toOllamaMessages converts gesagent messages to Ollama api.Message. The
// Timestamp field is not preserved; the Ollama API has no use for it.
func toOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}
