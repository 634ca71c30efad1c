package provider

import (
	"context"

	"gesagent/agent"
	"gesagent/model"
)

// Streamer adapts a model.Provider to the agent.Streamer interface the
// orchestration loop consumes.
func Streamer(p model.Provider) agent.Streamer {
	return providerStreamer{p: p}
}

type providerStreamer struct {
	p model.Provider
}

func (s providerStreamer) Stream(ctx context.Context, messages []model.Message, fn func(delta string) error) error {
	return s.p.Chat(ctx, messages, func(chunk string) error {
		return fn(chunk)
	})
}
