package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"gesagent/agent"
	"gesagent/config"
	"gesagent/model"
	"gesagent/storage"
)

// streamEventMsg carries one orchestration loop event into the Update cycle.
type streamEventMsg struct {
	Event agent.Event
}

// streamDoneMsg reports that the turn finished; Err is set for
// connection-level failures (tool failures never surface here).
type streamDoneMsg struct {
	Err error
}

type markdownRenderedMsg struct {
	MessageIndex int
	Rendered     string
}

type modelsListMsg struct {
	Models []model.ModelInfo
	Err    error
}

type sessionsListMsg struct {
	Sessions []storage.SessionMetadata
	Err      error
}

type sessionLoadedMsg struct {
	Session *storage.Session
	Err     error
}

type clipboardResultMsg struct {
	Err error
}

// startTurn launches the orchestration loop for one user turn. Events are
// funneled through a channel so bubbletea stays single threaded; the
// goroutine owns history until streamDoneMsg is delivered.
func (a *App) startTurn(loop *agent.Loop, history *agent.History) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelTurn = cancel

	ch := make(chan tea.Msg, 32)
	a.events = ch

	go func() {
		err := loop.Run(ctx, history, func(ev agent.Event) error {
			select {
			case ch <- streamEventMsg{Event: ev}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if config.DebugLog != nil && err != nil {
			config.DebugLog.Printf("[UI] turn ended with error: %v", err)
		}
		ch <- streamDoneMsg{Err: err}
		close(ch)
	}()

	return a.waitForStream()
}

// waitForStream blocks on the event channel for the next loop event.
// Re-issued from Update after every received event.
func (a *App) waitForStream() tea.Cmd {
	ch := a.events
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// fetchModels lists models from every configured provider in the background.
func (a *App) fetchModels() tea.Cmd {
	providers := a.providers
	return func() tea.Msg {
		var all []model.ModelInfo
		var lastErr error
		for id, p := range providers {
			ctx, cancel := context.WithTimeout(context.Background(), listModelsTimeout)
			models, err := p.ListModels(ctx)
			cancel()
			if err != nil {
				lastErr = err
				if config.DebugLog != nil {
					config.DebugLog.Printf("[UI] list models (%s) failed: %v", id, err)
				}
				continue
			}
			all = append(all, models...)
		}
		if len(all) == 0 {
			return modelsListMsg{Err: lastErr}
		}
		return modelsListMsg{Models: all}
	}
}

func (a *App) fetchSessions() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		sessions, err := store.List()
		return sessionsListMsg{Sessions: sessions, Err: err}
	}
}

func (a *App) loadSession(id string) tea.Cmd {
	store := a.store
	current := ""
	if a.session != nil {
		current = a.session.ID
	}
	return func() tea.Msg {
		if id != current {
			if locked, err := store.CheckSessionLock(id); err == nil && locked {
				return sessionLoadedMsg{Err: fmt.Errorf("session is open in another instance")}
			}
		}
		session, err := store.Load(id)
		return sessionLoadedMsg{Session: session, Err: err}
	}
}
