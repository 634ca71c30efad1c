package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"gesagent/agent"
	"gesagent/model"
	"gesagent/provider"
	"gesagent/storage"
)

const defaultToolTimeout = 60 * time.Second

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		headerHeight := 2
		footerHeight := a.textarea.Height() + 1
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - headerHeight - footerHeight
		a.textarea.SetWidth(msg.Width - 2)

		if !a.ready {
			a.ready = true
		}

		// Width changed: every cached render is at the wrong wrap width
		a.rendered = make(map[int]string)
		a.updateViewportContent(true)
		return a, a.renderAllMarkdown()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		if a.streaming {
			a.updateStreamingViewport()
			return a, cmd
		}
		if a.executingTool != "" {
			return a, cmd
		}
		return a, nil

	case streamEventMsg:
		a.applyStreamEvent(msg.Event)
		a.updateStreamingViewport()
		return a, a.waitForStream()

	case streamDoneMsg:
		return a.finishTurn(msg)

	case markdownRenderedMsg:
		a.rendered[msg.MessageIndex] = msg.Rendered
		if !a.streaming {
			a.updateViewportContent(a.viewport.AtBottom())
		}
		return a, nil

	case modelsListMsg:
		if msg.Err != nil {
			if a.showModelSelector {
				a.closeAllModals()
				a.reportError("Model List Failed", msg.Err.Error())
			} else {
				a.statusNotice = fmt.Sprintf("model list unavailable: %v", msg.Err)
			}
			return a, nil
		}
		a.modelList = msg.Models
		return a, nil

	case sessionsListMsg:
		if msg.Err != nil {
			a.reportError("Session List Failed", msg.Err.Error())
			return a, nil
		}
		a.sessionList = msg.Sessions
		if a.selectedSessionIdx >= len(a.sessionList) {
			a.selectedSessionIdx = 0
		}
		return a, nil

	case sessionLoadedMsg:
		if msg.Err != nil {
			a.reportError("Session Load Failed", msg.Err.Error())
			return a, nil
		}
		a.switchToSession(msg.Session)
		return a, a.renderAllMarkdown()

	case editorFinishedMsg:
		a.finishExternalEditor(msg)
		return a, nil

	case clipboardResultMsg:
		if msg.Err != nil {
			a.statusNotice = fmt.Sprintf("copy failed: %v", msg.Err)
		} else {
			a.statusNotice = "copied to clipboard"
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Everything else flows into the focused components
	var taCmd, vpCmd tea.Cmd
	a.textarea, taCmd = a.textarea.Update(msg)
	a.viewport, vpCmd = a.viewport.Update(msg)
	cmds = append(cmds, taCmd, vpCmd)
	return a, tea.Batch(cmds...)
}

// keyIs matches a key message against a configured action binding.
func (a *App) keyIs(msg tea.KeyMsg, action string) bool {
	binding := a.kb.GetActionKey(action)
	return binding != "" && msg.String() == binding
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal-local keys take priority over everything
	switch {
	case a.showErrorModal:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
			a.showErrorModal = false
		}
		return a, nil

	case a.showHelp:
		if msg.Type == tea.KeyEsc || a.keyIs(msg, "help") {
			a.showHelp = false
		}
		return a, nil

	case a.showAbout:
		if msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter || a.keyIs(msg, "about") {
			a.showAbout = false
		}
		return a, nil

	case a.confirmDeleteSession != nil:
		return a.handleDeleteConfirmKey(msg)

	case a.showSessionManager:
		return a.handleSessionManagerKey(msg)

	case a.showModelSelector:
		return a.handleModelSelectorKey(msg)

	case a.showDatasetSelector:
		return a.handleDatasetSelectorKey(msg)

	case a.showMessageSearch:
		return a.handleMessageSearchKey(msg)

	case a.showGlobalSearch:
		return a.handleGlobalSearchKey(msg)
	}

	// Main view bindings
	switch {
	case a.keyIs(msg, "quit"):
		if a.cancelTurn != nil {
			a.cancelTurn()
		}
		a.persistSession()
		a.releaseSession()
		return a, tea.Quit

	case a.keyIs(msg, "help"):
		a.showHelp = true
		return a, nil

	case a.keyIs(msg, "about"):
		a.showAbout = true
		return a, nil

	case a.keyIs(msg, "new_session"):
		if a.streaming {
			return a, nil
		}
		a.startNewSession()
		return a, nil

	case a.keyIs(msg, "session_manager"):
		a.closeAllModals()
		a.showSessionManager = true
		a.selectedSessionIdx = 0
		return a, a.fetchSessions()

	case a.keyIs(msg, "edit_session"):
		if a.session == nil {
			return a, nil
		}
		a.closeAllModals()
		a.showSessionManager = true
		a.sessionRenameMode = true
		a.sessionRenameInput.SetValue(a.session.Name)
		a.sessionRenameInput.Focus()
		return a, a.fetchSessions()

	case a.keyIs(msg, "model_selector"):
		a.closeAllModals()
		a.showModelSelector = true
		a.selectedModelIdx = 0
		if len(a.modelList) == 0 {
			return a, a.fetchModels()
		}
		return a, nil

	case a.keyIs(msg, "dataset_selector"):
		if a.streaming {
			return a, nil
		}
		a.closeAllModals()
		a.showDatasetSelector = true
		for i, d := range datasetChoices {
			if d == a.activeDataset() {
				a.selectedDatasetIdx = i
			}
		}
		return a, nil

	case a.keyIs(msg, "search_messages"):
		a.closeAllModals()
		a.showMessageSearch = true
		a.messageSearchInput.SetValue("")
		a.messageSearchInput.Focus()
		a.messageSearchResults = nil
		a.selectedSearchIdx = 0
		return a, nil

	case a.keyIs(msg, "search_all_sessions"):
		a.closeAllModals()
		a.showGlobalSearch = true
		a.globalSearchInput.SetValue("")
		a.globalSearchInput.Focus()
		a.globalSearchResults = nil
		a.selectedGlobalIdx = 0
		return a, nil

	case a.keyIs(msg, "toggle_transcript"):
		a.showTranscript = !a.showTranscript
		if a.streaming {
			a.updateStreamingViewport()
		} else {
			a.updateViewportContent(a.viewport.AtBottom())
		}
		return a, nil

	case a.keyIs(msg, "yank_last_response"):
		return a, a.copyLastResponse()

	case a.keyIs(msg, "yank_conversation"):
		return a, a.copyConversation()

	case a.keyIs(msg, "clear_input"):
		a.textarea.Reset()
		return a, nil

	case a.keyIs(msg, "external_editor"):
		return a, a.openExternalEditor()

	case a.keyIs(msg, "scroll_down"), a.keyIs(msg, "scroll_down_arrow"):
		a.viewport.ScrollDown(1)
		return a, nil

	case a.keyIs(msg, "scroll_up"), a.keyIs(msg, "scroll_up_arrow"):
		a.viewport.ScrollUp(1)
		return a, nil

	case a.keyIs(msg, "half_page_down"), a.keyIs(msg, "half_page_down_arrow"):
		a.viewport.HalfPageDown()
		return a, nil

	case a.keyIs(msg, "half_page_up"), a.keyIs(msg, "half_page_up_arrow"):
		a.viewport.HalfPageUp()
		return a, nil

	case a.keyIs(msg, "page_down"):
		a.viewport.PageDown()
		return a, nil

	case a.keyIs(msg, "page_up"):
		a.viewport.PageUp()
		return a, nil

	case a.keyIs(msg, "scroll_to_top"):
		a.viewport.GotoTop()
		return a, nil

	case a.keyIs(msg, "scroll_to_bottom"):
		a.viewport.GotoBottom()
		return a, nil
	}

	if msg.Type == tea.KeyEnter {
		return a, a.sendMessage()
	}

	if msg.Type == tea.KeyEsc && a.streaming {
		// Abort the in-flight turn; history keeps completed iterations
		if a.cancelTurn != nil {
			a.cancelTurn()
		}
		return a, nil
	}

	a.statusNotice = ""

	var taCmd, vpCmd tea.Cmd
	a.textarea, taCmd = a.textarea.Update(msg)
	a.viewport, vpCmd = a.viewport.Update(msg)
	return a, tea.Batch(taCmd, vpCmd)
}

// sendMessage starts one orchestration turn from the textarea content.
func (a *App) sendMessage() tea.Cmd {
	text := strings.TrimSpace(a.textarea.Value())
	if text == "" || a.streaming {
		return nil
	}
	a.textarea.Reset()
	a.statusNotice = ""

	if a.session == nil {
		a.startNewSession()
	}

	if a.history == nil {
		a.history = agent.NewHistory(a.systemPrompt(), text)
	} else {
		a.history.AppendUser(text)
	}
	a.session.Messages = a.history.Messages()

	a.streaming = true
	a.turnText.Reset()
	a.turnRaw.Reset()

	loop := agent.NewLoop(provider.Streamer(a.provider), a.executor, agent.Options{
		ToolTimeout: defaultToolTimeout,
	})

	a.updateStreamingViewport()
	return tea.Batch(a.startTurn(loop, a.history), a.loadingSpinner.Tick)
}

// applyStreamEvent folds one loop event into the in-flight turn buffers.
func (a *App) applyStreamEvent(ev agent.Event) {
	switch ev.Kind {
	case agent.EventText:
		a.turnRaw.WriteString(ev.Text)
		a.turnText.WriteString(ev.Text)
	case agent.EventToolCall:
		a.turnRaw.WriteString(ev.Line() + "\n")
	case agent.EventToolExecuting:
		a.executingTool = ev.Tool
		a.turnRaw.WriteString(ev.Line() + "\n")
	case agent.EventToolResult, agent.EventToolError:
		a.executingTool = ""
		a.turnRaw.WriteString(ev.Line() + "\n")
		a.session.ToolCalls++
	case agent.EventMaxIterations:
		line := ev.Line()
		a.turnRaw.WriteString(line + "\n")
		a.turnText.WriteString("\n" + line + "\n")
	}
}

// finishTurn settles a completed (or failed) turn into the session.
func (a App) finishTurn(msg streamDoneMsg) (tea.Model, tea.Cmd) {
	a.streaming = false
	a.executingTool = ""
	a.cancelTurn = nil
	a.events = nil

	if a.history != nil {
		a.session.Messages = a.history.Messages()
	}

	if msg.Err != nil {
		a.reportError("Response Failed", msg.Err.Error())
	}

	a.persistSession()
	a.updateViewportContent(true)
	return a, a.renderAllMarkdown()
}

// persistSession writes the current session to disk, naming it from the
// first user message when it is still unnamed.
func (a *App) persistSession() {
	if a.session == nil || a.store == nil || len(a.session.Messages) == 0 {
		return
	}

	if a.session.Name == "" || a.session.Name == "New Session" {
		for _, m := range a.session.Messages {
			if m.Role == model.RoleUser {
				a.session.Name = storage.GenerateSessionName(m.Content)
				break
			}
		}
	}

	a.session.Provider = a.providerID
	a.session.Model = a.provider.GetModel()
	a.session.Dataset = a.activeDataset()

	if err := a.store.Save(a.session); err != nil {
		a.statusNotice = fmt.Sprintf("session save failed: %v", err)
		return
	}
	if err := a.store.SaveCurrentSessionID(a.session.ID); err != nil {
		a.statusNotice = fmt.Sprintf("session save failed: %v", err)
	}
	// Mark the session in use so a second instance won't resume it.
	_ = a.store.LockSession(a.session.ID)
}

// releaseSession drops the in-use lock on the current session.
func (a *App) releaseSession() {
	if a.session != nil && a.session.ID != "" && a.store != nil {
		_ = a.store.UnlockSession(a.session.ID)
	}
}

// startNewSession replaces the active session with a fresh one. The old
// session was already persisted at the end of its last turn.
func (a *App) startNewSession() {
	a.persistSession()
	a.releaseSession()
	a.session = &storage.Session{
		Name:    "New Session",
		Dataset: a.cfg.Dataset,
	}
	a.history = nil
	a.rendered = make(map[int]string)
	a.updateViewportContent(true)
}

// switchToSession swaps in a loaded session and rebuilds derived state.
func (a *App) switchToSession(session *storage.Session) {
	a.persistSession()
	a.releaseSession()
	a.closeAllModals()

	a.session = session
	if len(session.Messages) > 0 {
		a.history = agent.ReplayHistory(session.Messages)
	} else {
		a.history = nil
	}
	a.rendered = make(map[int]string)

	// Follow the session's provider when it is available
	if session.Provider != "" {
		if p, ok := a.providers[session.Provider]; ok {
			a.providerID = session.Provider
			a.provider = p
		}
	}
	if session.Model != "" {
		a.provider.SetModel(session.Model)
	}

	if err := a.store.SaveCurrentSessionID(session.ID); err != nil {
		a.statusNotice = fmt.Sprintf("session save failed: %v", err)
	}
	a.updateViewportContent(true)
}

func (a *App) copyLastResponse() tea.Cmd {
	messages := a.displayMessages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant {
			text := agent.FilterTranscript(messages[i].Content)
			return func() tea.Msg {
				return clipboardResultMsg{Err: clipboard.WriteAll(text)}
			}
		}
	}
	return nil
}

func (a *App) copyConversation() tea.Cmd {
	var b strings.Builder
	for _, m := range a.displayMessages() {
		switch m.Role {
		case model.RoleUser:
			b.WriteString("You: " + m.Content + "\n\n")
		case model.RoleAssistant:
			b.WriteString("Assistant: " + agent.FilterTranscript(m.Content) + "\n\n")
		}
	}
	text := b.String()
	if text == "" {
		return nil
	}
	return func() tea.Msg {
		return clipboardResultMsg{Err: clipboard.WriteAll(text)}
	}
}
