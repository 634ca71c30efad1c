package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"gesagent/storage"
)

func (a App) handleSessionManagerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Rename and filter modes capture all typing
	if a.sessionRenameMode {
		switch msg.Type {
		case tea.KeyEsc:
			a.sessionRenameMode = false
			a.sessionRenameInput.Blur()
			return a, nil
		case tea.KeyEnter:
			name := a.sessionRenameInput.Value()
			a.sessionRenameMode = false
			a.sessionRenameInput.Blur()
			if name == "" {
				return a, nil
			}
			sessions := a.getSessionList()
			if a.selectedSessionIdx < len(sessions) {
				target := sessions[a.selectedSessionIdx]
				if err := a.store.RenameSession(target.ID, name); err != nil {
					a.reportError("Rename Failed", err.Error())
					return a, nil
				}
				if a.session != nil && a.session.ID == target.ID {
					a.session.Name = name
				}
			}
			return a, a.fetchSessions()
		}
		var cmd tea.Cmd
		a.sessionRenameInput, cmd = a.sessionRenameInput.Update(msg)
		return a, cmd
	}

	if a.sessionFilterMode {
		switch msg.Type {
		case tea.KeyEsc:
			a.sessionFilterMode = false
			a.sessionFilterInput.Blur()
			a.sessionFilterInput.SetValue("")
			a.filteredSessionList = nil
			return a, nil
		case tea.KeyEnter:
			a.sessionFilterMode = false
			a.sessionFilterInput.Blur()
			return a.openSelectedSession()
		case tea.KeyUp:
			if a.selectedSessionIdx > 0 {
				a.selectedSessionIdx--
			}
			return a, nil
		case tea.KeyDown:
			if a.selectedSessionIdx < len(a.getSessionList())-1 {
				a.selectedSessionIdx++
			}
			return a, nil
		}
		var cmd tea.Cmd
		a.sessionFilterInput, cmd = a.sessionFilterInput.Update(msg)
		a.applySessionFilter()
		return a, cmd
	}

	switch msg.String() {
	case "esc", "q":
		a.closeAllModals()
		return a, nil

	case "up", "k":
		if a.selectedSessionIdx > 0 {
			a.selectedSessionIdx--
		}
		return a, nil

	case "down", "j":
		if a.selectedSessionIdx < len(a.getSessionList())-1 {
			a.selectedSessionIdx++
		}
		return a, nil

	case "enter":
		return a.openSelectedSession()

	case "/":
		a.sessionFilterMode = true
		a.sessionFilterInput.SetValue("")
		a.sessionFilterInput.Focus()
		a.selectedSessionIdx = 0
		a.filteredSessionList = nil
		return a, nil

	case "r":
		sessions := a.getSessionList()
		if a.selectedSessionIdx < len(sessions) {
			a.sessionRenameMode = true
			a.sessionRenameInput.SetValue(sessions[a.selectedSessionIdx].Name)
			a.sessionRenameInput.Focus()
		}
		return a, nil

	case "d":
		sessions := a.getSessionList()
		if a.selectedSessionIdx < len(sessions) {
			target := sessions[a.selectedSessionIdx]
			a.confirmDeleteSession = &target
		}
		return a, nil

	case "x":
		sessions := a.getSessionList()
		if a.selectedSessionIdx < len(sessions) {
			target := sessions[a.selectedSessionIdx]
			exportPath := storage.GenerateExportPath(target.Name)
			if err := a.store.ExportToJSON(target.ID, exportPath); err != nil {
				a.reportError("Export Failed", err.Error())
				return a, nil
			}
			a.sessionExportNotice = fmt.Sprintf("exported to %s", exportPath)
		}
		return a, nil

	case "n":
		a.closeAllModals()
		a.startNewSession()
		return a, nil
	}

	return a, nil
}

func (a App) handleDeleteConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		target := a.confirmDeleteSession
		a.confirmDeleteSession = nil
		if target == nil {
			return a, nil
		}
		if err := a.store.Delete(target.ID); err != nil {
			a.reportError("Delete Failed", err.Error())
			return a, nil
		}
		_ = a.store.UnlockSession(target.ID)
		if a.session != nil && a.session.ID == target.ID {
			a.session = nil
			a.history = nil
			a.rendered = make(map[int]string)
			a.startNewSession()
		}
		a.selectedSessionIdx = 0
		return a, a.fetchSessions()
	case "n", "N", "esc":
		a.confirmDeleteSession = nil
		return a, nil
	}
	return a, nil
}

func (a App) openSelectedSession() (tea.Model, tea.Cmd) {
	sessions := a.getSessionList()
	if a.selectedSessionIdx >= len(sessions) {
		return a, nil
	}
	target := sessions[a.selectedSessionIdx]
	if a.session != nil && a.session.ID == target.ID {
		a.closeAllModals()
		return a, nil
	}
	return a, a.loadSession(target.ID)
}

// applySessionFilter fuzzy-matches the filter text against session names.
func (a *App) applySessionFilter() {
	query := a.sessionFilterInput.Value()
	if query == "" {
		a.filteredSessionList = nil
		a.selectedSessionIdx = 0
		return
	}

	names := make([]string, len(a.sessionList))
	for i, s := range a.sessionList {
		names[i] = s.Name
	}

	matches := fuzzy.Find(query, names)
	filtered := make([]storage.SessionMetadata, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, a.sessionList[m.Index])
	}
	a.filteredSessionList = filtered
	if a.selectedSessionIdx >= len(filtered) {
		a.selectedSessionIdx = 0
	}
}

const sessionManagerWidth = 70

func (a App) renderSessionManager() string {
	sessions := a.getSessionList()

	var lines []string
	if a.sessionFilterMode {
		lines = append(lines, " "+a.sessionFilterInput.View())
		lines = append(lines, "")
	}
	if a.sessionRenameMode {
		lines = append(lines, " "+a.sessionRenameInput.View())
		lines = append(lines, "")
	}

	if len(sessions) == 0 {
		lines = append(lines, DimStyle.Render("  No sessions yet"))
	}

	// Keep the list within the modal: show a window around the selection
	maxVisible := a.height - 12
	if maxVisible < 5 {
		maxVisible = 5
	}
	start := 0
	if a.selectedSessionIdx >= maxVisible {
		start = a.selectedSessionIdx - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(sessions) {
		end = len(sessions)
	}

	for i := start; i < end; i++ {
		s := sessions[i]
		marker := "  "
		if a.session != nil && s.ID == a.session.ID {
			marker = "* "
		}
		line := fmt.Sprintf("%s%-30s %s  %d msgs", marker,
			truncate(s.Name, 30),
			s.UpdatedAt.Format("2006-01-02 15:04"),
			s.MessageCount)
		if i == a.selectedSessionIdx {
			line = SelectedStyle.Render("> " + line[2:])
		}
		lines = append(lines, line)
	}

	if a.sessionExportNotice != "" {
		lines = append(lines, "", DimStyle.Render(" "+a.sessionExportNotice))
	}

	footer := FormatFooter(
		"j/k", "Navigate", "Enter", "Open", "/", "Filter",
		"r", "Rename", "d", "Delete", "x", "Export", "n", "New", "Esc", "Close",
	)
	return RenderThreeSectionModal("Sessions", lines, footer, ModalTypeInfo, sessionManagerWidth, a.width, a.height)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
