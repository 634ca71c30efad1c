package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"gesagent/agent"
	"gesagent/model"
	"gesagent/storage"
)

// displayIndexFor converts an index into the full message slice (what the
// search helpers report) to an index into the projected display list.
func displayIndexFor(messages []model.Message, fullIdx int) int {
	display := 0
	for i, msg := range messages {
		if msg.Role == model.RoleSystem || agent.IsContinueNudge(msg) {
			continue
		}
		if i == fullIdx {
			return display
		}
		display++
	}
	return -1
}

func (a App) handleMessageSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.closeAllModals()
		return a, nil

	case tea.KeyUp:
		if a.selectedSearchIdx > 0 {
			a.selectedSearchIdx--
		}
		return a, nil

	case tea.KeyDown:
		if a.selectedSearchIdx < len(a.messageSearchResults)-1 {
			a.selectedSearchIdx++
		}
		return a, nil

	case tea.KeyEnter:
		if a.selectedSearchIdx >= len(a.messageSearchResults) {
			return a, nil
		}
		match := a.messageSearchResults[a.selectedSearchIdx]
		a.closeAllModals()
		if a.session != nil {
			a.pendingScrollToMessage = displayIndexFor(a.session.Messages, match.MessageIndex)
			a.updateViewportContent(false)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.messageSearchInput, cmd = a.messageSearchInput.Update(msg)

	query := a.messageSearchInput.Value()
	if a.session != nil {
		a.messageSearchResults = storage.SearchMessages(a.session.Messages, query)
	}
	if a.selectedSearchIdx >= len(a.messageSearchResults) {
		a.selectedSearchIdx = 0
	}
	return a, cmd
}

func (a App) handleGlobalSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.closeAllModals()
		return a, nil

	case tea.KeyUp:
		if a.selectedGlobalIdx > 0 {
			a.selectedGlobalIdx--
		}
		return a, nil

	case tea.KeyDown:
		if a.selectedGlobalIdx < len(a.globalSearchResults)-1 {
			a.selectedGlobalIdx++
		}
		return a, nil

	case tea.KeyEnter:
		if a.selectedGlobalIdx >= len(a.globalSearchResults) {
			return a, nil
		}
		match := a.globalSearchResults[a.selectedGlobalIdx]
		a.closeAllModals()
		if a.session != nil && a.session.ID == match.SessionID {
			a.pendingScrollToMessage = displayIndexFor(a.session.Messages, match.MessageIndex)
			a.updateViewportContent(false)
			return a, nil
		}
		// Jumping into another session loads it first; exact message
		// position is restored once the session arrives.
		return a, a.loadSession(match.SessionID)
	}

	var cmd tea.Cmd
	a.globalSearchInput, cmd = a.globalSearchInput.Update(msg)

	query := a.globalSearchInput.Value()
	if query == "" {
		a.globalSearchResults = nil
	} else {
		results, err := a.searchIndex.SearchAllSessions(query)
		if err != nil {
			a.statusNotice = fmt.Sprintf("search failed: %v", err)
		} else {
			a.globalSearchResults = results
		}
	}
	if a.selectedGlobalIdx >= len(a.globalSearchResults) {
		a.selectedGlobalIdx = 0
	}
	return a, cmd
}

const searchModalWidth = 80

func (a App) renderMessageSearch() string {
	var lines []string
	lines = append(lines, " "+a.messageSearchInput.View())
	lines = append(lines, "")

	if a.messageSearchInput.Value() != "" && len(a.messageSearchResults) == 0 {
		lines = append(lines, DimStyle.Render("  No matches"))
	}

	lines = append(lines, a.renderSearchResults(searchResultLines(a.messageSearchResults, a.messageSearchInput.Value()), a.selectedSearchIdx)...)

	footer := FormatFooter("↑/↓", "Navigate", "Enter", "Jump", "Esc", "Close")
	return RenderThreeSectionModal("Search Messages", lines, footer, ModalTypeInfo, searchModalWidth, a.width, a.height)
}

func (a App) renderGlobalSearch() string {
	var lines []string
	lines = append(lines, " "+a.globalSearchInput.View())
	lines = append(lines, "")

	if a.globalSearchInput.Value() != "" && len(a.globalSearchResults) == 0 {
		lines = append(lines, DimStyle.Render("  No matches in any session"))
	}

	lines = append(lines, a.renderSearchResults(globalResultLines(a.globalSearchResults, a.globalSearchInput.Value()), a.selectedGlobalIdx)...)

	footer := FormatFooter("↑/↓", "Navigate", "Enter", "Jump", "Esc", "Close")
	return RenderThreeSectionModal("Search All Sessions", lines, footer, ModalTypeInfo, searchModalWidth, a.width, a.height)
}

// renderSearchResults windows and highlights a result list.
func (a App) renderSearchResults(entries []string, selected int) []string {
	maxVisible := a.height - 14
	if maxVisible < 5 {
		maxVisible = 5
	}
	start := 0
	if selected >= maxVisible {
		start = selected - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(entries) {
		end = len(entries)
	}

	var lines []string
	for i := start; i < end; i++ {
		line := "  " + entries[i]
		if i == selected {
			line = SelectedStyle.Render("> " + entries[i])
		}
		lines = append(lines, line)
	}
	return lines
}

func searchResultLines(matches []storage.MessageMatch, query string) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		preview := highlightQuery(flatten(m.Preview, searchModalWidth-16), query)
		out[i] = fmt.Sprintf("%-9s %s", roleLabel(m.Role), preview)
	}
	return out
}

func globalResultLines(matches []storage.SessionMessageMatch, query string) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		preview := highlightQuery(flatten(m.Preview, searchModalWidth-36), query)
		out[i] = fmt.Sprintf("%-20s %-9s %s",
			truncate(m.SessionName, 20), roleLabel(m.Role), preview)
	}
	return out
}

// highlightQuery emphasizes the first case-insensitive occurrence of the
// query within a preview line.
func highlightQuery(preview, query string) string {
	if query == "" {
		return preview
	}
	idx := strings.Index(strings.ToLower(preview), strings.ToLower(query))
	if idx < 0 {
		return preview
	}
	end := idx + len(query)
	return preview[:idx] + HighlightStyle.Render(preview[idx:end]) + preview[end:]
}

func roleLabel(role string) string {
	switch role {
	case model.RoleUser:
		return "You"
	case model.RoleAssistant:
		return "Assistant"
	}
	return string(role)
}

// flatten collapses a preview onto one line and trims it to width.
func flatten(s string, width int) string {
	flat := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		flat = append(flat, r)
	}
	out := string(flat)
	if len(out) > width && width > 3 {
		out = out[:width-3] + "..."
	}
	return out
}
