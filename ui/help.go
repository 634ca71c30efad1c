package ui

import (
	"fmt"
)

type helpEntry struct {
	action string
	desc   string
}

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{
		title: "Conversation",
		entries: []helpEntry{
			{"", "Enter sends, Alt+Enter inserts a newline"},
			{"new_session", "New session"},
			{"toggle_transcript", "Toggle raw tool transcript"},
			{"yank_last_response", "Copy last response"},
			{"yank_conversation", "Copy whole conversation"},
			{"clear_input", "Clear input"},
		},
	},
	{
		title: "Navigation",
		entries: []helpEntry{
			{"scroll_up", "Scroll up"},
			{"scroll_down", "Scroll down"},
			{"half_page_up", "Half page up"},
			{"half_page_down", "Half page down"},
			{"scroll_to_top", "Go to top"},
			{"scroll_to_bottom", "Go to bottom"},
		},
	},
	{
		title: "Modals",
		entries: []helpEntry{
			{"session_manager", "Session manager"},
			{"edit_session", "Rename current session"},
			{"model_selector", "Model selector"},
			{"dataset_selector", "Dataset selector"},
			{"search_messages", "Search this session"},
			{"search_all_sessions", "Search all sessions"},
			{"about", "About"},
			{"quit", "Quit"},
		},
	},
}

func (a App) renderHelpModal(width, height int) string {
	var lines []string

	for si, section := range helpSections {
		if si > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, " "+TitleStyle.Render(section.title))
		for _, e := range section.entries {
			if e.action == "" {
				lines = append(lines, fmt.Sprintf("   %-12s %s", "", DimStyle.Render(e.desc)))
				continue
			}
			// Pad before styling so the ANSI codes don't skew alignment
			keyLabel := fmt.Sprintf("%-12s", a.kb.DisplayActionKey(e.action))
			lines = append(lines, "   "+SelectedStyle.Render(keyLabel)+" "+e.desc)
		}
	}

	footer := FormatFooter("Esc", "Close")
	return RenderThreeSectionModal("Keyboard Shortcuts", lines, footer, ModalTypeInfo, 64, width, height)
}
