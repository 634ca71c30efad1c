package ui

import (
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"gesagent/config"
)

type editorFinishedMsg struct {
	Err error
}

// openExternalEditor suspends the TUI and opens $EDITOR on a scratch file
// seeded with the current input. The edited text replaces the input when
// the editor exits.
func (a *App) openExternalEditor() tea.Cmd {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	if err := config.CreateTempDir(); err != nil {
		a.statusNotice = "editor unavailable: " + err.Error()
		return nil
	}
	path := config.GetEditorFilePath()
	if err := os.WriteFile(path, []byte(a.textarea.Value()), 0600); err != nil {
		a.statusNotice = "editor unavailable: " + err.Error()
		return nil
	}

	cmd := exec.Command(editor, path)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{Err: err}
	})
}

// finishExternalEditor pulls the edited text back into the input.
func (a *App) finishExternalEditor(msg editorFinishedMsg) {
	if msg.Err != nil {
		a.statusNotice = "editor failed: " + msg.Err.Error()
		return
	}
	data, err := os.ReadFile(config.GetEditorFilePath())
	if err != nil {
		a.statusNotice = "editor read failed: " + err.Error()
		return
	}
	a.textarea.SetValue(strings.TrimRight(string(data), "\n"))
	_ = config.ClearEditorFile()
}
