package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"gesagent/agent"
	"gesagent/config"
	"gesagent/model"
)

// Pre-compiled regex patterns for better performance
var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

func (a *App) updateViewportContent(gotoBottom bool) {
	messages := a.displayMessages()
	if len(messages) == 0 {
		a.viewport.SetContent("No messages yet. Ask something about the dataset.")
		return
	}

	var content strings.Builder

	for i, msg := range messages {
		content.WriteString(a.formatMessage(i, msg))
	}

	a.viewport.SetContent(content.String())
	if a.pendingScrollToMessage >= 0 {
		a.scrollToMessage(a.pendingScrollToMessage, content.String())
		a.pendingScrollToMessage = -1
		return
	}
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

// formatMessage renders one durable message for the viewport. Assistant
// text is the cached markdown render in chat mode and the raw marker
// transcript in transcript mode.
func (a *App) formatMessage(idx int, msg model.Message) string {
	timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))

	switch msg.Role {
	case model.RoleUser:
		return formatUserMessage(timestamp, UserStyle.Render("You"), msg.Content)
	case model.RoleAssistant:
		body := a.assistantBody(idx, msg)
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Assistant"), body)
	default:
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, DimStyle.Render("System"), msg.Content)
	}
}

func (a *App) assistantBody(idx int, msg model.Message) string {
	if a.showTranscript {
		return colorizeTranscript(msg.Content)
	}
	if rendered, ok := a.rendered[idx]; ok {
		return rendered
	}
	return agent.FilterTranscript(msg.Content)
}

// updateStreamingViewport redraws the viewport while a turn is in flight:
// all settled messages plus the accumulating response.
func (a *App) updateStreamingViewport() {
	var content strings.Builder

	for i, msg := range a.displayMessages() {
		content.WriteString(a.formatMessage(i, msg))
	}

	timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
	role := AssistantStyle.Render("Assistant")

	current := a.turnText.String()
	if a.showTranscript {
		current = colorizeTranscript(a.turnRaw.String())
	}

	streamContent := a.loadingSpinner.View()
	if current != "" {
		streamContent = current + "▋"
	}

	content.WriteString(fmt.Sprintf("%s %s\n%s\n\n", timestamp, role, streamContent))

	a.viewport.SetContent(content.String())
	a.viewport.GotoBottom()
}

// colorizeTranscript highlights tool marker lines in the raw view.
func colorizeTranscript(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, agent.DirectiveMarker+" ") ||
			strings.HasPrefix(trimmed, "[calling MCP ") ||
			strings.HasPrefix(trimmed, "[MCP ") ||
			strings.HasPrefix(trimmed, "[Hint]") ||
			strings.HasPrefix(trimmed, "[maximum iterations") {
			lines[i] = ToolStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func formatUserMessage(timestamp, role, content string) string {
	greenBold := "\x1b[32;1m"
	reset := "\x1b[0m"
	bar := greenBold + "┃" + reset

	lines := strings.Split(content, "\n")

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s %s %s\n", bar, timestamp, role))

	for _, line := range lines {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}

	result.WriteString("\n")

	return result.String()
}

// scrollToMessage positions the viewport so the given display message index
// is at the top. Used by search result jumps.
func (a *App) scrollToMessage(idx int, content string) {
	messages := a.displayMessages()
	if idx < 0 || idx >= len(messages) {
		a.viewport.GotoBottom()
		return
	}

	// Count rendered lines of everything before the target message
	var before strings.Builder
	for i := 0; i < idx; i++ {
		before.WriteString(a.formatMessage(i, messages[i]))
	}
	line := strings.Count(before.String(), "\n")
	a.viewport.SetYOffset(line)
}

// renderAllMarkdown schedules a markdown render for every assistant
// message that has none cached at the current width.
func (a *App) renderAllMarkdown() tea.Cmd {
	var cmds []tea.Cmd
	for i, msg := range a.displayMessages() {
		if msg.Role != model.RoleAssistant {
			continue
		}
		cmds = append(cmds, a.renderMarkdownAsync(i, msg.Content))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (a App) renderMarkdownAsync(messageIndex int, content string) tea.Cmd {
	width := a.width
	return func() tea.Msg {
		start := time.Now()

		// The model's tool chatter is stripped before rendering; the raw
		// record stays in the session for transcript mode.
		text := agent.FilterTranscript(content)
		text = preprocessLinks(text)

		// Disable autolink so URLs stay plain text and the terminal
		// emulator handles clickability.
		defaultExt := markdown.Extensions()
		customExt := defaultExt &^ parser.Autolink
		p := parser.NewWithExtensions(customExt)
		r := markdown.NewRenderer(width-4, 0)
		doc := p.Parse([]byte(text))
		rendered := gomarkdown.Render(doc, r)

		processed := postProcessMarkdown(string(rendered), width)

		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] markdown render message %d: %d chars in %v", messageIndex, len(content), time.Since(start))
		}

		return markdownRenderedMsg{
			MessageIndex: messageIndex,
			Rendered:     processed,
		}
	}
}

func postProcessMarkdown(rendered string, width int) string {
	rendered = fixInlineCode(rendered)
	rendered = fixMarkdownLinks(rendered)
	rendered = frameCodeBlocks(rendered, width)
	return rendered
}

func preprocessLinks(content string) string {
	// Strip markdown link syntax [text](url) -> just url
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

func fixInlineCode(s string) string {
	// Blue background (go-term-markdown default) -> red text
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func fixMarkdownLinks(s string) string {
	redColor := "\x1b[31m"
	reset := "\x1b[0m"

	lines := strings.Split(s, "\n")

	for i, line := range lines {
		// Skip code blocks (they carry the ┃ prefix from the renderer)
		if !strings.Contains(line, "┃") {
			lines[i] = urlRegex.ReplaceAllString(line, redColor+"$1"+reset)
		}
	}

	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	lines := strings.Split(s, "\n")
	var result []string
	var codeBlockLines []string
	inCodeBlock := false

	darkGray := "\x1b[90m"
	reset := "\x1b[0m"

	closeBlock := func() {
		result = append(result, codeBlockLines...)
		result = append(result, "")
		border := darkGray + strings.Repeat("━", width-4) + reset
		result = append(result, border)
		result = append(result, "")
		codeBlockLines = nil
		inCodeBlock = false
	}

	for _, line := range lines {
		if strings.Contains(line, "┃") {
			if !inCodeBlock {
				inCodeBlock = true
				codeBlockLines = []string{}
				result = append(result, "")

				label := "[code]"
				lineLen := width - 4
				leftLen := (lineLen - len(label)) / 2
				rightLen := lineLen - len(label) - leftLen
				border := darkGray + strings.Repeat("━", leftLen) + reset + label + darkGray + strings.Repeat("━", rightLen) + reset

				result = append(result, border)
				result = append(result, "")
			}

			codeBlockLines = append(codeBlockLines, stripCodeBlockPrefix(line))
		} else {
			if inCodeBlock {
				closeBlock()
			}
			result = append(result, line)
		}
	}

	if inCodeBlock && len(codeBlockLines) > 0 {
		closeBlock()
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, "┃")
	if idx >= 0 {
		after := idx + len("┃")
		if after < len(line) && line[after] == ' ' {
			after++
		}
		if after < len(line) {
			return line[after:]
		}
		return ""
	}
	return line
}
