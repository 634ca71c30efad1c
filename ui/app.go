package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gesagent/agent"
	"gesagent/config"
	"gesagent/model"
	"gesagent/prompts"
	"gesagent/storage"
)

const listModelsTimeout = 10 * time.Second

// Deps bundles everything the chat view needs from main. Providers maps
// provider ID to its adapter; Executor is the tool process client.
type Deps struct {
	Config           *config.Config
	Keybindings      *config.KeyBindingsConfig
	Store            *storage.SessionStorage
	SearchIndex      *storage.SearchIndex
	Providers        map[string]model.Provider
	ProviderID       string
	Executor         agent.ToolExecutor
	ToolInstructions string
	Session          *storage.Session
	Version          string
}

// App is the root bubbletea model: the chat viewport plus every modal
// layered over it.
type App struct {
	cfg *config.Config
	kb  *config.KeyBindingsConfig

	store       *storage.SessionStorage
	searchIndex *storage.SearchIndex

	providers  map[string]model.Provider
	providerID string
	provider   model.Provider

	executor         agent.ToolExecutor
	toolInstructions string

	session *storage.Session
	history *agent.History

	version string

	// UI components
	viewport       viewport.Model
	textarea       textarea.Model
	loadingSpinner spinner.Model

	width  int
	height int
	ready  bool

	// Streaming state
	streaming     bool
	events        chan tea.Msg
	cancelTurn    context.CancelFunc
	turnText      *strings.Builder // filtered text of the in-flight turn
	turnRaw       *strings.Builder // full marker transcript of the turn
	executingTool string

	// Display state
	showTranscript bool           // raw marker view instead of filtered chat
	rendered       map[int]string // message index -> rendered markdown
	statusNotice   string

	// Modals
	showHelp  bool
	showAbout bool

	showErrorModal  bool
	errorModalTitle string
	errorModalMsg   string
	errorModalType  ModalType

	// Session manager
	showSessionManager   bool
	sessionList          []storage.SessionMetadata
	selectedSessionIdx   int
	sessionFilterMode    bool
	sessionFilterInput   textinput.Model
	filteredSessionList  []storage.SessionMetadata
	sessionRenameMode    bool
	sessionRenameInput   textinput.Model
	confirmDeleteSession *storage.SessionMetadata
	sessionExportNotice  string

	// Model selector
	showModelSelector bool
	modelList         []model.ModelInfo
	selectedModelIdx  int
	modelFilterMode   bool
	modelFilterInput  textinput.Model
	filteredModelList []model.ModelInfo

	// Dataset selector
	showDatasetSelector bool
	selectedDatasetIdx  int

	// Search modals
	showMessageSearch      bool
	messageSearchInput     textinput.Model
	messageSearchResults   []storage.MessageMatch
	selectedSearchIdx      int
	showGlobalSearch       bool
	globalSearchInput      textinput.Model
	globalSearchResults    []storage.SessionMessageMatch
	selectedGlobalIdx      int
	pendingScrollToMessage int
}

// datasets the selector offers, in display order.
var datasetChoices = []string{prompts.DatasetGesetze, prompts.DatasetWerkstatt}

func New(deps Deps) App {
	ta := textarea.New()
	ta.Placeholder = "Ask about the dataset..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Alt+Enter inserts a newline; bare Enter sends (handled in Update)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	sessionFilterInput := textinput.New()
	sessionFilterInput.Prompt = "Filter: "
	sessionFilterInput.CharLimit = 64

	sessionRenameInput := textinput.New()
	sessionRenameInput.Prompt = "Name: "
	sessionRenameInput.CharLimit = 64

	modelFilterInput := textinput.New()
	modelFilterInput.Prompt = "Filter: "
	modelFilterInput.CharLimit = 64

	messageSearchInput := textinput.New()
	messageSearchInput.Prompt = "Search: "
	messageSearchInput.CharLimit = 100

	globalSearchInput := textinput.New()
	globalSearchInput.Prompt = "Search all: "
	globalSearchInput.CharLimit = 100

	provider := deps.Providers[deps.ProviderID]

	a := App{
		cfg:                    deps.Config,
		kb:                     deps.Keybindings,
		store:                  deps.Store,
		searchIndex:            deps.SearchIndex,
		providers:              deps.Providers,
		providerID:             deps.ProviderID,
		provider:               provider,
		executor:               deps.Executor,
		toolInstructions:       deps.ToolInstructions,
		session:                deps.Session,
		version:                deps.Version,
		textarea:               ta,
		viewport:               viewport.New(0, 0),
		loadingSpinner:         sp,
		turnText:               &strings.Builder{},
		turnRaw:                &strings.Builder{},
		rendered:               make(map[int]string),
		sessionFilterInput:     sessionFilterInput,
		sessionRenameInput:     sessionRenameInput,
		modelFilterInput:       modelFilterInput,
		messageSearchInput:     messageSearchInput,
		globalSearchInput:      globalSearchInput,
		pendingScrollToMessage: -1,
	}

	if deps.Session != nil && len(deps.Session.Messages) > 0 {
		a.history = agent.ReplayHistory(deps.Session.Messages)
	}

	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.loadingSpinner.Tick, a.fetchModels())
}

// systemPrompt builds the full system prompt for the active dataset,
// including the tool directive instructions.
func (a *App) systemPrompt() string {
	dataset := a.cfg.Dataset
	if a.session != nil && a.session.Dataset != "" {
		dataset = a.session.Dataset
	}
	return prompts.System(dataset, a.toolInstructions)
}

func (a *App) activeDataset() string {
	if a.session != nil && a.session.Dataset != "" {
		return a.session.Dataset
	}
	if a.cfg.Dataset != "" {
		return a.cfg.Dataset
	}
	return prompts.DatasetGesetze
}

// displayMessages projects the durable history into what the chat shows:
// the system prompt and synthetic continue nudges are hidden, everything
// else is visible. Transcript mode shows assistant text raw.
func (a *App) displayMessages() []model.Message {
	if a.session == nil {
		return nil
	}
	var out []model.Message
	for _, msg := range a.session.Messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		if agent.IsContinueNudge(msg) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func (a App) getSessionList() []storage.SessionMetadata {
	if a.sessionFilterMode && len(a.filteredSessionList) > 0 {
		return a.filteredSessionList
	}
	return a.sessionList
}

func (a App) getModelList() []model.ModelInfo {
	if a.modelFilterMode && len(a.filteredModelList) > 0 {
		return a.filteredModelList
	}
	return a.modelList
}

func (a *App) closeAllModals() {
	a.showHelp = false
	a.showAbout = false
	a.showErrorModal = false
	a.showSessionManager = false
	a.showModelSelector = false
	a.showDatasetSelector = false
	a.showMessageSearch = false
	a.showGlobalSearch = false

	a.sessionRenameMode = false
	a.sessionFilterMode = false
	a.confirmDeleteSession = nil
	a.modelFilterMode = false

	for _, input := range []*textinput.Model{
		&a.sessionRenameInput, &a.sessionFilterInput, &a.modelFilterInput,
		&a.messageSearchInput, &a.globalSearchInput,
	} {
		if input.Focused() {
			input.Blur()
		}
	}
}

func (a *App) reportError(title, msg string) {
	a.showErrorModal = true
	a.errorModalTitle = title
	a.errorModalMsg = msg
	a.errorModalType = ModalTypeError
}

func (a App) View() string {
	if !a.ready {
		return "Loading gesagent..."
	}

	// Modal rendering order, top layer first
	if a.showErrorModal {
		return RenderAcknowledgeModal(a.errorModalTitle, a.errorModalMsg, a.errorModalType, a.width, a.height)
	}
	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}
	if a.confirmDeleteSession != nil {
		return renderConfirmModal(
			"Delete Session",
			fmt.Sprintf("Delete %q? This cannot be undone.", a.confirmDeleteSession.Name),
			a.width, a.height,
		)
	}
	if a.showModelSelector {
		return a.renderModelSelector()
	}
	if a.showDatasetSelector {
		return a.renderDatasetSelector()
	}
	if a.showSessionManager {
		return a.renderSessionManager()
	}
	if a.showGlobalSearch {
		return a.renderGlobalSearch()
	}
	if a.showMessageSearch {
		return a.renderMessageSearch()
	}
	if a.showAbout {
		return a.renderAboutModal()
	}

	return a.renderChat()
}

// renderChat renders the main chat layout: title, viewport, input, status.
func (a App) renderChat() string {
	nameText := AssistantStyle.Render("gesagent")
	modelText := TitleStyle.Render(fmt.Sprintf(" - %s:%s", a.providerID, a.provider.GetModel()))

	sessionName := "New Session"
	if a.session != nil && a.session.Name != "" {
		sessionName = a.session.Name
	}
	sessionText := UserStyle.Render(fmt.Sprintf(" - %s", sessionName))
	datasetText := DimStyle.Render(fmt.Sprintf(" | %s", a.activeDataset()))

	title := nameText + modelText + sessionText + datasetText

	if a.showTranscript {
		title += ToolStyle.Render(" | transcript")
	}
	if a.executingTool != "" {
		title += ToolStyle.Render(fmt.Sprintf(" | tool: %s %s", a.executingTool, a.loadingSpinner.View()))
	}

	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	statusBar := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s  %s %s  Enter %s",
		a.kb.DisplayActionKey("quit"), descStyle.Render("Quit"),
		a.kb.DisplayActionKey("session_manager"), descStyle.Render("Sessions"),
		a.kb.DisplayActionKey("model_selector"), descStyle.Render("Models"),
		a.kb.DisplayActionKey("search_messages"), descStyle.Render("Search"),
		a.kb.DisplayActionKey("toggle_transcript"), descStyle.Render("Transcript"),
		a.kb.DisplayActionKey("help"), descStyle.Render("Help"),
		descStyle.Render("Send"),
	)
	if a.statusNotice != "" {
		statusBar = DimStyle.Render(a.statusNotice)
	}
	statusBar = StatusStyle.Render(statusBar)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		a.viewport.View(),
		a.textarea.View(),
		statusBar,
	)
}
