package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"gesagent/model"
	"gesagent/prompts"
)

func (a App) handleModelSelectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.modelFilterMode {
		switch msg.Type {
		case tea.KeyEsc:
			a.modelFilterMode = false
			a.modelFilterInput.Blur()
			a.modelFilterInput.SetValue("")
			a.filteredModelList = nil
			return a, nil
		case tea.KeyEnter:
			a.modelFilterMode = false
			a.modelFilterInput.Blur()
			return a.selectModel()
		case tea.KeyUp:
			if a.selectedModelIdx > 0 {
				a.selectedModelIdx--
			}
			return a, nil
		case tea.KeyDown:
			if a.selectedModelIdx < len(a.getModelList())-1 {
				a.selectedModelIdx++
			}
			return a, nil
		}
		var cmd tea.Cmd
		a.modelFilterInput, cmd = a.modelFilterInput.Update(msg)
		a.applyModelFilter()
		return a, cmd
	}

	switch msg.String() {
	case "esc", "q":
		a.closeAllModals()
		return a, nil

	case "up", "k":
		if a.selectedModelIdx > 0 {
			a.selectedModelIdx--
		}
		return a, nil

	case "down", "j":
		if a.selectedModelIdx < len(a.getModelList())-1 {
			a.selectedModelIdx++
		}
		return a, nil

	case "/":
		a.modelFilterMode = true
		a.modelFilterInput.SetValue("")
		a.modelFilterInput.Focus()
		a.selectedModelIdx = 0
		a.filteredModelList = nil
		return a, nil

	case "R":
		a.modelList = nil
		a.filteredModelList = nil
		a.selectedModelIdx = 0
		return a, a.fetchModels()

	case "enter":
		return a.selectModel()
	}

	return a, nil
}

// selectModel activates the highlighted model, switching providers when the
// model belongs to a different one.
func (a App) selectModel() (tea.Model, tea.Cmd) {
	models := a.getModelList()
	if a.selectedModelIdx >= len(models) {
		return a, nil
	}
	chosen := models[a.selectedModelIdx]

	if chosen.Provider != a.providerID {
		p, ok := a.providers[chosen.Provider]
		if !ok {
			a.reportError("Provider Unavailable",
				fmt.Sprintf("provider %q is not configured", chosen.Provider))
			return a, nil
		}
		a.providerID = chosen.Provider
		a.provider = p
	}
	a.provider.SetModel(chosen.Name)

	if a.session != nil {
		a.session.Provider = a.providerID
		a.session.Model = chosen.Name
	}

	a.closeAllModals()
	a.statusNotice = fmt.Sprintf("model: %s:%s", a.providerID, chosen.Name)
	return a, nil
}

func (a *App) applyModelFilter() {
	query := a.modelFilterInput.Value()
	if query == "" {
		a.filteredModelList = nil
		a.selectedModelIdx = 0
		return
	}

	names := make([]string, len(a.modelList))
	for i, m := range a.modelList {
		names[i] = m.Name
	}

	matches := fuzzy.Find(query, names)
	filtered := make([]model.ModelInfo, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, a.modelList[m.Index])
	}
	a.filteredModelList = filtered
	if a.selectedModelIdx >= len(filtered) {
		a.selectedModelIdx = 0
	}
}

func (a App) renderModelSelector() string {
	models := a.getModelList()

	if len(models) == 0 && !a.modelFilterMode {
		return renderSpinnerModal("Fetching models...", a.loadingSpinner.View(), a.width, a.height)
	}

	var lines []string
	if a.modelFilterMode {
		lines = append(lines, " "+a.modelFilterInput.View())
		lines = append(lines, "")
	}

	if len(models) == 0 {
		lines = append(lines, DimStyle.Render("  No models match"))
	}

	maxVisible := a.height - 12
	if maxVisible < 5 {
		maxVisible = 5
	}
	start := 0
	if a.selectedModelIdx >= maxVisible {
		start = a.selectedModelIdx - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(models) {
		end = len(models)
	}

	current := a.provider.GetModel()
	for i := start; i < end; i++ {
		m := models[i]
		marker := "  "
		if m.Name == current && m.Provider == a.providerID {
			marker = "* "
		}
		size := ""
		if m.Size > 0 {
			size = "  " + DimStyle.Render(formatModelSize(m.Size))
		}
		line := fmt.Sprintf("%s%-12s %s%s", marker, m.Provider, m.Name, size)
		if i == a.selectedModelIdx {
			line = SelectedStyle.Render("> " + line[2:])
		}
		lines = append(lines, line)
	}

	footer := FormatFooter(
		"j/k", "Navigate", "Enter", "Select", "/", "Filter", "R", "Refresh", "Esc", "Close",
	)
	return RenderThreeSectionModal("Models", lines, footer, ModalTypeInfo, 70, a.width, a.height)
}

// formatModelSize renders a byte count the way ollama's CLI does (GB/MB).
func formatModelSize(size int64) string {
	const gb = 1024 * 1024 * 1024
	const mb = 1024 * 1024
	switch {
	case size >= gb:
		return fmt.Sprintf("%.1f GB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.0f MB", float64(size)/mb)
	}
	return fmt.Sprintf("%d B", size)
}

func (a App) handleDatasetSelectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.closeAllModals()
		return a, nil

	case "up", "k":
		if a.selectedDatasetIdx > 0 {
			a.selectedDatasetIdx--
		}
		return a, nil

	case "down", "j":
		if a.selectedDatasetIdx < len(datasetChoices)-1 {
			a.selectedDatasetIdx++
		}
		return a, nil

	case "enter":
		chosen := datasetChoices[a.selectedDatasetIdx]
		a.closeAllModals()
		if chosen == a.activeDataset() {
			return a, nil
		}
		// Switching datasets mid-conversation would leave the system prompt
		// describing the wrong corpus, so start fresh.
		a.cfg.Dataset = chosen
		a.startNewSession()
		a.session.Dataset = chosen
		a.statusNotice = fmt.Sprintf("dataset: %s", chosen)
		return a, nil
	}

	return a, nil
}

func (a App) renderDatasetSelector() string {
	var lines []string
	for i, d := range datasetChoices {
		desc := ""
		switch d {
		case prompts.DatasetGesetze:
			desc = "German statutes and case law"
		case prompts.DatasetWerkstatt:
			desc = "Repair shop records (CSV)"
		}
		marker := "  "
		if d == a.activeDataset() {
			marker = "* "
		}
		line := fmt.Sprintf("%s%-12s %s", marker, d, DimStyle.Render(desc))
		if i == a.selectedDatasetIdx {
			line = SelectedStyle.Render("> " + line[2:])
		}
		lines = append(lines, line)
	}

	footer := FormatFooter("j/k", "Navigate", "Enter", "Select", "Esc", "Close")
	return RenderThreeSectionModal("Dataset", lines, footer, ModalTypeInfo, 55, a.width, a.height)
}
