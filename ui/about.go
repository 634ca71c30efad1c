package ui

import (
	"fmt"

	"gesagent/prompts"
)

func (a App) renderAboutModal() string {
	lines := []string{
		"",
		TitleStyle.Render("  gesagent") + DimStyle.Render("  "+a.version),
		"",
		"  A terminal assistant for querying local datasets",
		"  through a tool-calling language model.",
		"",
		fmt.Sprintf("  Provider   %s", a.providerID),
		fmt.Sprintf("  Model      %s", a.provider.GetModel()),
		fmt.Sprintf("  Dataset    %s", a.activeDataset()),
		"",
		DimStyle.Render(fmt.Sprintf("  Datasets: %s, %s", prompts.DatasetGesetze, prompts.DatasetWerkstatt)),
		"",
	}

	footer := FormatFooter("Enter/Esc", "Close")
	return RenderThreeSectionModal("About", lines, footer, ModalTypeInfo, 58, a.width, a.height)
}
