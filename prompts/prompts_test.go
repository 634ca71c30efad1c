package prompts

import (
	"strings"
	"testing"
)

func TestForDataset(t *testing.T) {
	tests := []struct {
		name     string
		dataset  string
		contains string
	}{
		{"werkstatt", "werkstatt", "repair shop"},
		{"gesetze", "gesetze", "case law"},
		{"case insensitive", "Gesetze", "case law"},
		{"unknown falls back", "inventory", "helpful assistant"},
		{"empty falls back", "", "helpful assistant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForDataset(tt.dataset)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("expected prompt containing %q, got %q", tt.contains, got)
			}
		})
	}
}

func TestSystemAppendsToolInstructions(t *testing.T) {
	got := System(DatasetWerkstatt, "You can call tools.")
	if !strings.Contains(got, "repair shop") || !strings.HasSuffix(got, "You can call tools.") {
		t.Errorf("unexpected system prompt: %q", got)
	}

	plain := System(DatasetGesetze, "")
	if strings.Contains(plain, "\n\n\n") || !strings.Contains(plain, "case law") {
		t.Errorf("unexpected system prompt without instructions: %q", plain)
	}
}
