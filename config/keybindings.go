package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// KeyBindingsConfig holds the two configurable modifiers plus optional
// per-action overrides from the [actions] table of keybindings.toml.
type KeyBindingsConfig struct {
	Modifiers ModifierConfig    `toml:"modifiers"`
	Actions   map[string]string `toml:"actions"`
}

type ModifierConfig struct {
	Primary   string `toml:"primary"`   // e.g. "alt", "ctrl", "super"
	Secondary string `toml:"secondary"` // e.g. "alt+shift"
}

const (
	defaultPrimary   = "alt"
	defaultSecondary = "alt+shift"
)

// actionDef is the default binding for an action: which modifier tier it
// sits on ("primary", "secondary" or "none") and the bare key.
type actionDef struct {
	modifier string
	key      string
}

// actionRegistry lists every dispatchable action with its default binding.
// Any of these can be overridden in keybindings.toml.
var actionRegistry = map[string]actionDef{
	// Modal toggles
	"help":                {"primary", "h"},
	"new_session":         {"primary", "n"},
	"session_manager":     {"primary", "s"},
	"edit_session":        {"primary", "e"},
	"model_selector":      {"primary", "m"},
	"dataset_selector":    {"primary", "d"},
	"search_messages":     {"primary", "f"},
	"search_all_sessions": {"secondary", "f"},
	"about":               {"secondary", "a"},

	// Raw view with tool-call lines
	"toggle_transcript": {"primary", "t"},

	// Scrolling
	"scroll_down":          {"primary", "j"},
	"scroll_up":            {"primary", "k"},
	"scroll_down_arrow":    {"primary", "down"},
	"scroll_up_arrow":      {"primary", "up"},
	"half_page_down":       {"secondary", "j"},
	"half_page_up":         {"secondary", "k"},
	"half_page_down_arrow": {"secondary", "down"},
	"half_page_up_arrow":   {"secondary", "up"},
	"page_down":            {"primary", "pgdown"},
	"page_up":              {"primary", "pgup"},
	"scroll_to_top":        {"primary", "g"},
	"scroll_to_bottom":     {"secondary", "g"},

	// Actions
	"quit":               {"primary", "q"},
	"yank_last_response": {"primary", "y"},
	"yank_conversation":  {"primary", "c"},
	"external_editor":    {"primary", "i"},
	"clear_input":        {"primary", "u"},
}

func DefaultKeybindings() *KeyBindingsConfig {
	return &KeyBindingsConfig{
		Modifiers: ModifierConfig{
			Primary:   defaultPrimary,
			Secondary: defaultSecondary,
		},
	}
}

// LoadKeybindings reads keybindings.toml from the data directory, seeding
// the commented template on first run.
func LoadKeybindings(dataDir string) (*KeyBindingsConfig, error) {
	cfg := DefaultKeybindings()
	path := filepath.Join(dataDir, "keybindings.toml")

	if !FileExists(path) {
		if err := seedConfigFile(dataDir, path, keybindingsTemplate); err != nil {
			return nil, fmt.Errorf("failed to create keybindings: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse keybindings: %w", err)
	}
	if cfg.Modifiers.Primary == "" {
		cfg.Modifiers.Primary = defaultPrimary
	}
	if cfg.Modifiers.Secondary == "" {
		cfg.Modifiers.Secondary = defaultSecondary
	}
	return cfg, nil
}

const keybindingsTemplate = `# gesagent keybindings
# This file uses TOML format: https://toml.io

# Most users only need the modifier settings. Change them when the defaults
# clash with your terminal multiplexer or window manager:
#
#   tmux users:    primary = "ctrl",  secondary = "ctrl+shift"
#   i3/sway users: primary = "super", secondary = "super+shift"

[modifiers]
primary = "alt"
secondary = "alt+shift"

# Per-action overrides. Uncomment and adjust as needed:

[actions]
# scroll_down = "ctrl+n"
# scroll_up = "ctrl+p"
# new_session = "ctrl+t"
# quit = "ctrl+shift+q"
`

func (kb *KeyBindingsConfig) Primary() string {
	if kb.Modifiers.Primary == "" {
		return defaultPrimary
	}
	return kb.Modifiers.Primary
}

func (kb *KeyBindingsConfig) Secondary() string {
	if kb.Modifiers.Secondary == "" {
		return defaultSecondary
	}
	return kb.Modifiers.Secondary
}

func isLowerLetter(key string) bool {
	return len(key) == 1 && key[0] >= 'a' && key[0] <= 'z'
}

// primaryKey builds the binding string for a primary-tier action.
func (kb *KeyBindingsConfig) primaryKey(key string) string {
	return kb.Primary() + "+" + key
}

// secondaryKey builds the binding string for a secondary-tier action.
// Terminals report shift+letter as the uppercase letter, so a shifted
// modifier plus a letter key collapses to e.g. "alt+F". Special keys keep
// the explicit shift ("alt+shift+f1").
func (kb *KeyBindingsConfig) secondaryKey(key string) string {
	secondary := kb.Secondary()
	if !strings.Contains(strings.ToLower(secondary), "shift") || !isLowerLetter(key) {
		return secondary + "+" + key
	}

	var mods []string
	for _, part := range strings.Split(secondary, "+") {
		if strings.ToLower(part) != "shift" {
			mods = append(mods, part)
		}
	}
	upper := strings.ToUpper(key)
	if len(mods) == 0 {
		return upper
	}
	return strings.Join(mods, "+") + "+" + upper
}

// GetActionKey resolves an action to its binding string: user override
// first, then the registry default. Unknown actions resolve to "".
func (kb *KeyBindingsConfig) GetActionKey(action string) string {
	if override := kb.Actions[action]; override != "" {
		return override
	}

	def, ok := actionRegistry[action]
	if !ok {
		return ""
	}
	switch def.modifier {
	case "primary":
		return kb.primaryKey(def.key)
	case "secondary":
		return kb.secondaryKey(def.key)
	default:
		return def.key
	}
}

// DisplayActionKey formats an action's binding for the status bar and help
// modal, e.g. "alt+F" becomes "Alt+Shift+F".
func (kb *KeyBindingsConfig) DisplayActionKey(action string) string {
	binding := kb.GetActionKey(action)
	if binding == "" {
		return ""
	}

	parts := strings.Split(binding, "+")
	hasShift := false
	for _, p := range parts {
		if strings.EqualFold(p, "shift") {
			hasShift = true
		}
	}

	var out []string
	for i, part := range parts {
		if part == "" {
			continue
		}
		// An uppercase letter means shift was folded into the key.
		if len(part) == 1 && part[0] >= 'A' && part[0] <= 'Z' {
			if !hasShift && i > 0 {
				out = append(out, "Shift")
			}
			out = append(out, part)
			continue
		}
		out = append(out, strings.ToUpper(part[:1])+part[1:])
	}
	return strings.Join(out, "+")
}

// Validate sanity-checks the modifier configuration. The second return is a
// warning to surface even when the config is usable.
func (kb *KeyBindingsConfig) Validate() (bool, string) {
	primary, secondary := kb.Primary(), kb.Secondary()

	if primary == "" || secondary == "" {
		return false, "Modifiers cannot be empty"
	}
	if primary == "shift" || secondary == "shift" {
		return false, "Shift alone conflicts with typing"
	}
	if strings.Contains(primary, "ctrl") || strings.Contains(secondary, "ctrl") {
		return true, "Warning: Ctrl may conflict with terminal shortcuts (Ctrl+C, Ctrl+Z, Ctrl+D)"
	}
	return true, ""
}
