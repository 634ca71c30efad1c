package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home := GetHomeDir()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tilde prefix", "~/data", filepath.Join(home, "data")},
		{"plain path", "/var/lib/gesagent", "/var/lib/gesagent"},
		{"empty", "", ""},
		{"cleans dots", "/tmp/./gesagent", "/tmp/gesagent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPath(tt.input)
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDataDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// Path already ending in gesagent is used directly
	direct := filepath.Join(tmpDir, "gesagent")
	got, err := NormalizeDataDirectory(direct)
	if err != nil {
		t.Fatalf("NormalizeDataDirectory failed: %v", err)
	}
	if got != direct {
		t.Errorf("expected %q, got %q", direct, got)
	}

	// Otherwise the gesagent subfolder is appended
	got, err = NormalizeDataDirectory(tmpDir)
	if err != nil {
		t.Fatalf("NormalizeDataDirectory failed: %v", err)
	}
	if got != filepath.Join(tmpDir, "gesagent") {
		t.Errorf("expected gesagent subfolder, got %q", got)
	}

	// Empty input is an error
	if _, err := NormalizeDataDirectory(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestUserConfigRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	cfg := DefaultUserConfig()
	cfg.Dataset = "werkstatt"
	cfg.DefaultProvider = "anthropic"
	cfg.Ollama.Host = "http://10.0.0.5:11434"
	cfg.Library.Root = "~/documents/gesetze"
	cfg.Providers = append(cfg.Providers, ProviderConfig{
		ID:      "anthropic",
		Name:    "Anthropic",
		Enabled: true,
		Model:   "claude-sonnet-4-20250514",
	})

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}

	loaded, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}

	if loaded.Dataset != "werkstatt" {
		t.Errorf("Dataset = %q, want werkstatt", loaded.Dataset)
	}
	if loaded.DefaultProvider != "anthropic" {
		t.Errorf("DefaultProvider = %q, want anthropic", loaded.DefaultProvider)
	}
	if loaded.Ollama.Host != "http://10.0.0.5:11434" {
		t.Errorf("Ollama.Host = %q", loaded.Ollama.Host)
	}
	if loaded.Library.Root != "~/documents/gesetze" {
		t.Errorf("Library.Root = %q", loaded.Library.Root)
	}
	if len(loaded.Providers) != 1 || loaded.Providers[0].Model != "claude-sonnet-4-20250514" {
		t.Errorf("Providers not round-tripped: %+v", loaded.Providers)
	}

	// Config file must not be world readable
	info, err := os.Stat(filepath.Join(dataDir, "config.toml"))
	if err != nil {
		t.Fatalf("stat config.toml: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config.toml permissions = %o, want 0600", perm)
	}
}

func TestLoadUserConfigCreatesDefault(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}

	if cfg.Dataset != "gesetze" {
		t.Errorf("default Dataset = %q, want gesetze", cfg.Dataset)
	}
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("default Ollama.Host = %q", cfg.Ollama.Host)
	}

	if !FileExists(filepath.Join(dataDir, "config.toml")) {
		t.Error("expected default config.toml to be created")
	}
}

func TestProviderHelpers(t *testing.T) {
	cfg := DefaultUserConfig()
	cfg.Providers = []ProviderConfig{
		{ID: "openai", BaseURL: "https://proxy.internal/v1", Model: "gpt-4o"},
	}

	if got := ProviderModel(cfg, "ollama"); got != "llama3.1:latest" {
		t.Errorf("ProviderModel(ollama) = %q", got)
	}
	if got := ProviderModel(cfg, "openai"); got != "gpt-4o" {
		t.Errorf("ProviderModel(openai) = %q", got)
	}
	if got := ProviderModel(cfg, "anthropic"); got != "" {
		t.Errorf("ProviderModel(anthropic) = %q, want empty", got)
	}

	if got := ProviderBaseURL(cfg, "openai"); got != "https://proxy.internal/v1" {
		t.Errorf("ProviderBaseURL(openai) = %q", got)
	}
	if got := ProviderBaseURL(cfg, "anthropic"); got != "https://api.anthropic.com" {
		t.Errorf("ProviderBaseURL(anthropic) = %q", got)
	}
	if got := ProviderBaseURL(cfg, "ollama"); got != cfg.Ollama.Host {
		t.Errorf("ProviderBaseURL(ollama) = %q", got)
	}
}

func TestUpdateProviderField(t *testing.T) {
	dataDir := t.TempDir()

	if err := UpdateProviderField(dataDir, "ollama", "host", "http://gpu-box:11434"); err != nil {
		t.Fatalf("UpdateProviderField failed: %v", err)
	}
	if err := UpdateProviderField(dataDir, "anthropic", "enabled", "true"); err != nil {
		t.Fatalf("UpdateProviderField failed: %v", err)
	}
	if err := UpdateProviderField(dataDir, "anthropic", "model", "claude-sonnet-4-20250514"); err != nil {
		t.Fatalf("UpdateProviderField failed: %v", err)
	}

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	if cfg.Ollama.Host != "http://gpu-box:11434" {
		t.Errorf("Ollama.Host = %q", cfg.Ollama.Host)
	}

	var anth *ProviderConfig
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == "anthropic" {
			anth = &cfg.Providers[i]
		}
	}
	if anth == nil {
		t.Fatal("anthropic entry not created")
	}
	if !anth.Enabled {
		t.Error("anthropic should be enabled")
	}
	if anth.Model != "claude-sonnet-4-20250514" {
		t.Errorf("anthropic model = %q", anth.Model)
	}

	// Unknown provider and field are rejected
	if err := UpdateProviderField(dataDir, "bedrock", "enabled", "true"); err == nil {
		t.Error("expected error for unknown provider")
	}
	if err := UpdateProviderField(dataDir, "ollama", "temperature", "0.5"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GESAGENT_OLLAMA_HOST", "http://override:11434")
	t.Setenv("GESAGENT_MODEL", "qwen2.5:14b")
	t.Setenv("GESAGENT_DATA_DIR", t.TempDir())
	t.Setenv("GESAGENT_DATASET", "werkstatt")

	cfg := &Config{
		OllamaHost:   "http://localhost:11434",
		DefaultModel: "llama3.1:latest",
		Dataset:      "gesetze",
	}
	cfg.applyEnvOverrides()

	if cfg.OllamaHost != "http://override:11434" {
		t.Errorf("OllamaHost = %q", cfg.OllamaHost)
	}
	if cfg.DefaultModel != "qwen2.5:14b" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.Dataset != "werkstatt" {
		t.Errorf("Dataset = %q", cfg.Dataset)
	}

	if !HasAllEnvVars() {
		t.Error("HasAllEnvVars should be true")
	}
	if got := GetMissingEnvVar(); got != "" {
		t.Errorf("GetMissingEnvVar = %q, want empty", got)
	}
}

func TestLibraryFallback(t *testing.T) {
	cfg := &Config{DataDirectory: "/var/lib/gesagent"}
	if got := cfg.Library(); got != "/var/lib/gesagent/library" {
		t.Errorf("Library() = %q", got)
	}

	cfg.LibraryRoot = "/srv/corpus"
	if got := cfg.Library(); got != "/srv/corpus" {
		t.Errorf("Library() = %q", got)
	}
}

func TestCredentialStorePlaintext(t *testing.T) {
	dataDir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Set("anthropic", "sk-ant-test"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Save(dataDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Key must not appear in config.toml, only credentials.toml
	data, err := os.ReadFile(filepath.Join(dataDir, "credentials.toml"))
	if err != nil {
		t.Fatalf("read credentials.toml: %v", err)
	}
	if !strings.Contains(string(data), "sk-ant-test") {
		t.Error("credential not written")
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dataDir); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := reloaded.Get("anthropic"); got != "sk-ant-test" {
		t.Errorf("Get = %q", got)
	}

	if err := reloaded.Delete("anthropic"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := reloaded.Get("anthropic"); got != "" {
		t.Errorf("Get after delete = %q, want empty", got)
	}
}

func TestCredentialStoreLoadMissingFile(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(t.TempDir()); err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if got := store.Get("openai"); got != "" {
		t.Errorf("Get = %q, want empty", got)
	}
}

func TestEncryptionRoundTrip(t *testing.T) {
	// EncryptionNone passes data through untouched
	mgr := NewEncryptionManager(EncryptionNone, "")
	if err := mgr.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	plaintext := []byte(`{"anthropic":"sk-ant-test"}`)
	out, err := mgr.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if string(out) != string(plaintext) {
		t.Error("EncryptionNone should pass through")
	}
}

func TestAESGCMRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	plaintext := []byte("secret api key material")
	ciphertext, err := encryptAESGCM(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if string(ciphertext) == string(plaintext) {
		t.Error("ciphertext should differ from plaintext")
	}

	decrypted, err := decryptAESGCM(ciphertext, key)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Errorf("round trip mismatch: %q", decrypted)
	}

	// Wrong key fails authentication
	wrongKey := make([]byte, 32)
	if _, err := decryptAESGCM(ciphertext, wrongKey); err == nil {
		t.Error("expected authentication failure with wrong key")
	}

	// Truncated ciphertext is rejected
	if _, err := decryptAESGCM(ciphertext[:8], key); err == nil {
		t.Error("expected error for short ciphertext")
	}
}

func TestKeybindings(t *testing.T) {
	kb := DefaultKeybindings()

	if got := kb.GetActionKey("session_manager"); got != "alt+s" {
		t.Errorf("session_manager = %q", got)
	}
	if got := kb.GetActionKey("toggle_transcript"); got != "alt+t" {
		t.Errorf("toggle_transcript = %q", got)
	}
	// Secondary with shift collapses to uppercase letter
	if got := kb.GetActionKey("search_all_sessions"); got != "alt+F" {
		t.Errorf("search_all_sessions = %q", got)
	}
	if got := kb.GetActionKey("no_such_action"); got != "" {
		t.Errorf("unknown action = %q, want empty", got)
	}

	// User overrides win
	kb.Actions = map[string]string{"quit": "ctrl+shift+q"}
	if got := kb.GetActionKey("quit"); got != "ctrl+shift+q" {
		t.Errorf("override quit = %q", got)
	}

	if ok, _ := kb.Validate(); !ok {
		t.Error("default keybindings should validate")
	}
	kb.Modifiers.Primary = "shift"
	if ok, _ := kb.Validate(); ok {
		t.Error("shift alone should not validate")
	}
}

func TestKeybindingsLoadRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	path := filepath.Join(dataDir, "keybindings.toml")
	content := "[modifiers]\nprimary = \"ctrl\"\n\n[actions]\nscroll_down = \"ctrl+n\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write keybindings: %v", err)
	}

	kb, err := LoadKeybindings(dataDir)
	if err != nil {
		t.Fatalf("LoadKeybindings failed: %v", err)
	}
	if kb.Primary() != "ctrl" {
		t.Errorf("Primary = %q", kb.Primary())
	}
	// Missing secondary falls back to default
	if kb.Secondary() != "alt+shift" {
		t.Errorf("Secondary = %q", kb.Secondary())
	}
	if got := kb.GetActionKey("scroll_down"); got != "ctrl+n" {
		t.Errorf("scroll_down = %q", got)
	}
}
