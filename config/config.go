package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type OllamaConfig struct {
	Host         string `toml:"host"`
	DefaultModel string `toml:"default_model"`
}

// ProviderConfig is one entry in the [[providers]] array of the user config.
type ProviderConfig struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
}

type SecurityConfig struct {
	Method     string `toml:"method"` // "plaintext" or "ssh_key"
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

// LibraryConfig points the tool server at the document tree it serves.
type LibraryConfig struct {
	Root string `toml:"root"`
}

type ScrapeConfig struct {
	Delay     float64 `toml:"delay_seconds"`
	UserAgent string  `toml:"user_agent,omitempty"`
	MaxPages  int     `toml:"max_pages"`
}

type UserConfig struct {
	Ollama          OllamaConfig     `toml:"ollama"`
	DefaultProvider string           `toml:"default_provider"`
	Dataset         string           `toml:"dataset"`
	Library         LibraryConfig    `toml:"library"`
	Security        SecurityConfig   `toml:"security"`
	Scrape          ScrapeConfig     `toml:"scrape"`
	Providers       []ProviderConfig `toml:"providers,omitempty"`
	SystemPrompt    string           `toml:"system_prompt,omitempty"`
}

// Config is the flattened runtime view assembled by Load.
type Config struct {
	DataDirectory   string
	OllamaHost      string
	DefaultModel    string
	DefaultProvider string
	Dataset         string
	LibraryRoot     string
	SystemPrompt    string
	Scrape          ScrapeConfig
	User            *UserConfig
	CredentialStore *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) OllamaURL() string {
	return c.OllamaHost
}

func (c *Config) Model() string {
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Library returns the document root served to the assistant's tools.
// Defaults to <dataDir>/library when unset.
func (c *Config) Library() string {
	if c.LibraryRoot != "" {
		return ExpandPath(c.LibraryRoot)
	}
	return filepath.Join(c.DataDir(), "library")
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("GESAGENT_OLLAMA_HOST"); host != "" {
		c.OllamaHost = host
	}
	if model := os.Getenv("GESAGENT_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dataDir := os.Getenv("GESAGENT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if provider := os.Getenv("GESAGENT_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if dataset := os.Getenv("GESAGENT_DATASET"); dataset != "" {
		c.Dataset = dataset
	}
	if library := os.Getenv("GESAGENT_LIBRARY"); library != "" {
		c.LibraryRoot = library
	}
}

func CheckDebug() bool {
	debug := os.Getenv("GESAGENT_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: debug output may echo prompts and tool results
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (GESAGENT_DEBUG=%s) ===", os.Getenv("GESAGENT_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

func HasAllEnvVars() bool {
	return os.Getenv("GESAGENT_OLLAMA_HOST") != "" &&
		os.Getenv("GESAGENT_MODEL") != "" &&
		os.Getenv("GESAGENT_DATA_DIR") != ""
}

func HasAnyEnvVar() bool {
	return os.Getenv("GESAGENT_OLLAMA_HOST") != "" ||
		os.Getenv("GESAGENT_MODEL") != "" ||
		os.Getenv("GESAGENT_DATA_DIR") != ""
}

func GetMissingEnvVar() string {
	if os.Getenv("GESAGENT_OLLAMA_HOST") == "" {
		return "GESAGENT_OLLAMA_HOST"
	}
	if os.Getenv("GESAGENT_MODEL") == "" {
		return "GESAGENT_MODEL"
	}
	if os.Getenv("GESAGENT_DATA_DIR") == "" {
		return "GESAGENT_DATA_DIR"
	}
	return ""
}

func (c *Config) applyUserConfig(userCfg *UserConfig) {
	c.OllamaHost = userCfg.Ollama.Host
	c.DefaultModel = userCfg.Ollama.DefaultModel
	c.DefaultProvider = userCfg.DefaultProvider
	c.Dataset = userCfg.Dataset
	c.LibraryRoot = userCfg.Library.Root
	c.SystemPrompt = userCfg.SystemPrompt
	c.Scrape = userCfg.Scrape
	c.User = userCfg
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory:   "~/.local/share/gesagent",
		OllamaHost:      "http://localhost:11434",
		DefaultModel:    "llama3.1:latest",
		DefaultProvider: "ollama",
		Dataset:         "gesetze",
	}

	settingsPath := GetSettingsFilePath()
	settingsExist := FileExists(settingsPath)

	if settingsExist || !HasAllEnvVars() {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory

		dataDir := cfg.DataDir()
		userCfg, err := LoadUserConfig(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
		cfg.applyUserConfig(userCfg)
	}

	// Env vars override file settings either way.
	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	if cfg.User != nil && cfg.User.Security.Method != "" {
		method := SecurityMethod(cfg.User.Security.Method)
		keyPath := ExpandPath(cfg.User.Security.SSHKeyPath)
		if method == SecuritySSHKey && keyPath == "" {
			keyPath = discoverSSHKey()
		}
		cfg.CredentialStore = NewCredentialStore(method, keyPath)
	} else {
		cfg.CredentialStore = NewCredentialStore(SecurityPlainText, "")
	}

	return cfg, nil
}

// discoverSSHKey picks an encryption key when the config names none: the
// dedicated gesagent key if present, otherwise the first usable key under
// ~/.ssh.
func discoverSSHKey() string {
	if AgentKeyExists() {
		return DefaultAgentKeyPath()
	}
	keys, err := FindSSHKeys()
	if err != nil || len(keys) == 0 {
		return ""
	}
	return keys[0]
}
