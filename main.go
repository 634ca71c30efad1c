package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gesagent/config"
	"gesagent/mcp"
	"gesagent/model"
	"gesagent/provider"
	"gesagent/storage"
	"gesagent/ui"
)

const Version = "v0.2.0"

const toolStartTimeout = 30 * time.Second

func main() {
	// Validate environment variables first
	if config.HasAnyEnvVar() && !config.HasAllEnvVars() {
		fmt.Fprintf(os.Stderr, "Missing environment variable: %s\n\n"+
			"When configuring via environment, all 3 must be set:\n"+
			"  GESAGENT_OLLAMA_HOST\n"+
			"  GESAGENT_MODEL\n"+
			"  GESAGENT_DATA_DIR\n",
			config.GetMissingEnvVar())
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	config.CheckDebug()
	config.InitDebugLog(cfg.DataDir())

	// Clean up the scratch dir from a previous crash, then recreate it
	if err := config.CleanupTempDir(); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("Warning: failed to clean up old temp directory: %v", err)
	}
	if err := config.CreateTempDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create temp directory: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := config.CleanupTempDir(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: failed to clean up temp directory: %v", err)
		}
	}()

	// First run with ssh_key security and no key anywhere: generate the
	// dedicated encryption key rather than failing every startup
	if cfg.User != nil && config.SecurityMethod(cfg.User.Security.Method) == config.SecuritySSHKey &&
		cfg.User.Security.SSHKeyPath == "" {
		if keys, _ := config.FindSSHKeys(); len(keys) == 0 {
			keyPath, err := config.CreateAgentKey("")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not create encryption key: %v\n", err)
			} else {
				cfg.CredentialStore = config.NewCredentialStore(config.SecuritySSHKey, keyPath)
			}
		}
	}

	if cfg.CredentialStore != nil {
		if passphrase := os.Getenv("GESAGENT_SSH_PASSPHRASE"); passphrase != "" {
			cfg.CredentialStore.SetPassphrase(passphrase)
		}
		if err := cfg.CredentialStore.Load(cfg.DataDir()); err != nil {
			// Without credentials only Ollama works; that is still useful
			fmt.Fprintf(os.Stderr, "Warning: credentials unavailable: %v\n", err)
		}
	}

	store, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize session storage: %v\n", err)
		os.Exit(1)
	}

	// Single instance per data directory: concurrent writers would race
	// on session files.
	isLocked, runningPID, err := store.CheckInstanceLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to check instance lock: %v\n", err)
		os.Exit(1)
	}
	if isLocked {
		fmt.Fprintf(os.Stderr, "Another gesagent instance is already running (PID %d).\n", runningPID)
		os.Exit(1)
	}
	if err := store.LockInstance(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock instance: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.UnlockInstance(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: failed to unlock instance: %v", err)
		}
	}()

	// Spawn the tool process serving the active library
	client := mcp.NewClient()
	startCtx, cancel := context.WithTimeout(context.Background(), toolStartTimeout)
	err = client.Start(startCtx, mcp.ServerConfig{
		Command: "gesagent-tools",
		Args:    []string{"--data", cfg.Library()},
	})
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start tool process: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Shutdown(shutdownCtx); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Tool process shutdown: %v", err)
		}
	}()

	toolInstructions := provider.BuildToolInstructions(client.Tools())

	providers, providerID := buildProviders(cfg)
	if len(providers) == 0 {
		fmt.Fprintf(os.Stderr, "No usable provider configured. Check Ollama host and provider API keys.\n")
		os.Exit(1)
	}

	// Resume the last session unless another instance holds it
	var lastSession *storage.Session
	if lastSessionID, err := store.LoadCurrentSessionID(); err == nil {
		sessionLocked, lockErr := store.CheckSessionLock(lastSessionID)
		if lockErr == nil && !sessionLocked {
			if lastSession, _ = store.Load(lastSessionID); lastSession != nil {
				_ = store.LockSession(lastSession.ID)
			}
		}
	}

	keybindings, err := config.LoadKeybindings(cfg.DataDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load keybindings: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		ui.New(ui.Deps{
			Config:           cfg,
			Keybindings:      keybindings,
			Store:            store,
			SearchIndex:      storage.NewSearchIndex(store),
			Providers:        providers,
			ProviderID:       providerID,
			Executor:         client,
			ToolInstructions: toolInstructions,
			Session:          lastSession,
			Version:          Version,
		}),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running gesagent: %v\n", err)
		os.Exit(1)
	}
}

// buildProviders constructs every provider the configuration enables.
// Ollama is always attempted; API providers need a stored key. The second
// return value is the startup provider ID.
func buildProviders(cfg *config.Config) (map[string]model.Provider, string) {
	providers := make(map[string]model.Provider)

	ollama, err := provider.NewProvider(provider.Config{
		Type:    provider.ProviderTypeOllama,
		BaseURL: cfg.OllamaURL(),
		Model:   cfg.Model(),
	})
	if err == nil {
		providers["ollama"] = ollama
	} else if config.DebugLog != nil {
		config.DebugLog.Printf("ollama provider unavailable: %v", err)
	}

	if cfg.User != nil {
		for _, pc := range cfg.User.Providers {
			if !pc.Enabled || pc.ID == "ollama" {
				continue
			}
			apiKey := ""
			if cfg.CredentialStore != nil {
				apiKey = cfg.CredentialStore.Get(pc.ID)
			}
			if apiKey == "" {
				if config.DebugLog != nil {
					config.DebugLog.Printf("provider %s enabled but has no API key", pc.ID)
				}
				continue
			}
			p, err := provider.NewProvider(provider.Config{
				Type:    provider.MapProviderIDToType(pc.ID),
				BaseURL: config.ProviderBaseURL(cfg.User, pc.ID),
				Model:   config.ProviderModel(cfg.User, pc.ID),
				APIKey:  apiKey,
			})
			if err != nil {
				if config.DebugLog != nil {
					config.DebugLog.Printf("provider %s unavailable: %v", pc.ID, err)
				}
				continue
			}
			providers[pc.ID] = p
		}
	}

	providerID := cfg.DefaultProvider
	if _, ok := providers[providerID]; !ok {
		providerID = "ollama"
	}
	if _, ok := providers[providerID]; !ok {
		for id := range providers {
			providerID = id
			break
		}
	}
	return providers, providerID
}
