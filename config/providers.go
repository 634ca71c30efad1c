package config

import (
	"fmt"
)

// UpdateProviderField updates a single provider configuration field.
// This is the business logic layer for provider settings.
//
// Fields:
//   - Ollama: "host", "model", "enabled"
//   - Cloud providers: "apikey", "model", "enabled"
func UpdateProviderField(dataDir, providerID, fieldName, value string) error {
	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch providerID {
	case "ollama":
		switch fieldName {
		case "host":
			cfg.Ollama.Host = value

			// Sync to [[providers]] array for consistency
			for i := range cfg.Providers {
				if cfg.Providers[i].ID == "ollama" {
					cfg.Providers[i].BaseURL = value
					break
				}
			}
		case "model":
			cfg.Ollama.DefaultModel = value
		case "enabled":
			updateProviderEnabled(cfg, providerID, value == "true")
		default:
			return fmt.Errorf("unknown field for ollama: %s", fieldName)
		}

	case "openai", "anthropic":
		switch fieldName {
		case "apikey":
			// API keys live in the credential store, not config.toml
			fullCfg, err := Load()
			if err != nil {
				return fmt.Errorf("failed to load full config for credential update: %w", err)
			}

			if fullCfg.CredentialStore != nil {
				if err := fullCfg.CredentialStore.Set(providerID, value); err != nil {
					return fmt.Errorf("failed to set API key: %w", err)
				}

				if err := fullCfg.CredentialStore.Save(dataDir); err != nil {
					return fmt.Errorf("failed to persist credentials: %w", err)
				}
			}
			return nil

		case "model":
			found := false
			for i := range cfg.Providers {
				if cfg.Providers[i].ID == providerID {
					cfg.Providers[i].Model = value
					found = true
					break
				}
			}
			if !found {
				entry := defaultProviderEntry(providerID)
				entry.Model = value
				cfg.Providers = append(cfg.Providers, entry)
			}

		case "enabled":
			updateProviderEnabled(cfg, providerID, value == "true")
		default:
			return fmt.Errorf("unknown field for %s: %s", providerID, fieldName)
		}

	default:
		return fmt.Errorf("unknown provider: %s", providerID)
	}

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// ProviderModel returns the configured model for a provider. Ollama reads from
// its own section; other providers fall back to an empty string when unset.
func ProviderModel(cfg *UserConfig, providerID string) string {
	if providerID == "ollama" {
		return cfg.Ollama.DefaultModel
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == providerID && cfg.Providers[i].Model != "" {
			return cfg.Providers[i].Model
		}
	}
	return ""
}

// ProviderBaseURL returns the configured base URL for a provider, or the
// provider's default endpoint when unset.
func ProviderBaseURL(cfg *UserConfig, providerID string) string {
	if providerID == "ollama" {
		return cfg.Ollama.Host
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == providerID && cfg.Providers[i].BaseURL != "" {
			return cfg.Providers[i].BaseURL
		}
	}
	return getProviderDefaultBaseURL(providerID)
}

// updateProviderEnabled updates the enabled status of a provider
func updateProviderEnabled(cfg *UserConfig, providerID string, enabled bool) {
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == providerID {
			cfg.Providers[i].Enabled = enabled
			return
		}
	}

	// Provider not in list yet, add it
	entry := defaultProviderEntry(providerID)
	entry.Enabled = enabled
	cfg.Providers = append(cfg.Providers, entry)
}

func defaultProviderEntry(providerID string) ProviderConfig {
	return ProviderConfig{
		ID:      providerID,
		Name:    getProviderDisplayName(providerID),
		BaseURL: getProviderDefaultBaseURL(providerID),
	}
}

// getProviderDisplayName returns the display name for a provider
func getProviderDisplayName(providerID string) string {
	switch providerID {
	case "ollama":
		return "Ollama"
	case "anthropic":
		return "Anthropic"
	case "openai":
		return "OpenAI"
	default:
		return providerID
	}
}

// getProviderDefaultBaseURL returns the default base URL for a provider
func getProviderDefaultBaseURL(providerID string) string {
	switch providerID {
	case "anthropic":
		return "https://api.anthropic.com"
	case "openai":
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}
