package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Both config files are created from commented templates on first run so
// users edit a documented file instead of reverse-engineering field names.
// Files are written 0600: the user config can name an SSH key and the
// credentials file lives next to it.

func userConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// LoadSystemConfig reads ~/.config/gesagent/settings.toml, seeding it with
// the template first if it does not exist yet.
func LoadSystemConfig() (*SystemConfig, error) {
	path := GetSettingsFilePath()
	if !FileExists(path) {
		if err := seedConfigFile(GetConfigDir(), path, GenerateSystemConfigTemplate()); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return DefaultSystemConfig(), nil
	}

	cfg := DefaultSystemConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}
	return cfg, nil
}

// LoadUserConfig reads <dataDir>/config.toml, seeding it with the template
// first if it does not exist yet. Missing fields keep their defaults.
func LoadUserConfig(dataDir string) (*UserConfig, error) {
	path := userConfigPath(dataDir)
	if !FileExists(path) {
		if err := seedConfigFile(dataDir, path, GenerateUserConfigTemplate()); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return DefaultUserConfig(), nil
	}

	cfg := DefaultUserConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}
	return cfg, nil
}

// SaveUserConfig rewrites <dataDir>/config.toml from the given values.
// The commented template is lost on the first programmatic save; that is
// the price of round-tripping through the TOML encoder.
func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.OpenFile(userConfigPath(dataDir), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create user config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}
	return nil
}

// seedConfigFile writes a template into dir/path unless it already exists.
func seedConfigFile(dir, path, template string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if FileExists(path) {
		return nil
	}
	return os.WriteFile(path, []byte(template), 0600)
}
