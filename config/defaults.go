package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/gesagent",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Ollama: OllamaConfig{
			Host:         "http://localhost:11434",
			DefaultModel: "llama3.1:latest",
		},
		DefaultProvider: "ollama",
		Dataset:         "gesetze",
		Security: SecurityConfig{
			Method: "plaintext",
		},
		Scrape: ScrapeConfig{
			Delay:    2.0,
			MaxPages: 50,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# gesagent System Configuration
# Location: ~/.config/gesagent/settings.toml
# This file uses TOML format: https://toml.io

# Directory where sessions, datasets and user config are stored
data_directory = "~/.local/share/gesagent"
`
}

func GenerateUserConfigTemplate() string {
	return `# gesagent User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Provider used for new sessions: "ollama", "openai" or "anthropic"
default_provider = "ollama"

# Dataset persona: "werkstatt" (repair shop records) or "gesetze"
# (German statutes and case law)
dataset = "gesetze"

[ollama]
# Ollama server URL
host = "http://localhost:11434"

# Default model to use when starting a new session
default_model = "llama3.1:latest"

[library]
# Document tree served to the assistant's file tools.
# Empty means <data_directory>/library
root = ""

[security]
# API key storage: "plaintext" or "ssh_key"
method = "plaintext"
# ssh_key_path = "~/.ssh/gesagent_ed25519"

[scrape]
# Seconds to wait between fetches when crawling dejure.org
delay_seconds = 2.0

# Stop after this many case pages (0 = unlimited)
max_pages = 50
`
}
