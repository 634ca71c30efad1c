package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const agentKeyName = "gesagent_ed25519"

// LoadSSHPrivateKey parses an unencrypted private key file into a signer.
func LoadSSHPrivateKey(keyPath string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}
	return signer, nil
}

// LoadSSHPrivateKeyWithPassphrase parses a passphrase-protected key.
func LoadSSHPrivateKeyWithPassphrase(keyPath string, passphrase string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	signer, err := ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key (wrong passphrase?): %w", err)
	}
	return signer, nil
}

// IsSSHKeyEncrypted reports whether a key needs a passphrase, by attempting
// a passphrase-less parse and classifying the failure.
func IsSSHKeyEncrypted(keyPath string) (bool, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return false, fmt.Errorf("failed to read SSH key: %w", err)
	}

	if _, err := ssh.ParsePrivateKey(keyData); err != nil {
		if strings.Contains(err.Error(), "encrypted") || strings.Contains(err.Error(), "passphrase") {
			return true, nil
		}
		return false, fmt.Errorf("invalid SSH key: %w", err)
	}
	return false, nil
}

func sshDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ssh"), nil
}

// DefaultAgentKeyPath returns ~/.ssh/gesagent_ed25519, the dedicated
// credentials-encryption key. Timestamped variants created when the base
// name was taken are not covered; use the path CreateAgentKey returned.
func DefaultAgentKeyPath() string {
	dir, err := sshDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, agentKeyName)
}

// AgentKeyExists reports whether the dedicated key is present.
func AgentKeyExists() bool {
	_, err := os.Stat(DefaultAgentKeyPath())
	return err == nil
}

// FindSSHKeys returns candidate private keys under ~/.ssh, the dedicated
// gesagent key first, then common names by preference.
func FindSSHKeys() ([]string, error) {
	dir, err := sshDir()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	var found []string
	for _, name := range []string{agentKeyName, "id_ed25519", "id_rsa", "id_ecdsa", "id_dsa"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if looksLikePrivateKey(path) {
			found = append(found, path)
		}
	}
	return found, nil
}

func looksLikePrivateKey(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "BEGIN") && strings.Contains(string(data), "PRIVATE KEY")
}

// CreateAgentKey generates a dedicated ED25519 key pair via ssh-keygen and
// returns the path it was written to. When the base name is taken, a
// date+counter suffix is appended rather than touching an existing key.
// Pass an empty passphrase for an unprotected key.
func CreateAgentKey(passphrase string) (string, error) {
	dir, err := sshDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	keyPath := filepath.Join(dir, agentKeyName)

	if _, err := os.Stat(keyPath); err == nil {
		dateStr := time.Now().Format("20060102")
		counter := 1
		for {
			keyPath = filepath.Join(dir, fmt.Sprintf("%s_%s%02d", agentKeyName, dateStr, counter))
			if _, err := os.Stat(keyPath); os.IsNotExist(err) {
				break
			}
			counter++
			if counter > 99 {
				return "", fmt.Errorf("exceeded maximum key creation limit for today (99)")
			}
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create .ssh directory: %w", err)
	}

	cmd := exec.Command("ssh-keygen",
		"-t", "ed25519",
		"-f", keyPath,
		"-C", "gesagent-encryption-key",
		"-N", passphrase,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to generate SSH key: %w\nOutput: %s", err, output)
	}

	if err := os.Chmod(keyPath, 0600); err != nil {
		return "", fmt.Errorf("failed to set key permissions: %w", err)
	}
	if DebugLog != nil {
		DebugLog.Printf("[SSH] Created encryption key at %s", keyPath)
	}
	return keyPath, nil
}
