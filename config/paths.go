package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "gesagent"

// windowsLocalAppData resolves %LOCALAPPDATA%, falling back to the
// conventional location under the user profile when the variable is unset.
func windowsLocalAppData() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return dir
	}
	return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
}

// GetHomeDir returns the user's home directory across platforms.
func GetHomeDir() string {
	if runtime.GOOS == "windows" {
		if home := os.Getenv("USERPROFILE"); home != "" {
			return home
		}
		if home := os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH"); home != "" {
			return home
		}
		return "C:\\"
	}
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return "/"
}

// GetConfigDir returns the directory holding settings.toml and user.toml.
// ~/.config/gesagent on every platform; Windows gets the same layout under
// the user profile so config stays next to the unix-style dotfiles.
func GetConfigDir() string {
	return filepath.Join(GetHomeDir(), ".config", appDirName)
}

// cacheDir is where scratch files live. Kept out of the data directory so
// they never ride along with cloud-synced folders.
func cacheDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(windowsLocalAppData(), appDirName)
	}
	return filepath.Join(GetHomeDir(), ".cache", appDirName)
}

// GetSettingsFilePath returns the path to settings.toml.
func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "settings.toml")
}

// ExpandPath expands a leading ~ and environment variables in a path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(GetHomeDir(), path[2:])
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// FileExists reports whether a file exists at path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NormalizeDataDirectory resolves a user-supplied data directory to the
// gesagent folder inside it. A path that already ends in gesagent is taken
// as-is; otherwise an existing gesagent/ subfolder wins, and if neither is
// present the subfolder path is returned for later creation.
func NormalizeDataDirectory(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("data directory path cannot be empty")
	}

	expanded := ExpandPath(input)
	if filepath.Base(expanded) == appDirName {
		return expanded, nil
	}
	return filepath.Join(expanded, appDirName), nil
}

// EnsureDataDirPermissions creates the data directory if missing and forces
// 0700 on it, since it holds sessions and encrypted credentials.
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dataDir, 0700)
		}
		return err
	}
	if info.Mode().Perm() != 0700 {
		return os.Chmod(dataDir, 0700)
	}
	return nil
}

// GetTempDir returns the scratch directory under the cache dir.
func GetTempDir() string {
	return filepath.Join(cacheDir(), "tmp")
}

// GetEditorFilePath returns the reusable scratch file handed to $EDITOR.
func GetEditorFilePath() string {
	return filepath.Join(GetTempDir(), "editor.txt")
}

// ClearEditorFile truncates the editor scratch file so drafted text does
// not linger on disk between sessions.
func ClearEditorFile() error {
	path := GetEditorFilePath()
	if !FileExists(path) {
		return nil
	}
	return os.WriteFile(path, nil, 0600)
}

// CreateTempDir creates the scratch directory with user-only access.
func CreateTempDir() error {
	return os.MkdirAll(GetTempDir(), 0700)
}

// CleanupTempDir removes the scratch directory and everything in it.
func CleanupTempDir() error {
	tmpDir := GetTempDir()
	if !FileExists(tmpDir) {
		return nil
	}
	return os.RemoveAll(tmpDir)
}
