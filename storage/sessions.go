package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gesagent/model"
)

// Session is one persisted conversation. Messages hold the full unfiltered
// history including tool-call lines and result blocks; the UI filters for
// display.
type Session struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	Dataset      string          `json:"dataset,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Messages     []model.Message `json:"messages"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
	ToolCalls    int             `json:"tool_calls,omitempty"`
}

// SessionMetadata is the listing view of a session, without the messages.
type SessionMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Dataset      string    `json:"dataset,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	ToolCalls    int       `json:"tool_calls,omitempty"`
}

// SessionStorage persists sessions as one JSON file each under
// <data_dir>/sessions. Files are 0600 since they hold conversation history.
type SessionStorage struct {
	sessionsDir string
}

func NewSessionStorage(dataDir string) (*SessionStorage, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &SessionStorage{sessionsDir: dir}, nil
}

func (s *SessionStorage) sessionPath(id string) string {
	return filepath.Join(s.sessionsDir, id+".json")
}

// dataDir is the parent of the sessions directory.
func (s *SessionStorage) dataDir() string {
	return filepath.Dir(s.sessionsDir)
}

// Save writes a session to disk, assigning an ID and timestamps as needed.
func (s *SessionStorage) Save(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.sessionPath(session.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *SessionStorage) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// List returns metadata for every readable session, newest first.
// Unparseable files are skipped rather than failing the whole listing.
func (s *SessionStorage) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []SessionMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.sessionsDir, entry.Name()))
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		sessions = append(sessions, SessionMetadata{
			ID:           sess.ID,
			Name:         sess.Name,
			Provider:     sess.Provider,
			Model:        sess.Model,
			Dataset:      sess.Dataset,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.Messages),
			ToolCalls:    sess.ToolCalls,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *SessionStorage) Delete(id string) error {
	if err := os.Remove(s.sessionPath(id)); err != nil {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// RenameSession loads, renames and re-saves a session.
func (s *SessionStorage) RenameSession(id, newName string) error {
	session, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	session.Name = newName
	if err := s.Save(session); err != nil {
		return fmt.Errorf("failed to save renamed session: %w", err)
	}
	return nil
}

// currentSessionFile records the last active session so a restart can
// resume where the user left off.
func (s *SessionStorage) currentSessionFile() string {
	return filepath.Join(s.dataDir(), "current_session.id")
}

func (s *SessionStorage) SaveCurrentSessionID(id string) error {
	return os.WriteFile(s.currentSessionFile(), []byte(id), 0600)
}

func (s *SessionStorage) LoadCurrentSessionID() (string, error) {
	data, err := os.ReadFile(s.currentSessionFile())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

var filenameSanitizer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-",
	" ", "-", "\n", "-", "\r", "-",
)

// SanitizeFilename turns a session name into something safe to embed in a
// filename on any platform.
func SanitizeFilename(name string) string {
	name = strings.Trim(filenameSanitizer.Replace(name), "-.")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		return "session"
	}
	return name
}

// GenerateExportPath builds a default export target in the user's
// Downloads folder, named after the session and the current time.
func GenerateExportPath(sessionName string) string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	filename := fmt.Sprintf("gesagent-session-%s-%s.json",
		SanitizeFilename(sessionName), time.Now().Format("20060102-150405"))
	return filepath.Join(home, "Downloads", filename)
}

// ExportToJSON writes a pretty-printed copy of a session to exportPath,
// creating parent directories as needed.
func (s *SessionStorage) ExportToJSON(id, exportPath string) error {
	session, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// GenerateSessionName derives a session name from the first user message,
// falling back to a dated placeholder.
func GenerateSessionName(firstMessage string) string {
	name := firstMessage
	if len(name) > 30 {
		name = name[:30] + "..."
	}
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Session " + time.Now().Format("Jan 2, 3:04 PM")
	}
	return name
}

// MessageMatch is one search hit within a session. MessageIndex points into
// the full message slice, including hidden system messages.
type MessageMatch struct {
	MessageIndex int
	Role         string
	Content      string
	Preview      string
	Timestamp    time.Time
}

// SearchMessages returns case-insensitive substring matches over the given
// messages, skipping the system prompt.
func SearchMessages(messages []model.Message, query string) []MessageMatch {
	if query == "" {
		return nil
	}

	needle := strings.ToLower(query)
	var matches []MessageMatch
	for i, msg := range messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		if !strings.Contains(strings.ToLower(msg.Content), needle) {
			continue
		}
		preview := msg.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		matches = append(matches, MessageMatch{
			MessageIndex: i,
			Role:         msg.Role,
			Content:      msg.Content,
			Preview:      preview,
			Timestamp:    msg.Timestamp,
		})
	}
	return matches
}

// Lock files hold the PID of the owning process. Session locks live next to
// the session file; the instance lock sits at the data directory root and
// keeps two instances from fighting over the spawned tool process.

func (s *SessionStorage) sessionLockPath(sessionID string) string {
	return filepath.Join(s.sessionsDir, sessionID+".lock")
}

func (s *SessionStorage) instanceLockPath() string {
	return filepath.Join(s.dataDir(), "gesagent.lock")
}

func writeLock(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}

func removeLock(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// checkLock reports whether the lock at path belongs to a live process.
// Stale and malformed lock files are removed on the way through.
func checkLock(path string) (bool, int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		_ = os.Remove(path)
		return false, 0, nil
	}

	// FindProcess always succeeds on Unix, so a live-process check here is
	// best effort. Windows does report missing processes, which catches
	// stale locks there.
	if _, err := os.FindProcess(pid); err != nil {
		_ = os.Remove(path)
		return false, 0, nil
	}
	return true, pid, nil
}

func (s *SessionStorage) LockSession(sessionID string) error {
	return writeLock(s.sessionLockPath(sessionID))
}

func (s *SessionStorage) UnlockSession(sessionID string) error {
	return removeLock(s.sessionLockPath(sessionID))
}

func (s *SessionStorage) CheckSessionLock(sessionID string) (bool, error) {
	locked, _, err := checkLock(s.sessionLockPath(sessionID))
	return locked, err
}

func (s *SessionStorage) LockInstance() error {
	return writeLock(s.instanceLockPath())
}

func (s *SessionStorage) UnlockInstance() error {
	return removeLock(s.instanceLockPath())
}

func (s *SessionStorage) CheckInstanceLock() (bool, int, error) {
	return checkLock(s.instanceLockPath())
}
