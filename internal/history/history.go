package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Role identifies who produced a chat turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a session transcript.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Store keeps one JSON transcript file per session under a directory.
type Store struct {
	dir string
}

// NewStore creates the history directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(sessionID string) (string, error) {
	if !validSessionID.MatchString(sessionID) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.dir, sessionID+".json"), nil
}

// Append adds turns to a session transcript, creating it if needed.
func (s *Store) Append(sessionID string, turns ...Turn) error {
	existing, err := s.Load(sessionID)
	if err != nil {
		return err
	}
	existing = append(existing, turns...)

	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	// write-then-rename so a crash never leaves a torn transcript
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// Load returns a session transcript in chronological order. An unknown
// session yields an empty transcript.
func (s *Store) Load(sessionID string) ([]Turn, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", path, err)
	}
	return turns, nil
}

// Recent returns the last n turns of a session.
func (s *Store) Recent(sessionID string, n int) ([]Turn, error) {
	turns, err := s.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// Sessions lists known session ids, sorted.
func (s *Store) Sessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Transcript renders turns as a plain text dialogue for prompt context.
func Transcript(turns []Turn) string {
	var sb strings.Builder
	for _, turn := range turns {
		label := "User"
		if turn.Role == RoleAssistant {
			label = "Assistant"
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
	}
	return sb.String()
}
