// Package memory holds the reflection memory file: a global, line-based
// store executors append insights to. The file is shared across all
// concurrent issues, so every write goes through a single-writer lock.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileName is the memory file name inside the config directory.
const FileName = "memory.md"

// Store serializes access to the memory file.
type Store struct {
	mu      sync.Mutex
	path    string
	enabled bool
	max     int
}

// NewStore returns a Store writing under configDir. A disabled store
// accepts appends and drops them.
func NewStore(configDir string, enabled bool, maxLines int) *Store {
	return &Store{
		path:    filepath.Join(configDir, FileName),
		enabled: enabled,
		max:     maxLines,
	}
}

// Enabled reports whether reflection memory is on.
func (s *Store) Enabled() bool {
	return s != nil && s.enabled
}

// Path returns the memory file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the current memory contents. A missing file reads as
// empty.
func (s *Store) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read memory: %w", err)
	}
	return string(data), nil
}

// Append adds lines to the memory file under the write lock.
func (s *Store) Append(lines ...string) error {
	if !s.Enabled() || len(lines) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open memory: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("append memory: %w", err)
		}
	}
	return nil
}

// LineCount returns the number of lines currently stored.
func (s *Store) LineCount() (int, error) {
	content, err := s.Read()
	if err != nil {
		return 0, err
	}
	if content == "" {
		return 0, nil
	}
	return len(strings.Split(strings.TrimRight(content, "\n"), "\n")), nil
}

// NeedsCompaction reports whether the file exceeds the configured line
// cap.
func (s *Store) NeedsCompaction() (bool, error) {
	if !s.Enabled() || s.max <= 0 {
		return false, nil
	}
	count, err := s.LineCount()
	if err != nil {
		return false, err
	}
	return count > s.max, nil
}

// Replace swaps the entire memory contents, used after compaction.
func (s *Store) Replace(content string) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("replace memory: %w", err)
	}
	return nil
}
