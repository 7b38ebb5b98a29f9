// Package history persists the list of recently visited folders to a small
// JSON document. Two on-disk shapes are accepted when reading: the legacy
// plain string list and the current object list with visit counts.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxEntries caps the history length; the least recent entries fall off.
const maxEntries = 50

// Entry is one remembered folder.
type Entry struct {
	Path      string    `json:"path"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Store reads and writes the history file. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewStore returns a store backed by the JSON document at path. The file
// need not exist yet.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// Entries returns the history, most recent first. A missing or unreadable
// file is an empty history, never an error: history is best-effort state.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Record notes a visit to path: an existing entry gets its count bumped and
// moves to the front, a new one is inserted at the front. The list is
// trimmed to its cap and written back atomically.
func (s *Store) Record(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	now := time.Now().UTC()
	updated := []Entry{{Path: path, Count: 1, Timestamp: now}}

	for _, e := range entries {
		if e.Path == path {
			updated[0].Count = e.Count + 1
			continue
		}

		updated = append(updated, e)
	}

	if len(updated) > maxEntries {
		updated = updated[:maxEntries]
	}

	return s.save(updated)
}

// load parses the file, accepting both shapes. The legacy shape is a plain
// JSON array of path strings; those become entries with count 1 and a zero
// timestamp.
func (s *Store) load() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("history file unreadable", slog.String("path", s.path), slog.Any("error", err))
		}

		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries
	}

	var legacy []string
	if err := json.Unmarshal(data, &legacy); err != nil {
		s.logger.Warn("history file corrupt, starting fresh", slog.String("path", s.path))
		return nil
	}

	entries = make([]Entry, 0, len(legacy))
	for _, p := range legacy {
		entries = append(entries, Entry{Path: p, Count: 1})
	}

	return entries
}

// save writes entries to a sibling temp file and renames it into place so a
// crash mid-write never leaves a truncated document.
func (s *Store) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp := s.path + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit history: %w", err)
	}

	return nil
}
