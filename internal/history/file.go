package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"brain/internal/types"
)

// FileStore persists each thread as one JSON file under dir, named
// <thread>.json. The record is the full ordered message array; appends
// rewrite the record atomically via a temp file and rename.
type FileStore struct {
	dir string
}

// NewFileStore creates the history directory if needed and returns a store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(thread string) string {
	return filepath.Join(s.dir, thread+".json")
}

// Load returns the thread's messages; a missing record is an empty thread.
func (s *FileStore) Load(thread string) ([]types.Message, error) {
	if err := validateThread(thread); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(thread))
	if os.IsNotExist(err) {
		return []types.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read thread %q: %w", thread, err)
	}

	var msgs []types.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("thread record %q is corrupt: %w", thread, err)
	}
	return msgs, nil
}

// Append loads the existing sequence, appends msg, and persists the whole
// record. The write goes through a temp file and rename so a crash never
// leaves a half-written record.
func (s *FileStore) Append(thread string, msg types.Message) error {
	msgs, err := s.Load(thread)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)

	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal thread %q: %w", thread, err)
	}

	tmp, err := os.CreateTemp(s.dir, thread+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write thread %q: %w", thread, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush thread %q: %w", thread, err)
	}

	if err := os.Rename(tmpName, s.path(thread)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace thread record %q: %w", thread, err)
	}
	return nil
}

// Window returns the most recent max messages in original order.
func (s *FileStore) Window(thread string, max int) ([]types.Message, error) {
	msgs, err := s.Load(thread)
	if err != nil {
		return nil, err
	}
	return lastN(msgs, max), nil
}

// Threads lists stored thread names, sorted.
func (s *FileStore) Threads() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list history directory: %w", err)
	}

	var threads []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		threads = append(threads, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(threads)
	return threads, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
