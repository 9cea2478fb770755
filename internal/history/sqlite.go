package history

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"brain/internal/types"
)

// SQLiteStore persists threads in a single sqlite database. Message order is
// the autoincrement rowid, which matches append order. Selected with
// history.backend: sqlite in the configuration.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	thread    TEXT NOT NULL,
	role      TEXT NOT NULL,
	content   TEXT NOT NULL,
	provider  TEXT,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread, id);
`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the thread's messages in append order.
func (s *SQLiteStore) Load(thread string) ([]types.Message, error) {
	if err := validateThread(thread); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT role, content, COALESCE(provider, ''), timestamp
		 FROM messages WHERE thread = ? ORDER BY id`,
		thread,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread %q: %w", thread, err)
	}
	defer rows.Close()

	msgs := []types.Message{}
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Provider, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan thread %q: %w", thread, err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read thread %q: %w", thread, err)
	}
	return msgs, nil
}

// Append inserts one message at the end of the thread.
func (s *SQLiteStore) Append(thread string, msg types.Message) error {
	if err := validateThread(thread); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO messages (thread, role, content, provider, timestamp) VALUES (?, ?, ?, ?, ?)`,
		thread, msg.Role, msg.Content, msg.Provider, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append to thread %q: %w", thread, err)
	}
	return nil
}

// Window returns the most recent max messages in original order.
func (s *SQLiteStore) Window(thread string, max int) ([]types.Message, error) {
	msgs, err := s.Load(thread)
	if err != nil {
		return nil, err
	}
	return lastN(msgs, max), nil
}

// Threads lists distinct thread names, sorted.
func (s *SQLiteStore) Threads() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT DISTINCT thread FROM messages ORDER BY thread`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan thread name: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
