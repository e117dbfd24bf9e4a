package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Collection document keys. Each key holds one JSON array for the whole
// collection; every mutation rewrites the document.
const (
	KeyUsers          = "USERS_v1"
	KeyInterviews     = "INTERVIEWS_v1"
	KeySubmissions    = "SUBMISSIONS_v1"
	KeyTasks          = "TASKS_v1"
	KeyInterviewTasks = "INTERVIEW_TASKS_v1"
	KeyAuthSessions   = "AUTH_SESSIONS_v1"
)

// Store is a durable string-keyed document store. Reads and writes are
// whole-document per key; there is no cross-key transaction.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the store at the given path. Use ":memory:" for
// an ephemeral store in tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS documents (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`)
	return err
}

// Get returns the document stored under key. The second return value is
// false when the key has never been written.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes the document under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// Delete removes the document under key. Deleting an absent key succeeds.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key)
	return err
}

// Keys returns all stored keys in lexical order.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM documents ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
