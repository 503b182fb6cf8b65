// Package store persists reconstructed sessions into a single SQLite file.
// It is the only owner of durable state; all multi-row writes for one log
// file happen inside a single transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and migrates the
// schema. A missing or unwritable schema is fatal at startup.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single local writer by design
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		session_key TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		duration_minutes REAL NOT NULL,
		cwd TEXT,
		git_branch TEXT,
		git_remote TEXT,
		prompt_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time);

	CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		timestamp REAL NOT NULL,
		preview TEXT,
		length INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_prompts_session ON prompts(session_id, timestamp);

	CREATE TABLE IF NOT EXISTS commits (
		hash TEXT PRIMARY KEY,
		timestamp REAL NOT NULL,
		author TEXT,
		message TEXT,
		repo_path TEXT
	);

	CREATE TABLE IF NOT EXISTS session_commits (
		session_id TEXT NOT NULL,
		commit_hash TEXT NOT NULL,
		PRIMARY KEY (session_id, commit_hash),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (commit_hash) REFERENCES commits(hash)
	);

	CREATE TABLE IF NOT EXISTS session_issues (
		session_id TEXT NOT NULL,
		issue_key TEXT NOT NULL,
		source TEXT NOT NULL,
		confidence REAL NOT NULL,
		PRIMARY KEY (session_id, issue_key, source),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_session_issues_key ON session_issues(issue_key);

	CREATE TABLE IF NOT EXISTS processed_logs (
		file_identity TEXT PRIMARY KEY,
		entries_count INTEGER NOT NULL DEFAULT 0,
		sessions_created INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0,
		processed_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS issue_cache (
		issue_key TEXT PRIMARY KEY,
		summary TEXT,
		status TEXT,
		story_points REAL,
		sprint TEXT,
		synced_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}
