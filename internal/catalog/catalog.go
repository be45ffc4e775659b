// Package catalog implements the Session Catalog (spec §4.5): a
// process-local relational store with one table per concern, written
// by a single event-bus subscriber to avoid write contention and read
// by the upload queue and the UI. Grounded on the teacher's
// internal/mcpserver/backlog_store.go — same raw-SQL-over-
// modernc.org/sqlite idiom, same CREATE TABLE IF NOT EXISTS schema
// setup, same explicit transaction style for anything touching more
// than one row.
package catalog

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"guideai/internal/guideerr"
	"guideai/internal/logging"
)

var log = logging.For("catalog")

// Store is the Session Catalog's single writer/reader handle.
type Store struct {
	db *sql.DB
}

// Open creates or opens the catalog database at dbPath, creating its
// parent directory and schema as needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "create catalog directory", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindDatabase, "open catalog database", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, guideerr.Wrap(guideerr.KindDatabase, "create catalog schema", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			cwd TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			git_remote_url TEXT DEFAULT '',
			detected_project_type TEXT DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS agent_sessions (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			session_id TEXT NOT NULL,
			project_id TEXT DEFAULT '',
			project_name TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL DEFAULT '',
			file_size INTEGER NOT NULL DEFAULT 0,
			file_hash TEXT NOT NULL DEFAULT '',
			start_time INTEGER,
			end_time INTEGER,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			cwd TEXT DEFAULT '',
			git_branch TEXT DEFAULT '',
			first_commit_hash TEXT DEFAULT '',
			latest_commit_hash TEXT DEFAULT '',
			processing_status TEXT NOT NULL DEFAULT 'pending',
			last_error TEXT DEFAULT '',
			upload_status TEXT NOT NULL DEFAULT 'pending',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(provider, session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_project ON agent_sessions(project_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_upload_status ON agent_sessions(upload_status);

		CREATE TABLE IF NOT EXISTS session_metrics (
			session_row_id TEXT PRIMARY KEY REFERENCES agent_sessions(id),
			message_count INTEGER NOT NULL DEFAULT 0,
			user_message_count INTEGER NOT NULL DEFAULT 0,
			assistant_message_count INTEGER NOT NULL DEFAULT 0,
			tool_call_count INTEGER NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0,
			git_files_changed INTEGER NOT NULL DEFAULT 0,
			git_lines_added INTEGER NOT NULL DEFAULT 0,
			git_lines_removed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_assessments (
			session_row_id TEXT PRIMARY KEY REFERENCES agent_sessions(id),
			status TEXT NOT NULL DEFAULT 'pending',
			rating INTEGER,
			completed_at INTEGER,
			notes TEXT DEFAULT ''
		);
	`
	_, err := db.Exec(schema)
	return err
}
