package catalog

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"guideai/internal/guideerr"
)

func unixOrZero(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromNullable(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}

// InsertOrUpdate attempts to insert a new agent_sessions row; on a
// (provider, session_id) collision it falls through to an update of
// the mutable columns instead, per spec §4.5. FirstCommitHash is only
// ever written on the initial insert — later calls never overwrite
// it, only LatestCommitHash moves.
func (s *Store) InsertOrUpdate(sess Session) (string, error) {
	existing, err := s.GetByProviderAndSessionID(sess.Provider, sess.SessionID)
	if err != nil {
		return "", err
	}
	now := time.Now()

	if existing == nil {
		id := uuid.NewString()
		_, err := s.db.Exec(`
			INSERT INTO agent_sessions (
				id, provider, session_id, project_id, project_name, file_path,
				file_size, file_hash, start_time, end_time, duration_ms, cwd,
				git_branch, first_commit_hash, latest_commit_hash,
				processing_status, last_error, upload_status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, sess.Provider, sess.SessionID, sess.ProjectID, sess.ProjectName, sess.FilePath,
			sess.FileSize, sess.FileHash, unixOrZero(sess.StartTime), unixOrZero(sess.EndTime), sess.DurationMs, sess.Cwd,
			sess.GitBranch, sess.FirstCommitHash, sess.LatestCommitHash,
			orDefault(sess.ProcessingStatus, ProcessingPending), sess.LastError, orDefault(sess.UploadStatus, UploadPending),
			now.UnixMilli(), now.UnixMilli(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				// Lost a race with another writer; retry as an update.
				return s.InsertOrUpdate(sess)
			}
			return "", guideerr.Wrap(guideerr.KindDatabase, "insert agent session", err)
		}
		log.Debug().Str("provider", sess.Provider).Str("session_id", sess.SessionID).Msg("catalog session inserted")
		return id, nil
	}

	_, err = s.db.Exec(`
		UPDATE agent_sessions
		SET file_size = ?, file_hash = ?, end_time = ?, duration_ms = ?,
		    latest_commit_hash = ?, processing_status = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`,
		sess.FileSize, sess.FileHash, unixOrZero(sess.EndTime), sess.DurationMs,
		sess.LatestCommitHash, orDefault(sess.ProcessingStatus, existing.ProcessingStatus), sess.LastError, now.UnixMilli(),
		existing.ID,
	)
	if err != nil {
		return "", guideerr.Wrap(guideerr.KindDatabase, "update agent session", err)
	}
	return existing.ID, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AttachToProject sets a session's project_id. Idempotent.
func (s *Store) AttachToProject(sessionRowID, projectID string) error {
	_, err := s.db.Exec(`UPDATE agent_sessions SET project_id = ?, updated_at = ? WHERE id = ?`,
		projectID, time.Now().UnixMilli(), sessionRowID)
	if err != nil {
		return guideerr.Wrap(guideerr.KindDatabase, "attach session to project", err)
	}
	return nil
}

// MarkSyncFailed records an upload failure reason against a session,
// keyed by (provider, session_id).
func (s *Store) MarkSyncFailed(provider, sessionID, reason string) error {
	res, err := s.db.Exec(`
		UPDATE agent_sessions SET upload_status = ?, last_error = ?, updated_at = ?
		WHERE provider = ? AND session_id = ?
	`, UploadFailed, reason, time.Now().UnixMilli(), provider, sessionID)
	if err != nil {
		return guideerr.Wrap(guideerr.KindDatabase, "mark session sync failed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return guideerr.New(guideerr.KindValidation, "no session found for "+provider+"/"+sessionID)
	}
	return nil
}

// MarkUploadStatus sets a session's upload_status, clearing last_error
// on success.
func (s *Store) MarkUploadStatus(provider, sessionID, status string) error {
	_, err := s.db.Exec(`
		UPDATE agent_sessions SET upload_status = ?, last_error = CASE WHEN ? = ? THEN '' ELSE last_error END, updated_at = ?
		WHERE provider = ? AND session_id = ?
	`, status, status, UploadSuccess, time.Now().UnixMilli(), provider, sessionID)
	if err != nil {
		return guideerr.Wrap(guideerr.KindDatabase, "mark upload status", err)
	}
	return nil
}

// UpdateSessionProjectName updates a session's cached project_name,
// used when a provider's cwd-recovery resolves after the session row
// already exists (e.g. Gemini's registry catching up).
func (s *Store) UpdateSessionProjectName(provider, sessionID, projectName string) error {
	_, err := s.db.Exec(`
		UPDATE agent_sessions SET project_name = ?, updated_at = ? WHERE provider = ? AND session_id = ?
	`, projectName, time.Now().UnixMilli(), provider, sessionID)
	if err != nil {
		return guideerr.Wrap(guideerr.KindDatabase, "update session project name", err)
	}
	return nil
}

// GetByProviderAndSessionID returns a session row, or nil if none exists.
func (s *Store) GetByProviderAndSessionID(provider, sessionID string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, provider, session_id, project_id, project_name, file_path, file_size, file_hash,
		       start_time, end_time, duration_ms, cwd, git_branch, first_commit_hash, latest_commit_hash,
		       processing_status, last_error, upload_status, created_at, updated_at
		FROM agent_sessions WHERE provider = ? AND session_id = ?
	`, provider, sessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindDatabase, "get session", err)
	}
	return sess, nil
}

// ListByUploadStatus returns every session with the given upload
// status, the query the upload queue uses to recover pending items on
// startup.
func (s *Store) ListByUploadStatus(status string) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, provider, session_id, project_id, project_name, file_path, file_size, file_hash,
		       start_time, end_time, duration_ms, cwd, git_branch, first_commit_hash, latest_commit_hash,
		       processing_status, last_error, upload_status, created_at, updated_at
		FROM agent_sessions WHERE upload_status = ? ORDER BY created_at
	`, status)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindDatabase, "list sessions by upload status", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, guideerr.Wrap(guideerr.KindDatabase, "scan session row", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	var sess Session
	var start, end, created, updated sql.NullInt64
	err := r.Scan(
		&sess.ID, &sess.Provider, &sess.SessionID, &sess.ProjectID, &sess.ProjectName, &sess.FilePath, &sess.FileSize, &sess.FileHash,
		&start, &end, &sess.DurationMs, &sess.Cwd, &sess.GitBranch, &sess.FirstCommitHash, &sess.LatestCommitHash,
		&sess.ProcessingStatus, &sess.LastError, &sess.UploadStatus, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	sess.StartTime = timeFromNullable(start)
	sess.EndTime = timeFromNullable(end)
	sess.CreatedAt = timeFromNullable(created)
	sess.UpdatedAt = timeFromNullable(updated)
	return &sess, nil
}

// UpsertProject inserts or updates a projects row keyed by cwd.
func (s *Store) UpsertProject(p Project) (string, error) {
	existing, err := s.GetProjectByCwd(p.Cwd)
	if err != nil {
		return "", err
	}
	now := time.Now().UnixMilli()
	if existing == nil {
		id := uuid.NewString()
		_, err := s.db.Exec(`
			INSERT INTO projects (id, cwd, name, git_remote_url, detected_project_type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, p.Cwd, p.Name, p.GitRemoteURL, p.DetectedProjectType, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return s.UpsertProject(p)
			}
			return "", guideerr.Wrap(guideerr.KindDatabase, "insert project", err)
		}
		return id, nil
	}
	_, err = s.db.Exec(`
		UPDATE projects SET name = ?, git_remote_url = ?, detected_project_type = ?, updated_at = ? WHERE id = ?
	`, p.Name, p.GitRemoteURL, p.DetectedProjectType, now, existing.ID)
	if err != nil {
		return "", guideerr.Wrap(guideerr.KindDatabase, "update project", err)
	}
	return existing.ID, nil
}

// GetProjectByCwd returns a project row, or nil if none exists for cwd.
func (s *Store) GetProjectByCwd(cwd string) (*Project, error) {
	var p Project
	var created, updated int64
	err := s.db.QueryRow(`
		SELECT id, cwd, name, git_remote_url, detected_project_type, created_at, updated_at
		FROM projects WHERE cwd = ?
	`, cwd).Scan(&p.ID, &p.Cwd, &p.Name, &p.GitRemoteURL, &p.DetectedProjectType, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindDatabase, "get project by cwd", err)
	}
	p.CreatedAt = time.UnixMilli(created)
	p.UpdatedAt = time.UnixMilli(updated)
	return &p, nil
}

// UpsertMetrics writes a session's derived metrics row, replacing any
// prior values for the same session.
func (s *Store) UpsertMetrics(m Metrics) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(`
		INSERT INTO session_metrics (
			session_row_id, message_count, user_message_count, assistant_message_count,
			tool_call_count, error_count, git_files_changed, git_lines_added, git_lines_removed,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_row_id) DO UPDATE SET
			message_count = excluded.message_count,
			user_message_count = excluded.user_message_count,
			assistant_message_count = excluded.assistant_message_count,
			tool_call_count = excluded.tool_call_count,
			error_count = excluded.error_count,
			git_files_changed = excluded.git_files_changed,
			git_lines_added = excluded.git_lines_added,
			git_lines_removed = excluded.git_lines_removed,
			updated_at = excluded.updated_at
	`, m.SessionRowID, m.MessageCount, m.UserMessageCount, m.AssistantMessageCount,
		m.ToolCallCount, m.ErrorCount, m.GitFilesChanged, m.GitLinesAdded, m.GitLinesRemoved,
		now, now)
	if err != nil {
		return guideerr.Wrap(guideerr.KindDatabase, "upsert session metrics", err)
	}
	return nil
}

// GetMetrics returns a session's metrics row, or nil if none exists.
func (s *Store) GetMetrics(sessionRowID string) (*Metrics, error) {
	var m Metrics
	m.SessionRowID = sessionRowID
	err := s.db.QueryRow(`
		SELECT message_count, user_message_count, assistant_message_count, tool_call_count,
		       error_count, git_files_changed, git_lines_added, git_lines_removed
		FROM session_metrics WHERE session_row_id = ?
	`, sessionRowID).Scan(&m.MessageCount, &m.UserMessageCount, &m.AssistantMessageCount, &m.ToolCallCount,
		&m.ErrorCount, &m.GitFilesChanged, &m.GitLinesAdded, &m.GitLinesRemoved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindDatabase, "get session metrics", err)
	}
	return &m, nil
}
