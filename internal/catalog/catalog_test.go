package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestInsertOrUpdateInsertsThenUpdates reproduces spec §4.5's
// insert-or-update contract: a second call for the same
// (provider, session_id) updates mutable columns and returns the same
// row id, without overwriting first_commit_hash.
func TestInsertOrUpdateInsertsThenUpdates(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.InsertOrUpdate(Session{
		Provider: "claude-code", SessionID: "sess-1", ProjectName: "widget",
		FileSize: 100, FileHash: "abc", FirstCommitHash: "c1", LatestCommitHash: "c1",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	id2, err := s.InsertOrUpdate(Session{
		Provider: "claude-code", SessionID: "sess-1", ProjectName: "widget",
		FileSize: 200, FileHash: "def", FirstCommitHash: "IGNORED", LatestCommitHash: "c2",
		EndTime: time.Now(),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same row id, got %q and %q", id1, id2)
	}

	got, err := s.GetByProviderAndSessionID("claude-code", "sess-1")
	if err != nil || got == nil {
		t.Fatalf("GetByProviderAndSessionID: %v, %+v", err, got)
	}
	if got.FileSize != 200 || got.FileHash != "def" {
		t.Fatalf("mutable columns not updated: %+v", got)
	}
	if got.FirstCommitHash != "c1" {
		t.Fatalf("first_commit_hash must never be overwritten, got %q", got.FirstCommitHash)
	}
	if got.LatestCommitHash != "c2" {
		t.Fatalf("latest_commit_hash should advance, got %q", got.LatestCommitHash)
	}
}

// TestAttachToProjectIsIdempotent verifies calling AttachToProject
// twice with the same project leaves the session unchanged.
func TestAttachToProjectIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertOrUpdate(Session{Provider: "codex", SessionID: "s1", ProjectName: "p"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	projID, err := s.UpsertProject(Project{Cwd: "/home/dev/widget", Name: "widget"})
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	if err := s.AttachToProject(id, projID); err != nil {
		t.Fatalf("AttachToProject: %v", err)
	}
	if err := s.AttachToProject(id, projID); err != nil {
		t.Fatalf("AttachToProject (second call): %v", err)
	}

	sess, err := s.GetByProviderAndSessionID("codex", "s1")
	if err != nil || sess.ProjectID != projID {
		t.Fatalf("expected project id %q, got %+v (err %v)", projID, sess, err)
	}
}

// TestMarkSyncFailedRecordsReason verifies an upload failure is
// recorded against the right session and flips upload_status.
func TestMarkSyncFailedRecordsReason(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertOrUpdate(Session{Provider: "cursor", SessionID: "s1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkSyncFailed("cursor", "s1", "server returned 500"); err != nil {
		t.Fatalf("MarkSyncFailed: %v", err)
	}
	got, err := s.GetByProviderAndSessionID("cursor", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UploadStatus != UploadFailed || got.LastError != "server returned 500" {
		t.Fatalf("unexpected session state: %+v", got)
	}
}

// TestListByUploadStatus verifies the upload queue's recovery query
// only returns sessions in the requested state.
func TestListByUploadStatus(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertOrUpdate(Session{Provider: "opencode", SessionID: "a"}); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := s.InsertOrUpdate(Session{Provider: "opencode", SessionID: "b"}); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if err := s.MarkUploadStatus("opencode", "b", UploadSuccess); err != nil {
		t.Fatalf("MarkUploadStatus: %v", err)
	}

	pending, err := s.ListByUploadStatus(UploadPending)
	if err != nil {
		t.Fatalf("ListByUploadStatus: %v", err)
	}
	if len(pending) != 1 || pending[0].SessionID != "a" {
		t.Fatalf("unexpected pending list: %+v", pending)
	}
}

// TestUpsertMetricsReplacesPriorValues verifies re-deriving a
// session's metrics overwrites rather than accumulates.
func TestUpsertMetricsReplacesPriorValues(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertOrUpdate(Session{Provider: "gemini-code", SessionID: "s1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpsertMetrics(Metrics{SessionRowID: id, MessageCount: 5, ErrorCount: 1}); err != nil {
		t.Fatalf("UpsertMetrics: %v", err)
	}
	if err := s.UpsertMetrics(Metrics{SessionRowID: id, MessageCount: 9, ErrorCount: 0}); err != nil {
		t.Fatalf("UpsertMetrics (second): %v", err)
	}
	m, err := s.GetMetrics(id)
	if err != nil || m == nil {
		t.Fatalf("GetMetrics: %v, %+v", err, m)
	}
	if m.MessageCount != 9 || m.ErrorCount != 0 {
		t.Fatalf("expected replaced values, got %+v", m)
	}
}
