package uploadqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"guideai/internal/catalog"
	"guideai/internal/config"
)

func TestEnqueueSyncModeNothingIsDropped(t *testing.T) {
	q := New(Config{ServerURL: "http://example.invalid", APIKey: "k"})
	if q.Enqueue(UploadItem{SyncMode: config.SyncNothing, SessionID: "s1"}) {
		t.Fatalf("expected Nothing sync mode to be dropped before enqueue")
	}
	if q.PendingCount() != 0 {
		t.Fatalf("expected empty queue, got %d pending", q.PendingCount())
	}
}

func TestEnqueueDedupDropsRepeatedHash(t *testing.T) {
	q := New(Config{ServerURL: "http://example.invalid", APIKey: "k"})
	item := UploadItem{SyncMode: config.SyncMetricsOnly, SessionID: "s1", FileHash: "abc"}
	if !q.Enqueue(item) {
		t.Fatalf("expected first enqueue to succeed")
	}
	q.hashes.Add("abc")
	if q.Enqueue(item) {
		t.Fatalf("expected repeated hash to be dropped")
	}
}

func openTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestUploadSuccessMarksCatalog drives a full Run loop against a fake
// server that reports needsUpload=true and accepts the upload,
// asserting the catalog row flips to upload success.
func TestUploadSuccessMarksCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/agent-sessions/check-hash":
			json.NewEncoder(w).Encode(map[string]bool{"needsUpload": true})
		case "/api/agent-sessions/upload-v2":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := openTestCatalog(t)
	if _, err := store.InsertOrUpdate(catalog.Session{Provider: "claude-code", SessionID: "s1", ProjectName: "widget"}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	q := New(Config{ServerURL: server.URL, APIKey: "k", Store: store, PollInterval: time.Hour})
	q.Enqueue(UploadItem{
		Provider: "claude-code", SessionID: "s1", ProjectName: "widget",
		Content: "{}\n", SyncMode: config.SyncTranscriptAndMetrics,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Run(ctx, nil)

	sess, err := store.GetByProviderAndSessionID("claude-code", "s1")
	if err != nil || sess == nil {
		t.Fatalf("GetByProviderAndSessionID: %v, %+v", err, sess)
	}
	if sess.UploadStatus != catalog.UploadSuccess {
		t.Fatalf("expected upload success, got %q (last_error=%q)", sess.UploadStatus, sess.LastError)
	}
}

// TestUploadClientErrorIsPermanentlyFailed verifies a 400 response
// never retries and lands in the Failed bag with the catalog row
// marked failed, per spec §4.7's classification table.
func TestUploadClientErrorIsPermanentlyFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("validation failed"))
	}))
	defer server.Close()

	store := openTestCatalog(t)
	if _, err := store.InsertOrUpdate(catalog.Session{Provider: "codex", SessionID: "s2"}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	q := New(Config{ServerURL: server.URL, APIKey: "k", Store: store, PollInterval: time.Hour})
	q.Enqueue(UploadItem{
		Provider: "codex", SessionID: "s2", Content: "{}\n", SyncMode: config.SyncMetricsOnly,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Run(ctx, nil)

	failed := q.Failed()
	if len(failed) != 1 || failed[0].SessionID != "s2" {
		t.Fatalf("expected one permanently failed item, got %+v", failed)
	}

	sess, err := store.GetByProviderAndSessionID("codex", "s2")
	if err != nil || sess == nil {
		t.Fatalf("GetByProviderAndSessionID: %v, %+v", err, sess)
	}
	if sess.UploadStatus != catalog.UploadFailed {
		t.Fatalf("expected catalog upload_status failed, got %q", sess.UploadStatus)
	}
}
