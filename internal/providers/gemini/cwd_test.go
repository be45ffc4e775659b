package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TestVerifyHash reproduces original_source's sha256 fixture.
func TestVerifyHash(t *testing.T) {
	workdir := "/Users/cliftonc/work/guideai"
	expected := hashOf(workdir)
	if !VerifyHash(workdir, expected) {
		t.Fatalf("VerifyHash should match")
	}
	if VerifyHash(workdir, "deadbeef") {
		t.Fatalf("VerifyHash should not match a wrong hash")
	}
}

// TestInferCwdFromContent reproduces spec §8 scenario S4: the only
// path mention in the session resolves to a deep ancestor whose hash
// matches the directory name.
func TestInferCwdFromContent(t *testing.T) {
	cwd := "/Users/cliftonc/work/guidemode"
	hash := hashOf(cwd)
	session := Session{
		SessionID:   "sess1",
		ProjectHash: hash,
		Messages: []Message{
			{
				ID:          "m1",
				Timestamp:   "2026-01-01T00:00:00Z",
				MessageType: "user",
				Content:     "Please check /Users/cliftonc/work/guidemode/apps/desktop/CLAUDE.md",
			},
		},
	}

	got, ok := InferCwd(session, hash)
	if !ok {
		t.Fatalf("InferCwd should resolve a cwd")
	}
	if got != cwd {
		t.Fatalf("got cwd %q, want %q", got, cwd)
	}
	name, err := ProjectNameFromCwd(got)
	if err != nil || name != "guidemode" {
		t.Fatalf("ProjectNameFromCwd = %q, %v; want guidemode, nil", name, err)
	}
}

// TestInferCwdPrefersToolArgs verifies priority 1 (tool-call
// arguments) wins over priority 3 (message prose) when both are
// present, per spec §4.2.5's stated priority order.
func TestInferCwdPrefersToolArgs(t *testing.T) {
	cwd := "/home/dev/project-a"
	hash := hashOf(cwd)
	session := Session{
		ProjectHash: hash,
		Messages: []Message{
			{
				MessageType: "gemini",
				Content:     "unrelated text with /home/dev/project-b/readme.md",
				ToolCalls: []ToolCall{
					{ID: "t1", Name: "read_file", Args: []byte(`{"absolute_path":"/home/dev/project-a/main.go"}`)},
				},
			},
		},
	}
	got, ok := InferCwd(session, hash)
	if !ok || got != cwd {
		t.Fatalf("got (%q, %v), want (%q, true)", got, ok, cwd)
	}
}

// TestNoRecoverableCwdIsNotCached verifies a session whose directory
// hash matches no candidate path yields no cwd, per spec §8's
// boundary behavior.
func TestNoRecoverableCwdIsNotCached(t *testing.T) {
	session := Session{
		ProjectHash: "deadbeef",
		Messages: []Message{
			{MessageType: "user", Content: "no paths here at all"},
		},
	}
	if _, ok := InferCwd(session, "deadbeef"); ok {
		t.Fatalf("expected no cwd to be recoverable")
	}

	home := t.TempDir()
	chatsDir := filepath.Join(home, "tmp", "deadbeef", "chats")
	if err := os.MkdirAll(chatsDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sessionJSON := `{"sessionId":"s1","projectHash":"deadbeef","messages":[{"id":"m1","type":"user","content":"no paths here at all"}]}`
	if err := os.WriteFile(filepath.Join(chatsDir, "session-1.json"), []byte(sessionJSON), 0o600); err != nil {
		t.Fatalf("write session: %v", err)
	}
	registry := &Registry{Projects: map[string]ProjectEntry{}}
	if _, err := ScanSessionsFiltered(home, registry, nil); err != nil {
		t.Fatalf("ScanSessionsFiltered: %v", err)
	}
	if _, ok := registry.Get("deadbeef"); ok {
		t.Fatalf("unrecoverable hash must not be cached in the registry")
	}
}

// TestScanSessionsFilteredWritesRegistry exercises the end-to-end
// scanner: a hash directory with one session file, no prior registry
// entry, cwd recovered from message content, and the registry updated
// in memory (ScanSessionsFiltered does not save it to disk).
func TestScanSessionsFilteredWritesRegistry(t *testing.T) {
	home := t.TempDir()
	cwd := "/Users/dev/widget"
	hash := hashOf(cwd)
	chatsDir := filepath.Join(home, "tmp", hash, "chats")
	if err := os.MkdirAll(chatsDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sessionJSON := `{
		"sessionId": "s1",
		"projectHash": "` + hash + `",
		"startTime": "2026-01-01T00:00:00Z",
		"lastUpdated": "2026-01-01T00:01:00Z",
		"messages": [
			{"id":"m1","timestamp":"2026-01-01T00:00:00Z","type":"user","content":"` + cwd + `/README.md"},
			{"id":"m2","timestamp":"2026-01-01T00:00:05Z","type":"gemini","content":"ok","model":"gemini-2.5-pro"}
		]
	}`
	if err := os.WriteFile(filepath.Join(chatsDir, "session-1.json"), []byte(sessionJSON), 0o600); err != nil {
		t.Fatalf("write session: %v", err)
	}

	registry := &Registry{Projects: map[string]ProjectEntry{}}
	results, err := ScanSessionsFiltered(home, registry, nil)
	if err != nil {
		t.Fatalf("ScanSessionsFiltered: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ProjectName != "widget" || results[0].Cwd != cwd {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if len(results[0].Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(results[0].Messages))
	}
	entry, ok := registry.Get(hash)
	if !ok || entry.Cwd != cwd {
		t.Fatalf("registry not updated in memory: %+v", registry.Projects)
	}
}
