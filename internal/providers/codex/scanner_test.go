package codex

import (
	"os"
	"path/filepath"
	"testing"
)

// TestParseCodexSession reproduces spec §8 scenario S2: a 2-line file
// (session_meta then a single user response_item) yields exactly one
// CanonicalMessage whose uuid is the line-2 payload id ("line2") and
// whose timestamp is line 2's, type=user, provider=codex, session_id="sess-1", message.content="Hi".
func TestParseCodexSession(t *testing.T) {
	dir := t.TempDir()
	content := `{"type":"session_meta","timestamp":"2026-01-01T10:00:00Z","payload":{"id":"sess-1","cwd":"/p"}}
{"type":"response_item","timestamp":"2026-01-01T10:00:01Z","payload":{"id":"line2","type":"message","role":"user","content":[{"type":"input_text","text":"Hi"}]}}
`
	path := filepath.Join(dir, "rollout.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if res.SessionID != "sess-1" || res.Cwd != "/p" {
		t.Fatalf("unexpected session metadata: %+v", res)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("expected exactly 1 canonical message, got %d: %+v", len(res.Messages), res.Messages)
	}
	m := res.Messages[0]
	if m.UUID != "line2" {
		t.Fatalf("uuid = %q, want line2", m.UUID)
	}
	if m.Type != "user" || m.Provider != "codex" || m.SessionID != "sess-1" {
		t.Fatalf("unexpected message envelope: %+v", m)
	}
	if m.Message.Content.IsStructured() || m.Message.Content.Text != "Hi" {
		t.Fatalf("unexpected content: %+v", m.Message.Content)
	}
	if m.Timestamp != "2026-01-01T10:00:01Z" {
		t.Fatalf("timestamp = %q, want line-2 timestamp", m.Timestamp)
	}
}

func TestScanSessionsFilteredRespectsSelection(t *testing.T) {
	dir := t.TempDir()
	sessionsDir := filepath.Join(dir, "2026", "01", "01")
	if err := os.MkdirAll(sessionsDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	write := func(name, project string) {
		content := `{"type":"session_meta","timestamp":"2026-01-01T10:00:00Z","payload":{"id":"` + name + `","cwd":"/home/u/` + project + `"}}
{"type":"response_item","timestamp":"2026-01-01T10:00:01Z","payload":{"id":"l2","type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}}
`
		if err := os.WriteFile(filepath.Join(sessionsDir, name+".jsonl"), []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("sess-a", "wanted")
	write("sess-b", "unwanted")

	results, err := ScanSessionsFiltered(dir, func(project string) bool { return project == "wanted" })
	if err != nil {
		t.Fatalf("ScanSessionsFiltered: %v", err)
	}
	if len(results) != 1 || results[0].SessionID != "sess-a" {
		t.Fatalf("expected only sess-a to be admitted, got %+v", results)
	}
}
