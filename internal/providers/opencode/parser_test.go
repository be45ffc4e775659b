package opencode

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TestScanSessionsFiltered reassembles a single session out of a
// project record, one message per role, and a two-part tool exchange,
// verifying part ordering by Index and cwd recovery from the
// project's worktree, per spec §4.2.4.
func TestScanSessionsFiltered(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "storage")

	writeJSON(t, filepath.Join(storage, "project", "proj1.json"),
		`{"id":"proj1","worktree":"/home/dev/widget","time":{"created":1000}}`)

	writeJSON(t, filepath.Join(storage, "session", "sess1.json"),
		`{"id":"sess1","projectID":"proj1","title":"demo","time":{"created":1000,"updated":2000}}`)

	writeJSON(t, filepath.Join(storage, "message", "sess1", "m1.json"),
		`{"id":"m1","sessionID":"sess1","role":"user","time":{"created":1700000000000}}`)
	writeJSON(t, filepath.Join(storage, "part", "sess1", "m1", "p1.json"),
		`{"id":"p1","messageID":"m1","sessionID":"sess1","index":0,"type":"text","text":"list files"}`)

	writeJSON(t, filepath.Join(storage, "message", "sess1", "m2.json"),
		`{"id":"m2","sessionID":"sess1","role":"assistant","modelID":"gpt-5","time":{"created":1700000001000}}`)
	writeJSON(t, filepath.Join(storage, "part", "sess1", "m2", "p2.json"),
		`{"id":"p2","messageID":"m2","sessionID":"sess1","index":1,"type":"tool","toolCallID":"tc1","tool":"ls","output":"a.go\nb.go"}`)
	writeJSON(t, filepath.Join(storage, "part", "sess1", "m2", "p1.json"),
		`{"id":"p1","messageID":"m2","sessionID":"sess1","index":0,"type":"text","text":"Looking..."}`)

	results, err := ScanSessionsFiltered(dir, nil)
	if err != nil {
		t.Fatalf("ScanSessionsFiltered: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d sessions, want 1", len(results))
	}
	res := results[0]
	if res.Cwd != "/home/dev/widget" || res.ProjectName != "widget" {
		t.Fatalf("cwd/project mismatch: %+v", res)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].UUID != "m1" || res.Messages[1].UUID != "m2" {
		t.Fatalf("message order wrong: %+v", res.Messages)
	}
	assistant := res.Messages[1]
	if !assistant.Message.Content.IsStructured() {
		t.Fatalf("assistant message should be structured, got text %q", assistant.Message.Content.Text)
	}
	blocks := assistant.Message.Content.Blocks
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3 (text, tool_use, tool_result): %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "Looking..." {
		t.Fatalf("part ordering wrong, block 0 = %+v", blocks[0])
	}
	if blocks[1].Name != "ls" || blocks[1].ID != "tc1" {
		t.Fatalf("tool_use block wrong: %+v", blocks[1])
	}
	if blocks[2].ToolUseID != "tc1" {
		t.Fatalf("tool_result block wrong: %+v", blocks[2])
	}
}

// TestProjectSelectionAppliesBeforeWrite ensures a non-selected
// project is dropped before any canonical conversion, per spec §4.3's
// filter-before-cache rule.
func TestProjectSelectionAppliesBeforeWrite(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "storage")
	writeJSON(t, filepath.Join(storage, "project", "proj1.json"),
		`{"id":"proj1","worktree":"/home/dev/excluded"}`)
	writeJSON(t, filepath.Join(storage, "session", "sess1.json"),
		`{"id":"sess1","projectID":"proj1","time":{"created":1}}`)

	results, err := ScanSessionsFiltered(dir, func(name string) bool { return name == "other" })
	if err != nil {
		t.Fatalf("ScanSessionsFiltered: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected excluded project to be filtered, got %d results", len(results))
	}
}
