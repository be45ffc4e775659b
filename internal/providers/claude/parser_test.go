package claude

import (
	"os"
	"path/filepath"
	"testing"
)

// TestAgentSidechainSplicing implements spec §8 scenario S1: a main
// session with three lines, the middle one referencing an agent
// sidechain, must produce u1, u2, ua1, ua2, u3 in that order.
func TestAgentSidechainSplicing(t *testing.T) {
	dir := t.TempDir()

	main := `{"type":"user","uuid":"u1","timestamp":"2026-01-01T10:00:00Z","sessionId":"abc","message":{"role":"user","content":"Hello"}}
{"type":"user","uuid":"u2","timestamp":"2026-01-01T10:01:00Z","sessionId":"abc","message":{"role":"user","content":"go"},"toolUseResult":{"agentId":"ag1"}}
{"type":"assistant","uuid":"u3","timestamp":"2026-01-01T10:02:00Z","sessionId":"abc","message":{"role":"assistant","content":"Done"}}
`
	agent := `{"type":"user","uuid":"ua1","timestamp":"2026-01-01T10:01:10Z","sessionId":"abc","isSidechain":true,"message":{"role":"user","content":"Agent task"}}
{"type":"assistant","uuid":"ua2","timestamp":"2026-01-01T10:01:20Z","sessionId":"abc","isSidechain":true,"message":{"role":"assistant","content":"Agent response"}}
`
	mainPath := filepath.Join(dir, "session-abc.jsonl")
	if err := os.WriteFile(mainPath, []byte(main), 0o600); err != nil {
		t.Fatalf("write main: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "agent-ag1.jsonl"), []byte(agent), 0o600); err != nil {
		t.Fatalf("write agent: %v", err)
	}

	msgs, err := ParseSession(mainPath, "abc")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}

	wantOrder := []string{"u1", "u2", "ua1", "ua2", "u3"}
	if len(msgs) != len(wantOrder) {
		t.Fatalf("got %d messages, want %d: %+v", len(msgs), len(wantOrder), msgs)
	}
	for i, uuid := range wantOrder {
		if msgs[i].UUID != uuid {
			t.Fatalf("position %d: got uuid %q, want %q", i, msgs[i].UUID, uuid)
		}
		if msgs[i].Provider != "claude-code" {
			t.Fatalf("position %d: provider = %q, want claude-code", i, msgs[i].Provider)
		}
		if msgs[i].SessionID != "abc" {
			t.Fatalf("position %d: session_id = %q, want abc", i, msgs[i].SessionID)
		}
	}
}

// TestMissingAgentFileTolerated ensures a referenced-but-absent
// sidechain file does not fail the whole session (live-capture
// partial writes), per agent_merger.rs's tolerance test.
func TestMissingAgentFileTolerated(t *testing.T) {
	dir := t.TempDir()
	main := `{"type":"user","uuid":"u1","timestamp":"2026-01-01T10:00:00Z","sessionId":"abc","message":{"role":"user","content":"Hello"}}
{"type":"user","uuid":"u2","timestamp":"2026-01-01T10:01:00Z","sessionId":"abc","message":{"role":"user","content":"go"},"toolUseResult":{"agentId":"missing"}}
`
	mainPath := filepath.Join(dir, "session-abc.jsonl")
	if err := os.WriteFile(mainPath, []byte(main), 0o600); err != nil {
		t.Fatalf("write main: %v", err)
	}

	msgs, err := ParseSession(mainPath, "abc")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (missing agent file tolerated): %+v", len(msgs), msgs)
	}
}

// TestAgentFileSelfReferenceRejected covers spec §9's cycle guard: an
// agent file whose own lines reference their own agentId must be
// rejected rather than spliced in, since the splicing relationship is
// defined as a tree.
func TestAgentFileSelfReferenceRejected(t *testing.T) {
	dir := t.TempDir()
	main := `{"type":"user","uuid":"u1","timestamp":"2026-01-01T10:00:00Z","sessionId":"abc","message":{"role":"user","content":"go"},"toolUseResult":{"agentId":"ag1"}}
`
	// agent-ag1.jsonl's second line points back at its own agentId.
	agent := `{"type":"user","uuid":"ua1","timestamp":"2026-01-01T10:01:00Z","sessionId":"abc","isSidechain":true,"message":{"role":"user","content":"Agent task"}}
{"type":"assistant","uuid":"ua2","timestamp":"2026-01-01T10:01:10Z","sessionId":"abc","isSidechain":true,"message":{"role":"assistant","content":"loop"},"toolUseResult":{"agentId":"ag1"}}
`
	mainPath := filepath.Join(dir, "session-abc.jsonl")
	if err := os.WriteFile(mainPath, []byte(main), 0o600); err != nil {
		t.Fatalf("write main: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "agent-ag1.jsonl"), []byte(agent), 0o600); err != nil {
		t.Fatalf("write agent: %v", err)
	}

	msgs, err := ParseSession(mainPath, "abc")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	// The self-referencing agent file is rejected wholesale, so only
	// the main line's own message survives.
	if len(msgs) != 1 || msgs[0].UUID != "u1" {
		t.Fatalf("expected only u1 to survive a self-referencing agent file, got %+v", msgs)
	}
}

func TestFileHistorySnapshotFiltered(t *testing.T) {
	conv := Converter{}
	e := Entry{Type: "file-history-snapshot", UUID: "u1", Timestamp: "t", SessionID: "s"}
	msg, err := conv.ToCanonical(e)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected file-history-snapshot to be filtered, got %+v", msg)
	}
}

func TestCompactBoundaryFiltered(t *testing.T) {
	conv := Converter{}
	e := Entry{Type: "system", Subtype: "compact_boundary", UUID: "u1", Timestamp: "t", SessionID: "s"}
	msg, err := conv.ToCanonical(e)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected compact_boundary system line to be filtered, got %+v", msg)
	}
}

func TestParentUUIDNullStripped(t *testing.T) {
	conv := Converter{}
	e := Entry{
		Type: "user", UUID: "u1", Timestamp: "t", SessionID: "s",
		ParentUUID: []byte(`"null"`),
		Message:    []byte(`{"role":"user","content":"hi"}`),
	}
	msg, err := conv.ToCanonical(e)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if msg.ParentUUID != "" {
		t.Fatalf("expected literal null parentUuid to collapse to empty, got %q", msg.ParentUUID)
	}
}

func TestAssistantMessageFieldMapping(t *testing.T) {
	conv := Converter{}
	in := 10
	out := 20
	e := Entry{
		Type: "assistant", UUID: "u1", Timestamp: "t", SessionID: "s",
		Message: []byte(`{"role":"assistant","model":"claude-x","content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":10,"output_tokens":20}}`),
	}
	msg, err := conv.ToCanonical(e)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if msg.Message.Model != "claude-x" {
		t.Fatalf("model not preserved: %+v", msg.Message)
	}
	if msg.Message.Usage == nil || *msg.Message.Usage.InputTokens != in || *msg.Message.Usage.OutputTokens != out {
		t.Fatalf("usage not preserved: %+v", msg.Message.Usage)
	}
}
