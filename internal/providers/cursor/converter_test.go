package cursor

import (
	"testing"

	"guideai/internal/canonical"
)

// TestComplexBlobToMessageBuildsToolUseBlock exercises the path the
// review flagged as unreachable: a protobuf blob decoded as
// KindComplex (Field 4) must reach complexBlocksToCanonical via
// blobToMessage, not just the KindJSON path.
func TestComplexBlobToMessageBuildsToolUseBlock(t *testing.T) {
	payload := []byte(`{"role":"assistant","content":[{"type":"tool_call","tool_call_id":"t1","tool_name":"Read","args":"{\"path\":\"x\"}"},{"type":"text","text":"done"}]}`)
	decoded := DecodeBlob(encodeLengthDelimited(4, payload))
	if decoded.Kind != KindComplex {
		t.Fatalf("kind = %v, want complex", decoded.Kind)
	}

	msg := blobToMessage("blob-x", 0, "sess-1", "/cwd", "2026-01-01T00:00:00Z", decoded)
	if msg == nil {
		t.Fatal("expected a message, got nil")
	}
	if msg.Type != canonical.TypeAssistant {
		t.Fatalf("type = %v, want assistant", msg.Type)
	}
	if !msg.Message.Content.IsStructured() {
		t.Fatal("expected structured content")
	}
	blocks := msg.Message.Content.Blocks
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Type != canonical.BlockToolUse || blocks[0].ID != "t1" || blocks[0].Name != "Read" {
		t.Fatalf("unexpected tool_use block: %+v", blocks[0])
	}
	if blocks[1].Type != canonical.BlockText || blocks[1].Text != "done" {
		t.Fatalf("unexpected text block: %+v", blocks[1])
	}
}

// TestComplexBlobToMessageDefaultsRoleToAssistant checks that a
// payload omitting "role" (tool calls are always assistant-authored)
// still yields an assistant message rather than failing to decode.
func TestComplexBlobToMessageDefaultsRoleToAssistant(t *testing.T) {
	payload := []byte(`{"content":[{"type":"redacted_reasoning","data":"opaque"}]}`)
	decoded := DecodedBlob{Kind: KindComplex, JSON: payload}

	msg := blobToMessage("blob-y", 0, "sess-1", "/cwd", "2026-01-01T00:00:01Z", decoded)
	if msg == nil {
		t.Fatal("expected a message, got nil")
	}
	if msg.Type != canonical.TypeAssistant || msg.Message.Role != canonical.RoleAssistant {
		t.Fatalf("expected assistant default, got type=%v role=%v", msg.Type, msg.Message.Role)
	}
	if len(msg.Message.Content.Blocks) != 1 || msg.Message.Content.Blocks[0].Type != canonical.BlockThinking {
		t.Fatalf("unexpected blocks: %+v", msg.Message.Content.Blocks)
	}
}

// TestComplexBlobUnknownBlockKindSkippedWithoutError covers the spec's
// Open Question: unknown Field-4 block kinds must be skipped silently,
// not cause an error or a malformed canonical message.
func TestComplexBlobUnknownBlockKindSkippedWithoutError(t *testing.T) {
	payload := []byte(`{"role":"assistant","content":[{"type":"some_future_kind","text":"ignored"},{"type":"text","text":"kept"}]}`)
	decoded := DecodedBlob{Kind: KindComplex, JSON: payload}

	msg := blobToMessage("blob-z", 0, "sess-1", "/cwd", "2026-01-01T00:00:02Z", decoded)
	if msg == nil {
		t.Fatal("expected a message, got nil")
	}
	if len(msg.Message.Content.Blocks) != 1 || msg.Message.Content.Blocks[0].Text != "kept" {
		t.Fatalf("expected only the known block to survive, got %+v", msg.Message.Content.Blocks)
	}
}
