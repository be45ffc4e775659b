package codex

import "testing"

func TestAggregatorAssemblesFragmentsOnFinal(t *testing.T) {
	agg := NewAggregator("sess-1", "/p")

	if msg := agg.IngestEventMsg("t0", EventMsgPayload{ResponseID: "r1", Role: "assistant", ItemType: "message", DeltaText: "Hel"}); msg != nil {
		t.Fatalf("expected nil before terminal fragment, got %+v", msg)
	}
	msg := agg.IngestEventMsg("t1", EventMsgPayload{ResponseID: "r1", Role: "assistant", ItemType: "message", DeltaText: "lo", Final: true})
	if msg == nil {
		t.Fatalf("expected a message on the terminal fragment")
	}
	if msg.Message.Content.Text != "Hello" {
		t.Fatalf("got content %q, want concatenated \"Hello\"", msg.Message.Content.Text)
	}
	if msg.Provider != ProviderName || msg.SessionID != "sess-1" {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
}

func TestAggregatorDropsFragmentsAfterFinal(t *testing.T) {
	agg := NewAggregator("sess-1", "/p")
	agg.IngestEventMsg("t0", EventMsgPayload{ResponseID: "r1", Role: "assistant", DeltaText: "done", Final: true})

	// A stray duplicate/out-of-order fragment for the same key after
	// it was finalized must emit nothing.
	if msg := agg.IngestEventMsg("t1", EventMsgPayload{ResponseID: "r1", Role: "assistant", DeltaText: "stray"}); msg != nil {
		t.Fatalf("expected nil for fragment arriving after finalization, got %+v", msg)
	}
}

func TestAggregatorResponseItemSupersedesBuffer(t *testing.T) {
	agg := NewAggregator("sess-1", "/p")
	agg.IngestEventMsg("t0", EventMsgPayload{ResponseID: "r1", Role: "assistant", DeltaText: "partial"})

	key := aggregatorKey{responseID: "r1"}
	item := ResponseItemPayload{ID: "r1", Role: "assistant", Content: []ResponseItemContent{{Type: "output_text", Text: "authoritative"}}}
	msg, err := agg.IngestResponseItem("r1", "t1", item, key)
	if err != nil {
		t.Fatalf("IngestResponseItem: %v", err)
	}
	if msg.Message.Content.Text != "authoritative" {
		t.Fatalf("got %q, want authoritative text from response_item", msg.Message.Content.Text)
	}

	// The buffer must have been evicted; a subsequent fragment with
	// the same key should not resurrect it.
	if late := agg.IngestEventMsg("t2", EventMsgPayload{ResponseID: "r1", Role: "assistant", DeltaText: "late"}); late != nil {
		t.Fatalf("expected nil for fragment after response_item supersession, got %+v", late)
	}
	if flushed := agg.Flush(); len(flushed) != 0 {
		t.Fatalf("expected empty flush after response_item supersession, got %+v", flushed)
	}
}

func TestAggregatorFlushIsBestEffort(t *testing.T) {
	agg := NewAggregator("sess-1", "/p")
	agg.IngestEventMsg("t0", EventMsgPayload{ResponseID: "r1", Role: "user", DeltaText: "never finished"})

	flushed := agg.Flush()
	if len(flushed) != 1 {
		t.Fatalf("expected 1 best-effort message, got %d", len(flushed))
	}
	if flushed[0].Message.Content.Text != "never finished" {
		t.Fatalf("got %q", flushed[0].Message.Content.Text)
	}

	// Flush clears state; a second flush is empty.
	if second := agg.Flush(); len(second) != 0 {
		t.Fatalf("expected second flush to be empty, got %+v", second)
	}
}

// TestAggregatorFlushOrdersByResponseIDThenLogicalIndex covers multiple
// unfinished buffers across response ids: Flush must return them in
// ascending (response_id, logical_index) order, not Go's randomized map
// iteration order.
func TestAggregatorFlushOrdersByResponseIDThenLogicalIndex(t *testing.T) {
	agg := NewAggregator("sess-1", "/p")
	agg.IngestEventMsg("t0", EventMsgPayload{ResponseID: "r2", LogicalIndex: 0, Role: "assistant", DeltaText: "r2-0"})
	agg.IngestEventMsg("t0", EventMsgPayload{ResponseID: "r1", LogicalIndex: 1, Role: "assistant", DeltaText: "r1-1"})
	agg.IngestEventMsg("t0", EventMsgPayload{ResponseID: "r1", LogicalIndex: 0, Role: "assistant", DeltaText: "r1-0"})

	flushed := agg.Flush()
	if len(flushed) != 3 {
		t.Fatalf("expected 3 best-effort messages, got %d", len(flushed))
	}
	want := []string{"r1-0", "r1-1", "r2-0"}
	for i, w := range want {
		if flushed[i].Message.Content.Text != w {
			t.Fatalf("position %d: got %q, want %q (full: %+v)", i, flushed[i].Message.Content.Text, w, flushed)
		}
	}
}
