package claude

import (
	"encoding/json"
	"testing"
)

// TestProviderMetadataCarriesUnmodeledTopLevelFields covers the review
// fix for the previously-dead Message.ProviderMetadata field: a raw
// line carrying a key Entry doesn't model (e.g. "requestId") must have
// it preserved on the canonical message instead of silently dropped.
func TestProviderMetadataCarriesUnmodeledTopLevelFields(t *testing.T) {
	conv := Converter{}
	line := `{"type":"user","uuid":"u1","timestamp":"t","sessionId":"s","requestId":"req-123","message":{"role":"user","content":"hi"}}`
	e, err := decodeEntry(line)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	msg, err := conv.ToCanonical(e)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if msg.ProviderMetadata == nil {
		t.Fatal("expected non-nil ProviderMetadata")
	}
	var got map[string]string
	if err := json.Unmarshal(msg.ProviderMetadata, &got); err != nil {
		t.Fatalf("unmarshal ProviderMetadata: %v", err)
	}
	if got["requestId"] != "req-123" {
		t.Fatalf("got %+v, want requestId preserved", got)
	}
	if _, ok := got["uuid"]; ok {
		t.Fatalf("modeled field uuid leaked into ProviderMetadata: %+v", got)
	}
}

// TestProviderMetadataNilWhenNothingExtra ensures a line carrying only
// modeled fields yields a nil ProviderMetadata, not an empty "{}".
func TestProviderMetadataNilWhenNothingExtra(t *testing.T) {
	conv := Converter{}
	line := `{"type":"user","uuid":"u1","timestamp":"t","sessionId":"s","message":{"role":"user","content":"hi"}}`
	e, err := decodeEntry(line)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	msg, err := conv.ToCanonical(e)
	if err != nil {
		t.Fatalf("ToCanonical: %v", err)
	}
	if msg.ProviderMetadata != nil {
		t.Fatalf("expected nil ProviderMetadata, got %s", msg.ProviderMetadata)
	}
}
