package canonical

import (
	"bytes"
	"encoding/json"
)

// Converter is the capability every provider parser implements: it
// turns one provider-native item into at most one canonical Message.
// A nil Message with a nil error means "filter this item silently"
// (spec §4.1) — e.g. Claude's file-history-snapshot lines, or a
// Codex event_msg fragment the Aggregator hasn't finalized yet.
//
// Grounded in original_source/src-tauri/src/providers/canonical/converter.rs's
// ToCanonical trait; Go's lack of associated-type traits means this is
// expressed as a plain interface over the already-parsed native item
// type T, with ConvertBatch as a generic free function standing in for
// Rust's `convert_batch<T: ToCanonical>`.
type Converter[T any] interface {
	ToCanonical(item T) (*Message, error)
	ProviderName() string
}

// ConvertBatch runs conv over items, dropping filtered (nil) results
// and stopping at the first error, mirroring the Rust filter_map +
// collect::<Result<_>> pattern in converter.rs.
func ConvertBatch[T any](conv Converter[T], items []T) ([]Message, error) {
	out := make([]Message, 0, len(items))
	for _, item := range items {
		msg, err := conv.ToCanonical(item)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		out = append(out, *msg)
	}
	return out, nil
}

// ToJSONL renders a batch of messages as newline-delimited JSON with
// no leading or trailing blank line, matching the Rust to_jsonl helper.
func ToJSONL(messages []Message) ([]byte, error) {
	var buf bytes.Buffer
	for i, m := range messages {
		if i > 0 {
			buf.WriteByte('\n')
		}
		line, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// ParseJSONL parses a canonical JSONL byte stream back into messages,
// skipping blank lines. Used by round-trip tests and by components
// that re-read the canonical store (timing extraction, upload queue).
func ParseJSONL(data []byte) ([]Message, error) {
	var out []Message
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
