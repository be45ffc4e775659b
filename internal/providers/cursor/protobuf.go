// Package cursor parses Cursor's per-session SQLite blob store,
// including the hand-rolled Protobuf/JSON hybrid decoder spec §4.2.6
// and §9 describe. Grounded in
// original_source/dev-tools/cursor_protobuf_decoder.rs's manual
// varint/wire-type field walker (no protobuf library exists anywhere
// in the retrieved corpus, and none is needed: Cursor's wire format is
// deliberately walked by hand because its meaning is ambiguous without
// the shape heuristic below).
package cursor

import (
	"encoding/json"
	"errors"
)

// BlobKind classifies a decoded blob, per spec §4.2.6.
type BlobKind string

const (
	KindJSON          BlobKind = "json"
	KindAssistantText BlobKind = "assistant"
	KindUserText      BlobKind = "user"
	KindComplex       BlobKind = "complex"
	KindTreeReference BlobKind = "tree_reference"
)

// DecodedBlob is the hybrid decoder's result. Raw is always kept
// alongside the structured interpretation because, per spec §9, the
// final text extraction may require re-parsing the blob under the
// alternative shape — protobuf's wire format cannot by itself
// distinguish "a string containing sub-bytes" from "a nested message".
type DecodedBlob struct {
	Kind BlobKind
	Text string
	JSON json.RawMessage
	Raw  []byte
}

var errNotLengthDelimited = errors.New("cursor: field 1 is not a length-delimited value")

// DecodeBlob is the central Cursor-decoding gotcha (spec §4.2.6, §9):
// it attempts, strictly in order, JSON → protobuf assistant-shape
// (nested Field 1) → protobuf user-shape (direct Field 1) → protobuf
// complex-shape (Field 4) → tree/reference skip. Reversing the
// assistant/user order corrupts assistant content, because a decoder
// that treats Field 1 uniformly as a string would render the
// assistant-shape's nested-message bytes as garbled text.
func DecodeBlob(data []byte) DecodedBlob {
	if len(data) > 0 && data[0] == '{' {
		return DecodedBlob{Kind: KindJSON, JSON: json.RawMessage(data), Raw: data}
	}

	if field1, ok := readField1LengthDelimited(data); ok {
		// Assistant-shape: Field 1 is itself a nested message whose own
		// Field 1 is the text. The shape only makes sense to attempt
		// when field1's leading byte looks like a protobuf tag rather
		// than printable prose (spec §8 boundary behavior): a low-value
		// leading byte, <0x20, that parses exactly as a nested message is
		// decoded as nested, never as the user-shape fallback. When the
		// exact nested parse fails, Field 1 is taken as a direct string.
		if len(field1) > 0 && field1[0] < 0x20 {
			if inner, ok := readField1LengthDelimitedExact(field1); ok {
				return DecodedBlob{Kind: KindAssistantText, Text: string(inner), Raw: data}
			}
		}

		// User-shape: Field 1 is a direct UTF-8 string.
		return DecodedBlob{Kind: KindUserText, Text: string(field1), Raw: data}
	}

	// Complex-shape (spec §4.2.6 kind 3): no usable Field 1, but Field 4
	// carries a length-delimited structured payload — a JSON-encoded
	// object of text/tool_call/tool_result/redacted_reasoning blocks,
	// per original_source's CursorBlob.complex_data/parse_complex().
	if field4, ok := readFieldLengthDelimited(data, 4); ok {
		return DecodedBlob{Kind: KindComplex, JSON: json.RawMessage(field4), Raw: data}
	}

	return DecodedBlob{Kind: KindTreeReference, Raw: data}
}

// readVarint reads a base-128 varint starting at data[0], returning
// the decoded value and the number of bytes consumed.
func readVarint(data []byte) (value uint64, n int, ok bool) {
	var shift uint
	for i := 0; i < len(data) && i < 10; i++ {
		b := data[i]
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, i + 1, true
		}
		shift += 7
	}
	return 0, 0, false
}

// readField1LengthDelimited reads the first protobuf field in data and
// returns its value bytes if it is field number 1, wire type 2
// (length-delimited). It does not require the field to consume the
// entire remainder of data.
func readField1LengthDelimited(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	tag, n, ok := readVarint(data)
	if !ok {
		return nil, false
	}
	fieldNumber := tag >> 3
	wireType := tag & 0x7
	if fieldNumber != 1 || wireType != 2 {
		return nil, false
	}
	rest := data[n:]
	length, n2, ok := readVarint(rest)
	if !ok {
		return nil, false
	}
	rest = rest[n2:]
	if uint64(len(rest)) < length {
		return nil, false
	}
	return rest[:length], true
}

// readFieldLengthDelimited scans data's top-level protobuf fields in
// order, skipping every field that is not fieldNumber (wire types 0,
// 1, 2 and 5; any other wire type ends the scan with no result), and
// returns the value bytes of the first
// length-delimited (wire type 2) occurrence of fieldNumber. Used to
// reach Field 4 (the complex-message payload) in a CursorBlob whose
// Field 1 is absent or unusable.
func readFieldLengthDelimited(data []byte, fieldNumber int) ([]byte, bool) {
	pos := 0
	for pos < len(data) {
		tag, n, ok := readVarint(data[pos:])
		if !ok {
			return nil, false
		}
		pos += n
		fn := tag >> 3
		wireType := tag & 0x7

		switch wireType {
		case 0:
			_, n, ok := readVarint(data[pos:])
			if !ok {
				return nil, false
			}
			pos += n
		case 1:
			if pos+8 > len(data) {
				return nil, false
			}
			pos += 8
		case 2:
			length, n, ok := readVarint(data[pos:])
			if !ok {
				return nil, false
			}
			pos += n
			if uint64(len(data)-pos) < length {
				return nil, false
			}
			value := data[pos : pos+int(length)]
			if int(fn) == fieldNumber {
				return value, true
			}
			pos += int(length)
		case 5:
			if pos+4 > len(data) {
				return nil, false
			}
			pos += 4
		default:
			return nil, false
		}
	}
	return nil, false
}

// readField1LengthDelimitedExact is like readField1LengthDelimited but
// additionally requires the field to consume the entirety of data —
// the structural validity check that confirms data really is a nested
// message rather than a string that happens to start with a tag-like
// byte.
func readField1LengthDelimitedExact(data []byte) ([]byte, bool) {
	tag, n, ok := readVarint(data)
	if !ok {
		return nil, false
	}
	fieldNumber := tag >> 3
	wireType := tag & 0x7
	if fieldNumber != 1 || wireType != 2 {
		return nil, false
	}
	rest := data[n:]
	length, n2, ok := readVarint(rest)
	if !ok {
		return nil, false
	}
	rest = rest[n2:]
	if uint64(len(rest)) != length {
		return nil, false
	}
	return rest, true
}
