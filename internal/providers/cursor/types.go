package cursor

// ProviderName is the stable provider token used in canonical output.
const ProviderName = "cursor"

// complexBlock mirrors the JSON shape of a "complex message" blob
// (spec §4.2.6 kind 3): a structured payload whose blocks carry text,
// tool calls, tool results, or redacted reasoning.
type complexBlock struct {
	Type             string `json:"type"`
	Text             string `json:"text,omitempty"`
	ToolCallID       string `json:"tool_call_id,omitempty"`
	ToolName         string `json:"tool_name,omitempty"`
	Args             string `json:"args,omitempty"`
	Output           string `json:"output,omitempty"`
	IsError          *bool  `json:"is_error,omitempty"`
	RedactedData     string `json:"data,omitempty"`
}

type complexPayload struct {
	Blocks []complexBlock `json:"blocks"`
}

// jsonMessagePayload is the kind-4 JSON blob shape: role plus either
// plain text or the same structured blocks as complexPayload.
type jsonMessagePayload struct {
	Role   string         `json:"role"`
	Text   string         `json:"text,omitempty"`
	Blocks []complexBlock `json:"blocks,omitempty"`
}

// complexFieldPayload is the JSON-encoded object embedded in a
// protobuf blob's Field 4 (spec §4.2.6 kind 3, "Complex message"): an
// id, a role, and the same block shape jsonMessagePayload carries,
// named "content" here to match original_source's ComplexMessage.
type complexFieldPayload struct {
	ID      string         `json:"id,omitempty"`
	Role    string         `json:"role,omitempty"`
	Content []complexBlock `json:"content"`
}
