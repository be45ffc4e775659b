// Package canonical defines the provider-agnostic message schema every
// parser converts into, and the conversion contract parsers implement.
// It is grounded in original_source/src-tauri/src/providers/canonical/mod.rs,
// translated from Rust's serde-tagged enums into the flat-struct idiom
// the teacher itself uses for its own message model
// (internal/types/types.go's ContentBlock), since Go has no native
// sum types and the teacher never reaches for one.
package canonical

import "encoding/json"

// MessageType is one of the three canonical message kinds.
type MessageType string

const (
	TypeUser      MessageType = "user"
	TypeAssistant MessageType = "assistant"
	TypeMeta      MessageType = "meta"
)

// Role is the speaker of a MessageContent.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType enumerates the kinds ContentBlock can hold.
type BlockType string

const (
	BlockText             BlockType = "text"
	BlockToolUse          BlockType = "tool_use"
	BlockToolResult       BlockType = "tool_result"
	BlockThinking         BlockType = "thinking"
	BlockRedactedThinking BlockType = "redacted_reasoning"
)

// ContentBlock is a single typed block within structured message
// content. Only the fields relevant to Type are populated; this flat
// shape (rather than a Go sum type) mirrors the teacher's own
// ContentBlock in internal/types/types.go. IsError is a *bool so that
// `false` stays a meaningful, present value distinct from "absent":
// `omitempty` drops only a nil pointer, never an explicit false.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// BlockToolResult
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`

	// BlockThinking / BlockRedactedThinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ContentValue holds either plain text or an ordered sequence of
// typed blocks, mirroring the Rust `ContentValue` untagged enum.
// Exactly one of Text or Blocks is meaningful; IsStructured reports
// which. Custom (Un)MarshalJSON make this behave like Rust's
// `#[serde(untagged)]` field at the wire level: a JSON string decodes
// to Text, a JSON array decodes to Blocks.
type ContentValue struct {
	Text       string
	Blocks     []ContentBlock
	structured bool
}

// NewTextContent builds a plain-text ContentValue.
func NewTextContent(text string) ContentValue {
	return ContentValue{Text: text}
}

// NewStructuredContent builds a block-sequence ContentValue.
func NewStructuredContent(blocks []ContentBlock) ContentValue {
	return ContentValue{Blocks: blocks, structured: true}
}

// IsStructured reports whether this value holds blocks rather than text.
func (c ContentValue) IsStructured() bool { return c.structured }

func (c ContentValue) MarshalJSON() ([]byte, error) {
	if c.structured {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

func (c *ContentValue) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		c.Text = asString
		c.Blocks = nil
		c.structured = false
		return nil
	}
	var asBlocks []ContentBlock
	if err := json.Unmarshal(data, &asBlocks); err != nil {
		return err
	}
	c.Blocks = asBlocks
	c.Text = ""
	c.structured = true
	return nil
}

// TokenUsage carries token accounting, present only on assistant messages.
type TokenUsage struct {
	InputTokens              *int `json:"input_tokens,omitempty"`
	OutputTokens             *int `json:"output_tokens,omitempty"`
	CacheCreationInputTokens *int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int `json:"cache_read_input_tokens,omitempty"`
}

// MessageContent is the inner `message` object of a CanonicalMessage.
type MessageContent struct {
	Role    Role          `json:"role"`
	Content ContentValue  `json:"content"`
	Model   string        `json:"model,omitempty"`
	Usage   *TokenUsage   `json:"usage,omitempty"`
}

// Message is the central schema of the whole system: every provider
// parser emits a stream of these, and every downstream component
// (canonical store, watcher, catalog, upload queue) is written
// exclusively against this type.
type Message struct {
	UUID      string      `json:"uuid"`
	Timestamp string      `json:"timestamp"`
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Provider  string      `json:"provider"`

	Cwd       string `json:"cwd,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`
	Version   string `json:"version,omitempty"`

	ParentUUID  string `json:"parent_uuid,omitempty"`
	IsSidechain *bool  `json:"is_sidechain,omitempty"`
	UserType    string `json:"user_type,omitempty"`
	IsMeta      *bool  `json:"is_meta,omitempty"`
	RequestID   string `json:"request_id,omitempty"`

	Message MessageContent `json:"message"`

	ProviderMetadata json.RawMessage `json:"provider_metadata,omitempty"`
	ToolUseResult    json.RawMessage `json:"tool_use_result,omitempty"`
}

// Valid reports whether m satisfies the universal invariants of §3:
// non-empty uuid, timestamp, session_id, provider, and (when the
// message carries a tool_result block) non-empty content on every
// such block.
func (m *Message) Valid() bool {
	if m.UUID == "" || m.Timestamp == "" || m.SessionID == "" || m.Provider == "" {
		return false
	}
	if m.Message.Content.IsStructured() {
		for _, b := range m.Message.Content.Blocks {
			if b.Type == BlockToolResult && len(b.Content) == 0 {
				return false
			}
		}
	}
	return true
}

// FixEmptyToolResults rewrites any tool_result block with empty
// content to the literal placeholder "(no output)", per spec §4.2.1
// step 4 / §3's invariant. It mutates blocks in place.
func (m *Message) FixEmptyToolResults() {
	if !m.Message.Content.IsStructured() {
		return
	}
	placeholder, _ := json.Marshal("(no output)")
	for i := range m.Message.Content.Blocks {
		b := &m.Message.Content.Blocks[i]
		if b.Type == BlockToolResult && (len(b.Content) == 0 || string(b.Content) == "null" || string(b.Content) == `""`) {
			b.Content = placeholder
		}
	}
}
