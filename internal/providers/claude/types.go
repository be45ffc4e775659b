// Package claude parses Claude Code's native JSONL session format,
// including the agent-sidechain splicing rule, into canonical
// messages. Grounded in the teacher's internal/types/jsonl.go (native
// schema) and internal/types/classifier.go (two-pass discriminator),
// generalized per original_source/src-tauri/src/providers/claude/converter.rs
// and providers/common/agent_merger.rs.
package claude

import "encoding/json"

// Entry is one decoded line of a Claude Code JSONL session file. Only
// the fields the converter needs are modeled explicitly; everything
// else rides along in Raw for provider_metadata passthrough.
type Entry struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid"`
	Timestamp   string          `json:"timestamp"`
	SessionID   string          `json:"sessionId"`
	ParentUUID  json.RawMessage `json:"parentUuid,omitempty"`
	Version     string          `json:"version,omitempty"`
	Cwd         string          `json:"cwd,omitempty"`
	GitBranch   string          `json:"gitBranch,omitempty"`
	IsSidechain bool            `json:"isSidechain,omitempty"`
	UserType    string          `json:"userType,omitempty"`

	// system-event discriminator
	Subtype string `json:"subtype,omitempty"`
	IsMeta  bool   `json:"isMeta,omitempty"`

	// user / assistant payload
	Message json.RawMessage `json:"message,omitempty"`

	// toolUseResult rides along raw; the converter only peeks at
	// `.agentId` (agent_merger.rs) and otherwise passes it through.
	ToolUseResult json.RawMessage `json:"toolUseResult,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// messagePayload is the shape of the `message` field for both user
// and assistant lines; role disambiguates which sub-fields apply.
type messagePayload struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Model   string          `json:"model,omitempty"`
	Usage   *usagePayload   `json:"usage,omitempty"`
}

type usagePayload struct {
	InputTokens              *int `json:"input_tokens,omitempty"`
	OutputTokens             *int `json:"output_tokens,omitempty"`
	CacheCreationInputTokens *int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int `json:"cache_read_input_tokens,omitempty"`
}

// contentBlockPayload is one element of a structured `content` array.
type contentBlockPayload struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// toolUseResultAgentID is the only field the converter needs from the
// toolUseResult blob, per agent_merger.rs's extract_agent_id_from_line.
type toolUseResultAgentID struct {
	AgentID string `json:"agentId,omitempty"`
}

func peekAgentID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var t toolUseResultAgentID
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return t.AgentID
}
