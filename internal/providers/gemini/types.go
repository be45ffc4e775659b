// Package gemini parses Gemini Code's native session JSON and
// recovers the session's cwd from its SHA-256-hashed directory name,
// per spec §4.2.5. Grounded directly in
// original_source/src-tauri/src/providers/gemini_parser.rs (session
// JSON shape),
// original_source/src-tauri/src/providers/gemini_utils.rs (the
// priority-ordered cwd-recovery algorithm), and
// original_source/src-tauri/src/providers/gemini_registry.rs (the
// persisted hash-registry format).
package gemini

import "encoding/json"

// ProviderName is the stable provider token used in canonical output.
const ProviderName = "gemini-code"

// Session mirrors gemini_parser.rs::GeminiSession.
type Session struct {
	SessionID   string    `json:"sessionId"`
	ProjectHash string    `json:"projectHash"`
	StartTime   string    `json:"startTime"`
	LastUpdated string    `json:"lastUpdated"`
	Messages    []Message `json:"messages"`
}

// Message mirrors gemini_parser.rs::GeminiMessage. MessageType is
// "user" or "gemini" (mapped to canonical TypeAssistant).
type Message struct {
	ID          string     `json:"id"`
	Timestamp   string     `json:"timestamp"`
	MessageType string     `json:"type"`
	Content     string     `json:"content"`
	ToolCalls   []ToolCall `json:"toolCalls,omitempty"`
	Thoughts    []Thought  `json:"thoughts,omitempty"`
	Tokens      *TokenUsage `json:"tokens,omitempty"`
	Model       string     `json:"model,omitempty"`
}

// ToolCall mirrors gemini_parser.rs::ToolCall; Args/Result stay raw
// JSON because §4.2.5's cwd recovery only needs to walk specific
// argument keys (absolute_path, paths[], path), not fully typed tool
// schemas.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Status string          `json:"status,omitempty"`
}

// Thought mirrors gemini_parser.rs::Thought — extended-thinking
// descriptions are the priority-2 cwd recovery source.
type Thought struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// TokenUsage mirrors gemini_parser.rs::TokenUsage.
type TokenUsage struct {
	Input    int `json:"input"`
	Output   int `json:"output"`
	Cached   int `json:"cached"`
	Thoughts int `json:"thoughts"`
	Tool     int `json:"tool"`
	Total    int `json:"total"`
}

// ParseSessionJSON decodes one session-*.json file's contents.
func ParseSessionJSON(data []byte) (Session, error) {
	var s Session
	err := json.Unmarshal(data, &s)
	return s, err
}
