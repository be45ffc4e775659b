// Package copilot parses GitHub Copilot's per-session event log
// (spec §4.2.3), recovering cwd by inference since Copilot never
// records it as a first-class field.
package copilot

import "encoding/json"

// ProviderName is the stable provider token used in canonical output.
const ProviderName = "github-copilot"

// Event is one line of a Copilot session-state JSONL file.
type Event struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	ToolCalls []toolCall      `json:"tool_calls,omitempty"`
	Model     string          `json:"model,omitempty"`
}

type toolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// toolCallArgPaths is the subset of argument shapes the cwd inference
// heuristic looks for (spec §4.2.3: "tool-call payloads").
type toolCallArgPaths struct {
	Path string `json:"path,omitempty"`
}
