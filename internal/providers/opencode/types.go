// Package opencode parses OpenCode's sharded session storage, per
// spec §4.2.4: a project/ index, a session/ file per session, and
// message/ + part/ directories holding fragmented content addressed
// by (session_id, message_id, part_id). The concrete per-file JSON
// shapes below are this package's own reasoned reconstruction — the
// retrieved original_source/src-tauri/src/providers/opencode tree
// only carries mod.rs and scanner.rs (project discovery and the
// scan/write driver); the OpenCodeParser that actually reads
// project/session/message/part JSON was never retrieved into the
// pack. The shape here is the minimal one spec §4.2.4's own prose
// implies, following the same resolution strategy documented for
// Codex's event_msg Open Question in spec §9.
package opencode

import "encoding/json"

// ProviderName is the stable provider token used in canonical output.
const ProviderName = "opencode"

// projectRecord is one storage/project/{id}.json file.
type projectRecord struct {
	ID       string `json:"id"`
	Worktree string `json:"worktree"`
	Time     struct {
		Created     int64 `json:"created,omitempty"`
		Initialized int64 `json:"initialized,omitempty"`
		Updated     int64 `json:"updated,omitempty"`
	} `json:"time"`
}

// sessionRecord is one storage/session/{id}.json file.
type sessionRecord struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectID"`
	Title     string `json:"title,omitempty"`
	Time      struct {
		Created int64 `json:"created"`
		Updated int64 `json:"updated,omitempty"`
	} `json:"time"`
}

// messageRecord is one storage/message/{sessionID}/{id}.json file.
type messageRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	Role      string `json:"role"` // "user" | "assistant"
	ModelID   string `json:"modelID,omitempty"`
	Time      struct {
		Created int64 `json:"created"`
	} `json:"time"`
}

// partRecord is one storage/part/{sessionID}/{messageID}/{id}.json
// file: the smallest fragment the parser reassembles, ordered within
// its message by Index.
type partRecord struct {
	ID         string          `json:"id"`
	MessageID  string          `json:"messageID"`
	SessionID  string          `json:"sessionID"`
	Index      int             `json:"index"`
	Type       string          `json:"type"` // "text" | "tool" | "reasoning"
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"toolCallID,omitempty"`
	ToolName   string          `json:"tool,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     string          `json:"output,omitempty"`
	IsError    *bool           `json:"isError,omitempty"`
}
