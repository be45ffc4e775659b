package opencode

import (
	"encoding/json"
	"time"

	"guideai/internal/canonical"
)

// messageToCanonical assembles one canonical message from a message
// record and its parts, already ordered by Index. Grounded in spec
// §4.2.4: "orders parts by their declared index, maps parts to
// canonical blocks (text, tool_use, tool_result)".
func messageToCanonical(sessionID, cwd string, msg messageRecord, parts []partRecord) *canonical.Message {
	msgType, role, ok := mapRole(msg.Role)
	if !ok {
		return nil
	}

	var content canonical.ContentValue
	if len(parts) == 1 && parts[0].Type == "text" {
		content = canonical.NewTextContent(parts[0].Text)
	} else {
		content = canonical.NewStructuredContent(partsToBlocks(parts))
	}

	m := &canonical.Message{
		UUID:      msg.ID,
		Timestamp: time.UnixMilli(msg.Time.Created).UTC().Format(time.RFC3339Nano),
		Type:      msgType,
		SessionID: sessionID,
		Provider:  ProviderName,
		Cwd:       cwd,
		Message: canonical.MessageContent{
			Role:    role,
			Content: content,
		},
	}
	if msgType == canonical.TypeAssistant && msg.ModelID != "" {
		m.Message.Model = msg.ModelID
	}
	m.FixEmptyToolResults()
	return m
}

func mapRole(role string) (canonical.MessageType, canonical.Role, bool) {
	switch role {
	case "user":
		return canonical.TypeUser, canonical.RoleUser, true
	case "assistant":
		return canonical.TypeAssistant, canonical.RoleAssistant, true
	default:
		return "", "", false
	}
}

// partsToBlocks maps part records (text/tool/reasoning) onto
// canonical content blocks. A "tool" part carries both the call and
// its result in one record (OpenCode doesn't split them the way
// Claude or Cursor do), so it is emitted as a tool_use block, followed
// by a tool_result block sharing the same ToolCallID when the part has
// output or an isError flag.
func partsToBlocks(parts []partRecord) []canonical.ContentBlock {
	out := make([]canonical.ContentBlock, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, canonical.ContentBlock{Type: canonical.BlockText, Text: p.Text})
		case "tool":
			out = append(out, canonical.ContentBlock{
				Type: canonical.BlockToolUse, ID: p.ToolCallID, Name: p.ToolName, Input: p.Input,
			})
			if p.Output != "" || p.IsError != nil {
				content, _ := json.Marshal(p.Output)
				out = append(out, canonical.ContentBlock{
					Type: canonical.BlockToolResult, ToolUseID: p.ToolCallID, Content: content, IsError: p.IsError,
				})
			}
		case "reasoning":
			out = append(out, canonical.ContentBlock{Type: canonical.BlockThinking, Thinking: p.Text})
		}
	}
	return out
}
