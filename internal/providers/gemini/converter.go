package gemini

import (
	"encoding/json"

	"guideai/internal/canonical"
)

// messageToCanonical converts one Gemini message into a canonical
// message. messageType "user" maps to TypeUser/RoleUser; "gemini"
// maps to TypeAssistant/RoleAssistant (spec §3's role is binary, so
// Gemini's own "gemini" tag is normalized at this boundary).
func messageToCanonical(sessionID, cwd string, msg Message) *canonical.Message {
	msgType, role, ok := mapMessageType(msg.MessageType)
	if !ok {
		return nil
	}

	var content canonical.ContentValue
	if len(msg.ToolCalls) == 0 && len(msg.Thoughts) == 0 {
		content = canonical.NewTextContent(msg.Content)
	} else {
		content = canonical.NewStructuredContent(messageBlocks(msg))
	}

	m := &canonical.Message{
		UUID:      msg.ID,
		Timestamp: msg.Timestamp,
		Type:      msgType,
		SessionID: sessionID,
		Provider:  ProviderName,
		Cwd:       cwd,
		Message: canonical.MessageContent{
			Role:    role,
			Content: content,
			Model:   msg.Model,
			Usage:   usageFromTokens(msg.Tokens),
		},
	}
	m.FixEmptyToolResults()
	return m
}

func mapMessageType(t string) (canonical.MessageType, canonical.Role, bool) {
	switch t {
	case "user":
		return canonical.TypeUser, canonical.RoleUser, true
	case "gemini":
		return canonical.TypeAssistant, canonical.RoleAssistant, true
	default:
		return "", "", false
	}
}

func usageFromTokens(t *TokenUsage) *canonical.TokenUsage {
	if t == nil {
		return nil
	}
	in, out, cached := t.Input, t.Output, t.Cached
	return &canonical.TokenUsage{
		InputTokens:          &in,
		OutputTokens:         &out,
		CacheReadInputTokens: &cached,
	}
}

// messageBlocks renders thinking blocks (one per Thought) followed by
// the message's own text, then one tool_use block per ToolCall, each
// followed by a tool_result block when its Result is present.
func messageBlocks(msg Message) []canonical.ContentBlock {
	var blocks []canonical.ContentBlock
	for _, th := range msg.Thoughts {
		blocks = append(blocks, canonical.ContentBlock{Type: canonical.BlockThinking, Thinking: th.Description})
	}
	if msg.Content != "" {
		blocks = append(blocks, canonical.ContentBlock{Type: canonical.BlockText, Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, canonical.ContentBlock{
			Type: canonical.BlockToolUse, ID: tc.ID, Name: tc.Name, Input: tc.Args,
		})
		if len(tc.Result) > 0 {
			content, _ := json.Marshal(tc.Result)
			blocks = append(blocks, canonical.ContentBlock{
				Type: canonical.BlockToolResult, ToolUseID: tc.ID, Content: content,
			})
		}
	}
	return blocks
}
