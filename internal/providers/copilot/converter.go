package copilot

import (
	"encoding/json"
	"fmt"

	"guideai/internal/canonical"
)

func mapRole(role string) (canonical.MessageType, canonical.Role) {
	switch role {
	case "assistant":
		return canonical.TypeAssistant, canonical.RoleAssistant
	default:
		return canonical.TypeUser, canonical.RoleUser
	}
}

// eventToCanonical converts one event to a canonical message. index
// gives each line a stable uuid, since Copilot events carry no id of
// their own.
func eventToCanonical(index int, sessionID, cwd string, e Event) (*canonical.Message, error) {
	msgType, role := mapRole(e.Role)

	var content canonical.ContentValue
	if len(e.ToolCalls) > 0 {
		blocks := make([]canonical.ContentBlock, 0, len(e.ToolCalls))
		for _, tc := range e.ToolCalls {
			blocks = append(blocks, canonical.ContentBlock{
				Type: canonical.BlockToolUse, ID: tc.ID, Name: tc.Name, Input: tc.Arguments,
			})
		}
		content = canonical.NewStructuredContent(blocks)
	} else {
		var text string
		if json.Unmarshal(e.Content, &text) != nil {
			text = string(e.Content)
		}
		content = canonical.NewTextContent(text)
	}

	m := &canonical.Message{
		UUID:      fmt.Sprintf("%s-%d", sessionID, index),
		Timestamp: e.Timestamp,
		Type:      msgType,
		SessionID: sessionID,
		Provider:  ProviderName,
		Cwd:       cwd,
		Message: canonical.MessageContent{
			Role:    role,
			Content: content,
			Model:   e.Model,
		},
	}
	m.FixEmptyToolResults()
	return m, nil
}
