package codex

import (
	"guideai/internal/canonical"
	"guideai/internal/guideerr"
)

const ProviderName = "codex"

// itemToCanonical converts one already-finalized response_item into a
// CanonicalMessage, used identically by the scanner (§4.2.2, file
// already final) and by the Aggregator once a buffer reaches its
// terminal event. uuid is caller-supplied: the scanner passes the
// response_item payload's own id, and derives one from the line's
// position only when the payload has no id (in the S2 fixture the
// line-2 payload id "line2" becomes the message's uuid).
func itemToCanonical(uuid, timestamp, sessionID, cwd string, item ResponseItemPayload) (*canonical.Message, error) {
	msgType, ok := mapRole(item.Role)
	if !ok {
		return nil, nil
	}
	if uuid == "" || timestamp == "" || sessionID == "" {
		return nil, guideerr.New(guideerr.KindValidation, "codex response_item missing required field")
	}

	content := contentFromItems(item.Content)

	m := &canonical.Message{
		UUID:      uuid,
		Timestamp: timestamp,
		Type:      msgType,
		SessionID: sessionID,
		Provider:  ProviderName,
		Cwd:       cwd,
		Message: canonical.MessageContent{
			Role:    canonical.Role(item.Role),
			Content: content,
		},
	}
	m.FixEmptyToolResults()
	return m, nil
}

func mapRole(role string) (canonical.MessageType, bool) {
	switch role {
	case "user":
		return canonical.TypeUser, true
	case "assistant":
		return canonical.TypeAssistant, true
	default:
		return "", false
	}
}

// contentFromItems collapses a response_item's content array into
// plain text when it is a single input_text/output_text block (the
// common case, and what S2 expects), otherwise into structured blocks.
func contentFromItems(items []ResponseItemContent) canonical.ContentValue {
	if len(items) == 1 && (items[0].Type == "input_text" || items[0].Type == "output_text") {
		return canonical.NewTextContent(items[0].Text)
	}

	blocks := make([]canonical.ContentBlock, 0, len(items))
	for _, it := range items {
		switch it.Type {
		case "input_text", "output_text":
			blocks = append(blocks, canonical.ContentBlock{Type: canonical.BlockText, Text: it.Text})
		case "tool_use":
			blocks = append(blocks, canonical.ContentBlock{
				Type: canonical.BlockToolUse, ID: it.ToolID, Name: it.ToolName, Input: it.Input,
			})
		case "tool_result":
			blocks = append(blocks, canonical.ContentBlock{
				Type: canonical.BlockToolResult, ToolUseID: it.ToolID, Content: it.Input,
			})
		}
	}
	return canonical.NewStructuredContent(blocks)
}
