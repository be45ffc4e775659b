package cursor

import (
	"encoding/json"

	"guideai/internal/canonical"
)

// blobToMessage turns one decoded blob into a canonical message. The
// uuid is the row's blob id; index (the row's position) is not used in
// the uuid.
func blobToMessage(id string, index int, sessionID, cwd, timestamp string, decoded DecodedBlob) *canonical.Message {
	uuid := id
	switch decoded.Kind {
	case KindUserText:
		return &canonical.Message{
			UUID:      uuid,
			Timestamp: timestamp,
			Type:      canonical.TypeUser,
			SessionID: sessionID,
			Provider:  ProviderName,
			Cwd:       cwd,
			Message: canonical.MessageContent{
				Role:    canonical.RoleUser,
				Content: canonical.NewTextContent(decoded.Text),
			},
		}

	case KindAssistantText:
		return &canonical.Message{
			UUID:      uuid,
			Timestamp: timestamp,
			Type:      canonical.TypeAssistant,
			SessionID: sessionID,
			Provider:  ProviderName,
			Cwd:       cwd,
			Message: canonical.MessageContent{
				Role:    canonical.RoleAssistant,
				Content: canonical.NewTextContent(decoded.Text),
			},
		}

	case KindJSON:
		return jsonBlobToMessage(uuid, sessionID, cwd, timestamp, decoded.JSON)

	case KindComplex:
		return complexBlobToMessage(uuid, sessionID, cwd, timestamp, decoded.JSON)

	case KindTreeReference:
		return nil
	}
	return nil
}

// complexBlobToMessage builds a canonical message from a decoded
// protobuf Field-4 complex-message payload (spec §4.2.6 kind 3).
// Complex messages carry tool calls, tool results, and reasoning, all
// assistant-side content; role defaults to assistant when the payload
// omits one.
func complexBlobToMessage(uuid, sessionID, cwd, timestamp string, raw json.RawMessage) *canonical.Message {
	var payload complexFieldPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	role := canonical.Role(payload.Role)
	if role == "" {
		role = canonical.RoleAssistant
	}
	msgType := canonical.TypeAssistant
	if role == canonical.RoleUser {
		msgType = canonical.TypeUser
	}

	m := &canonical.Message{
		UUID:      uuid,
		Timestamp: timestamp,
		Type:      msgType,
		SessionID: sessionID,
		Provider:  ProviderName,
		Cwd:       cwd,
		Message: canonical.MessageContent{
			Role:    role,
			Content: canonical.NewStructuredContent(complexBlocksToCanonical(payload.Content)),
		},
	}
	m.FixEmptyToolResults()
	return m
}

func jsonBlobToMessage(uuid, sessionID, cwd, timestamp string, raw json.RawMessage) *canonical.Message {
	var payload jsonMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	role := canonical.Role(payload.Role)
	msgType := canonical.TypeUser
	if role == canonical.RoleAssistant {
		msgType = canonical.TypeAssistant
	}

	var content canonical.ContentValue
	if len(payload.Blocks) > 0 {
		content = canonical.NewStructuredContent(complexBlocksToCanonical(payload.Blocks))
	} else {
		content = canonical.NewTextContent(payload.Text)
	}

	m := &canonical.Message{
		UUID:      uuid,
		Timestamp: timestamp,
		Type:      msgType,
		SessionID: sessionID,
		Provider:  ProviderName,
		Cwd:       cwd,
		Message: canonical.MessageContent{
			Role:    role,
			Content: content,
		},
	}
	m.FixEmptyToolResults()
	return m
}

// complexBlocksToCanonical maps kind-3 complex-message blocks (spec
// §4.2.6) onto the canonical block types.
func complexBlocksToCanonical(blocks []complexBlock) []canonical.ContentBlock {
	out := make([]canonical.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, canonical.ContentBlock{Type: canonical.BlockText, Text: b.Text})
		case "tool_call":
			out = append(out, canonical.ContentBlock{
				Type:  canonical.BlockToolUse,
				ID:    b.ToolCallID,
				Name:  b.ToolName,
				Input: json.RawMessage(b.Args),
			})
		case "tool_result":
			content, _ := json.Marshal(b.Output)
			out = append(out, canonical.ContentBlock{
				Type:      canonical.BlockToolResult,
				ToolUseID: b.ToolCallID,
				Content:   content,
				IsError:   b.IsError,
			})
		case "redacted_reasoning":
			out = append(out, canonical.ContentBlock{Type: canonical.BlockThinking, Thinking: b.RedactedData})
		}
	}
	return out
}
