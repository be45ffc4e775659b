package claude

import (
	"encoding/json"
	"strings"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
)

const ProviderName = "claude-code"

// shouldFilter mirrors claude/converter.rs's should_filter: drop
// file-history-snapshot, summary, queue-operation, and system lines
// carrying one of the housekeeping subtypes. Everything else is
// conversational.
func shouldFilter(e Entry) bool {
	switch e.Type {
	case "file-history-snapshot", "summary", "queue-operation":
		return true
	case "system":
		switch e.Subtype {
		case "compact_boundary", "informational", "compaction":
			return true
		}
	}
	return false
}

func mapMessageType(e Entry) (canonical.MessageType, bool) {
	switch e.Type {
	case "user":
		return canonical.TypeUser, true
	case "assistant":
		return canonical.TypeAssistant, true
	case "system":
		return canonical.TypeMeta, true
	default:
		return "", false
	}
}

// Converter implements canonical.Converter[Entry].
type Converter struct{}

func (Converter) ProviderName() string { return ProviderName }

// ToCanonical converts a single decoded line, following
// claude/converter.rs step by step: filter housekeeping lines,
// extract required fields, map type, convert message content, fix up
// empty tool_result blocks, strip a null/"null" parentUuid.
func (Converter) ToCanonical(e Entry) (*canonical.Message, error) {
	if shouldFilter(e) {
		return nil, nil
	}
	msgType, ok := mapMessageType(e)
	if !ok {
		return nil, nil
	}
	if e.UUID == "" {
		return nil, guideerr.New(guideerr.KindValidation, "claude entry missing uuid")
	}
	if e.Timestamp == "" {
		return nil, guideerr.New(guideerr.KindValidation, "claude entry missing timestamp")
	}
	if e.SessionID == "" {
		return nil, guideerr.New(guideerr.KindValidation, "claude entry missing sessionId")
	}

	var content canonical.MessageContent
	if len(e.Message) > 0 {
		var err error
		content, err = convertMessagePayload(e.Message)
		if err != nil {
			return nil, guideerr.Wrap(guideerr.KindJSON, "decode claude message payload", err)
		}
	}

	m := &canonical.Message{
		UUID:          e.UUID,
		Timestamp:     e.Timestamp,
		Type:          msgType,
		SessionID:     e.SessionID,
		Provider:      ProviderName,
		Cwd:           e.Cwd,
		GitBranch:     e.GitBranch,
		Version:       e.Version,
		UserType:      e.UserType,
		ParentUUID:    normalizeParentUUID(e.ParentUUID),
		Message:       content,
		ToolUseResult: e.ToolUseResult,
	}
	if e.IsSidechain {
		t := true
		m.IsSidechain = &t
	}
	if e.IsMeta {
		t := true
		m.IsMeta = &t
	}
	m.ProviderMetadata = extraProviderFields(e.Raw)
	m.FixEmptyToolResults()
	return m, nil
}

// knownTopLevelKeys are the JSON keys Entry already models explicitly;
// anything else in a raw line is Claude Code bookkeeping the canonical
// schema has no field for (e.g. "requestId", "leafUuid").
var knownTopLevelKeys = map[string]bool{
	"type": true, "uuid": true, "timestamp": true, "sessionId": true,
	"parentUuid": true, "version": true, "cwd": true, "gitBranch": true,
	"isSidechain": true, "userType": true, "subtype": true, "isMeta": true,
	"message": true, "toolUseResult": true,
}

// extraProviderFields preserves whatever top-level keys of raw Entry
// doesn't model into Message.ProviderMetadata, per spec §3's
// provider_metadata passthrough. Returns nil when raw is empty or
// carries nothing beyond the modeled fields, so the omitempty JSON tag
// drops it rather than emitting "{}".
func extraProviderFields(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil
	}
	for k := range knownTopLevelKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil
	}
	out, err := json.Marshal(all)
	if err != nil {
		return nil
	}
	return out
}

// normalizeParentUUID strips `parentUuid` when it is JSON null or the
// literal string "null", per claude/converter.rs step 6.
func normalizeParentUUID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	if s == "" || s == "null" {
		return ""
	}
	return s
}

func convertMessagePayload(raw json.RawMessage) (canonical.MessageContent, error) {
	var p messagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return canonical.MessageContent{}, err
	}
	content, err := convertContent(p.Content)
	if err != nil {
		return canonical.MessageContent{}, err
	}
	mc := canonical.MessageContent{
		Role:    canonical.Role(p.Role),
		Content: content,
		Model:   p.Model,
	}
	if p.Usage != nil {
		mc.Usage = &canonical.TokenUsage{
			InputTokens:              p.Usage.InputTokens,
			OutputTokens:             p.Usage.OutputTokens,
			CacheCreationInputTokens: p.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     p.Usage.CacheReadInputTokens,
		}
	}
	return mc, nil
}

func convertContent(raw json.RawMessage) (canonical.ContentValue, error) {
	if len(raw) == 0 {
		return canonical.NewTextContent(""), nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return canonical.ContentValue{}, err
		}
		return canonical.NewTextContent(s), nil
	}

	var blocks []contentBlockPayload
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return canonical.ContentValue{}, err
	}
	out := make([]canonical.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, canonical.ContentBlock{
			Type:      canonical.BlockType(b.Type),
			Text:      b.Text,
			ID:        b.ID,
			Name:      b.Name,
			Input:     b.Input,
			ToolUseID: b.ToolUseID,
			Content:   b.Content,
			IsError:   b.IsError,
			Thinking:  b.Thinking,
			Signature: b.Signature,
		})
	}
	return canonical.NewStructuredContent(out), nil
}
