package codex

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"guideai/internal/canonical"
)

// aggregatorKey is (response_id, logical_index), exactly the explicit
// state-map key spec §9 calls for instead of hidden coroutine state.
type aggregatorKey struct {
	responseID   string
	logicalIndex int
}

type buffer struct {
	role      string
	itemType  string
	sessionID string
	cwd       string
	timestamp string
	textParts []string
	toolName  string
	toolID    string
	input     []byte
}

// Aggregator is the live-watcher counterpart to the scanner: it joins
// streaming event_msg fragments into a single CanonicalMessage per
// key, used when the watcher observes a session as it's being
// written and has not yet seen the file's final response_item.
//
// Per spec §4.2.2: fragments buffer in insertion order under their
// key; a terminal event (explicit Final, or — because a response_item
// always supersedes any buffered fragments for the same key — the
// arrival of the matching response_item) assembles and emits one
// message, evicting the buffer; duplicate/superseded fragments emit
// nothing; at end-of-stream, Flush emits a best-effort message for
// any buffer that never reached a terminal event.
type Aggregator struct {
	mu        sync.Mutex
	buffers   map[aggregatorKey]*buffer
	finalized map[aggregatorKey]bool
	sessionID string
	cwd       string
}

// NewAggregator constructs an Aggregator for one session. sessionID
// and cwd come from that session's session_meta line.
func NewAggregator(sessionID, cwd string) *Aggregator {
	return &Aggregator{
		buffers:   make(map[aggregatorKey]*buffer),
		finalized: make(map[aggregatorKey]bool),
		sessionID: sessionID,
		cwd:       cwd,
	}
}

// IngestEventMsg buffers or finalizes one streaming fragment, returning
// a message only when this call's fragment is the terminal one for its
// key; a fragment for an already-finalized key returns nil.
func (a *Aggregator) IngestEventMsg(timestamp string, p EventMsgPayload) *canonical.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := aggregatorKey{responseID: p.ResponseID, logicalIndex: p.LogicalIndex}
	if a.finalized[key] {
		// Already superseded by a response_item or a prior terminal
		// fragment for this key: emit nothing.
		return nil
	}

	buf, ok := a.buffers[key]
	if !ok {
		buf = &buffer{role: p.Role, itemType: p.ItemType, sessionID: a.sessionID, cwd: a.cwd}
		a.buffers[key] = buf
	}
	if p.DeltaText != "" {
		buf.textParts = append(buf.textParts, p.DeltaText)
	}
	if p.ToolName != "" {
		buf.toolName = p.ToolName
	}
	if p.ToolID != "" {
		buf.toolID = p.ToolID
	}
	if len(p.Input) > 0 {
		buf.input = p.Input
	}
	buf.timestamp = timestamp

	if !p.Final {
		return nil
	}
	return a.finalize(key, buf)
}

// IngestResponseItem is called when the matching response_item
// arrives for a key the Aggregator may have been buffering fragments
// for; it always supersedes buffered fragments (spec §4.2.2) and
// emits the authoritative message instead.
func (a *Aggregator) IngestResponseItem(uuid, timestamp string, item ResponseItemPayload, key aggregatorKey) (*canonical.Message, error) {
	a.mu.Lock()
	delete(a.buffers, key)
	a.finalized[key] = true
	a.mu.Unlock()

	return itemToCanonical(uuid, timestamp, a.sessionID, a.cwd, item)
}

func (a *Aggregator) finalize(key aggregatorKey, buf *buffer) *canonical.Message {
	a.finalized[key] = true
	delete(a.buffers, key)
	return bufferToMessage(key, buf, a.sessionID, a.cwd)
}

// Flush emits a best-effort message for every buffer that never
// reached a terminal event, in ascending logical-index order within
// each response id, then clears all state. Called at end-of-stream.
func (a *Aggregator) Flush() []canonical.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys := make([]aggregatorKey, 0, len(a.buffers))
	for key := range a.buffers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].responseID != keys[j].responseID {
			return keys[i].responseID < keys[j].responseID
		}
		return keys[i].logicalIndex < keys[j].logicalIndex
	})

	var out []canonical.Message
	for _, key := range keys {
		if msg := bufferToMessage(key, a.buffers[key], a.sessionID, a.cwd); msg != nil {
			out = append(out, *msg)
		}
	}
	a.buffers = make(map[aggregatorKey]*buffer)
	return out
}

func bufferToMessage(key aggregatorKey, buf *buffer, sessionID, cwd string) *canonical.Message {
	msgType, ok := mapRole(buf.role)
	if !ok {
		return nil
	}
	text := strings.Join(buf.textParts, "")

	var content canonical.ContentValue
	if buf.itemType == "tool_use" {
		content = canonical.NewStructuredContent([]canonical.ContentBlock{{
			Type: canonical.BlockToolUse, ID: buf.toolID, Name: buf.toolName, Input: buf.input,
		}})
	} else {
		content = canonical.NewTextContent(text)
	}

	uuid := key.responseID
	if key.logicalIndex != 0 {
		uuid = uuidForFragment(key)
	}

	m := &canonical.Message{
		UUID:      uuid,
		Timestamp: buf.timestamp,
		Type:      msgType,
		SessionID: sessionID,
		Provider:  ProviderName,
		Cwd:       cwd,
		Message: canonical.MessageContent{
			Role:    canonical.Role(buf.role),
			Content: content,
		},
	}
	m.FixEmptyToolResults()
	return m
}

func uuidForFragment(key aggregatorKey) string {
	return key.responseID + "-" + strconv.Itoa(key.logicalIndex)
}
