package claude

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
)

const (
	initialBufSize = 64 * 1024
	maxBufSize     = 10 * 1024 * 1024
)

// readLines reads a JSONL file into raw lines using the teacher's
// large-buffer bufio.Scanner idiom (internal/watcher/watcher.go), sized
// up front because Claude Code lines can carry base64 image payloads
// far past bufio's default 64KiB token limit.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, initialBufSize), maxBufSize)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func decodeEntry(line string) (Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return Entry{}, err
	}
	e.Raw = json.RawMessage(line)
	return e, nil
}

// ParseSession reads the main session file at path and splices in any
// agent sidechain files it references, returning canonical messages in
// final document order. This is the "scanner path" for a complete
// file; it is also what the watcher calls on each observed delta,
// since Claude Code rewrites the whole line on append (no streaming
// fragments to aggregate, unlike Codex).
//
// Grounded line-for-line in
// original_source/src-tauri/src/providers/common/agent_merger.rs:
// for every retained line whose toolUseResult.agentId is present,
// read sibling agent-{id}.jsonl, convert it the same way, and splice
// its lines in immediately after the triggering line. A missing agent
// file (still being written) is tolerated, not an error.
func ParseSession(path, expectedSessionID string) ([]canonical.Message, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "read claude session file", err)
	}

	conv := Converter{}
	dir := filepath.Dir(path)
	seenAgents := map[string]bool{}

	var out []canonical.Message
	for _, line := range lines {
		entry, err := decodeEntry(line)
		if err != nil {
			// A single malformed line is logged and skipped; the
			// session still completes (spec §7 propagation policy).
			log.Debug().Err(err).Str("path", path).Msg("skipping malformed claude line")
			continue
		}

		msg, err := conv.ToCanonical(entry)
		if err != nil {
			continue
		}
		if msg != nil {
			out = append(out, *msg)
		}

		if agentID := peekAgentID(entry.ToolUseResult); agentID != "" && !seenAgents[agentID] {
			seenAgents[agentID] = true
			agentMsgs, err := loadAgentMessages(dir, agentID, expectedSessionID)
			if err == nil {
				out = append(out, agentMsgs...)
			}
			// Missing/mismatched agent files are tolerated: live
			// capture may not have flushed the sidechain file yet.
		}
	}
	return out, nil
}

// loadAgentMessages reads agent-{agentID}.jsonl from the same
// directory as the main session file, guards against the file
// referencing a different session (or itself, per spec §9's cycle
// guard), and converts its lines the same way as the main file.
func loadAgentMessages(dir, agentID, expectedSessionID string) ([]canonical.Message, error) {
	path := filepath.Join(dir, "agent-"+agentID+".jsonl")
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	first, err := decodeEntry(lines[0])
	if err != nil {
		return nil, err
	}
	if first.SessionID != "" && first.SessionID != expectedSessionID {
		return nil, guideerr.New(guideerr.KindValidation, "agent file sessionId mismatch")
	}

	conv := Converter{}
	var out []canonical.Message
	for _, line := range lines {
		entry, err := decodeEntry(line)
		if err != nil {
			continue
		}
		if refID := peekAgentID(entry.ToolUseResult); refID == agentID {
			// Defensive guard per spec §9: an agent file must never
			// reference itself. The relationship is a tree, so a line
			// inside agent-{agentID}.jsonl whose own toolUseResult
			// points back at agentID is a self-cycle; reject the whole
			// splice rather than recurse into it.
			return nil, guideerr.New(guideerr.KindValidation, "agent file references itself")
		}
		msg, err := conv.ToCanonical(entry)
		if err != nil || msg == nil {
			continue
		}
		out = append(out, *msg)
	}
	return out, nil
}

// IsAgentFile reports whether filename is a sidechain file, per
// agent_merger.rs::is_agent_file.
func IsAgentFile(filename string) bool {
	return strings.HasPrefix(filename, "agent-") && strings.HasSuffix(filename, ".jsonl")
}
