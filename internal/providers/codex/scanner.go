package codex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
	"guideai/internal/store"
)

var log = logging.For("codex")

// ScanResult is what ParseFile produces: a complete canonical
// conversion of one session file (spec §8 invariant 2: the scanner and
// the Aggregator must agree on the same terminal file). The Aggregator
// emits individual canonical messages, not a ScanResult.
type ScanResult struct {
	SessionID   string
	Cwd         string
	ProjectName string
	Messages    []canonical.Message
}

// ParseFile is the scanner path (§4.2.2): offline reprocessing of a
// complete, already-final file. It reads session_meta from the first
// line for id/cwd, then converts every response_item 1-to-1 — no
// aggregation needed because the file on disk is already assembled.
// Grounded in providers/codex/scanner.rs::parse_codex_session,
// including its S2 fixture (a 2-line file: session_meta then a single
// response_item), reproduced in scanner_test.go.
func ParseFile(path string) (ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, guideerr.Wrap(guideerr.KindIO, "open codex session file", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	var meta *SessionMetaPayload
	var sessionID, cwd string
	var messages []canonical.Message
	lineIndex := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lineIndex++

		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			log.Debug().Err(err).Int("line", lineIndex).Msg("skipping malformed codex line")
			continue
		}

		switch entry.Type {
		case KindSessionMeta:
			var sm SessionMetaPayload
			if err := json.Unmarshal(entry.Payload, &sm); err != nil {
				continue
			}
			meta = &sm
			sessionID = sm.ID
			cwd = sm.Cwd

		case KindResponseItem:
			var item ResponseItemPayload
			if err := json.Unmarshal(entry.Payload, &item); err != nil {
				continue
			}
			uuid := item.ID
			if uuid == "" {
				uuid = fmt.Sprintf("%s-line-%d", sessionID, lineIndex)
			}
			msg, err := itemToCanonical(uuid, entry.Timestamp, sessionID, cwd, item)
			if err != nil || msg == nil {
				continue
			}
			messages = append(messages, *msg)

		case KindEventMsg:
			// A fully-final file never carries leftover event_msg
			// fragments; if one appears here (e.g. a truncated live
			// capture), the scanner ignores it rather than guessing.
		}
	}
	if err := scanner.Err(); err != nil {
		return ScanResult{}, guideerr.Wrap(guideerr.KindIO, "scan codex session file", err)
	}
	if meta == nil {
		return ScanResult{}, guideerr.New(guideerr.KindValidation, "codex session missing session_meta")
	}

	projectName := filepath.Base(cwd)
	log.Debug().Str("session_id", sessionID).Int("messages", len(messages)).Msg("parsed codex session")

	return ScanResult{SessionID: sessionID, Cwd: cwd, ProjectName: projectName, Messages: messages}, nil
}

// ScanSessionsFiltered walks {homeDirectory} for *.jsonl files
// (Codex's YYYY/MM/DD tree) and parses each, dropping sessions whose
// project is not admitted by selection — filtering happens before any
// canonical write, per spec §4.3, mirroring
// scanner.rs::scan_sessions_filtered's selected_projects short-circuit.
func ScanSessionsFiltered(homeDirectory string, shouldInclude func(projectName string) bool) ([]ScanResult, error) {
	var files []string
	err := filepath.WalkDir(homeDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "walk codex sessions directory", err)
	}

	var results []ScanResult
	for _, path := range files {
		res, err := ParseFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to parse codex session")
			continue
		}
		if shouldInclude != nil && !shouldInclude(res.ProjectName) {
			continue
		}
		results = append(results, res)
	}
	log.Info().Int("count", len(results)).Msg("codex scan complete")
	return results, nil
}

// WriteCanonical persists a scan result to the canonical store.
func WriteCanonical(sessionsRoot string, res ScanResult) (string, error) {
	return store.Write(sessionsRoot, ProviderName, res.ProjectName, res.SessionID, res.Messages)
}
