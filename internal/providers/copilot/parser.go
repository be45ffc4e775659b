package copilot

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
	"guideai/internal/store"
)

var log = logging.For("github-copilot")

// cwdScanLimit bounds how many leading events InferCwd examines,
// matching spec §4.2.3's "first N messages" without scanning an
// entire long-running session for a value it's unlikely to find past
// the first few turns.
const cwdScanLimit = 20

// SessionResult is one parsed Copilot session.
type SessionResult struct {
	SessionID   string
	Cwd         string
	ProjectName string
	Messages    []canonical.Message
}

// ParseFile reads one {uuid}.jsonl session file, infers cwd, and
// converts every event to a canonical message in file order.
func ParseFile(path string, trustedFolders []string) (SessionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return SessionResult{}, guideerr.Wrap(guideerr.KindIO, "open copilot session file", err)
	}
	defer f.Close()

	sessionID := strings.TrimSuffix(filepath.Base(path), ".jsonl")

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	var events []Event
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			log.Debug().Err(err).Msg("skipping malformed copilot event")
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return SessionResult{}, guideerr.Wrap(guideerr.KindIO, "scan copilot session file", err)
	}

	cwd := InferCwd(events, trustedFolders, cwdScanLimit)

	var messages []canonical.Message
	for i, e := range events {
		msg, err := eventToCanonical(i, sessionID, cwd, e)
		if err != nil {
			return SessionResult{}, err
		}
		messages = append(messages, *msg)
	}

	projectName := ""
	if cwd != "" {
		projectName = filepath.Base(cwd)
	}

	log.Debug().Str("session_id", sessionID).Int("messages", len(messages)).Msg("parsed copilot session")
	return SessionResult{SessionID: sessionID, Cwd: cwd, ProjectName: projectName, Messages: messages}, nil
}

// ScanSessionsFiltered walks {homeDirectory} for *.jsonl session files
// and parses each, dropping sessions whose project is not admitted by
// selection and sessions whose cwd could not be inferred at all
// (spec §4.2: fail the session rather than cache to an "unknown"
// bucket).
func ScanSessionsFiltered(homeDirectory string, trustedFolders []string, shouldInclude func(projectName string) bool) ([]SessionResult, error) {
	entries, err := os.ReadDir(homeDirectory)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "read copilot session-state directory", err)
	}

	var results []SessionResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(homeDirectory, e.Name())
		res, err := ParseFile(path, trustedFolders)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to parse copilot session")
			continue
		}
		if res.ProjectName == "" {
			continue
		}
		if shouldInclude != nil && !shouldInclude(res.ProjectName) {
			continue
		}
		results = append(results, res)
	}
	log.Info().Int("count", len(results)).Msg("copilot scan complete")
	return results, nil
}

// WriteCanonical persists a scan result to the canonical store.
func WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return store.Write(sessionsRoot, ProviderName, res.ProjectName, res.SessionID, res.Messages)
}
