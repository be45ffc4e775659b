package opencode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
	"guideai/internal/store"
)

var log = logging.For("opencode")

// SessionResult is one parsed OpenCode session.
type SessionResult struct {
	SessionID   string
	Cwd         string
	ProjectName string
	Messages    []canonical.Message
}

// ScanSessionsFiltered walks {homeDirectory}/storage (OpenCode's
// sharded project/session/message/part tree — spec §4.2.4) and
// reassembles every session, dropping sessions whose project is not
// admitted by selection, per scanner.rs::scan_sessions_filtered's
// project-then-session iteration order.
func ScanSessionsFiltered(homeDirectory string, shouldInclude func(projectName string) bool) ([]SessionResult, error) {
	storageDir := filepath.Join(homeDirectory, "storage")
	if _, err := os.Stat(storageDir); os.IsNotExist(err) {
		return nil, nil
	}

	projects, err := readProjects(storageDir)
	if err != nil {
		return nil, err
	}

	sessions, err := readSessions(storageDir)
	if err != nil {
		return nil, err
	}

	var results []SessionResult
	for _, sess := range sessions {
		proj, ok := projects[sess.ProjectID]
		if !ok {
			log.Debug().Str("session_id", sess.ID).Msg("opencode session has no matching project, skipping")
			continue
		}
		projectName := filepath.Base(proj.Worktree)
		if projectName == "" || projectName == "." || projectName == "/" {
			continue
		}
		if shouldInclude != nil && !shouldInclude(projectName) {
			continue
		}

		res, err := parseSession(storageDir, sess, proj)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to parse opencode session")
			continue
		}
		results = append(results, res)
	}
	log.Info().Int("count", len(results)).Msg("opencode scan complete")
	return results, nil
}

func parseSession(storageDir string, sess sessionRecord, proj projectRecord) (SessionResult, error) {
	msgDir := filepath.Join(storageDir, "message", sess.ID)
	entries, err := os.ReadDir(msgDir)
	if err != nil {
		if os.IsNotExist(err) {
			return SessionResult{SessionID: sess.ID, Cwd: proj.Worktree, ProjectName: filepath.Base(proj.Worktree)}, nil
		}
		return SessionResult{}, guideerr.Wrap(guideerr.KindIO, "read opencode message directory", err)
	}

	var msgs []messageRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(msgDir, e.Name()))
		if err != nil {
			continue
		}
		var m messageRecord
		if err := json.Unmarshal(data, &m); err != nil {
			log.Debug().Err(err).Str("file", e.Name()).Msg("skipping malformed opencode message")
			continue
		}
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Time.Created < msgs[j].Time.Created })

	var messages []canonical.Message
	for _, m := range msgs {
		parts, err := readParts(storageDir, sess.ID, m.ID)
		if err != nil {
			return SessionResult{}, err
		}
		canonicalMsg := messageToCanonical(sess.ID, proj.Worktree, m, parts)
		if canonicalMsg == nil {
			continue
		}
		messages = append(messages, *canonicalMsg)
	}

	return SessionResult{
		SessionID:   sess.ID,
		Cwd:         proj.Worktree,
		ProjectName: filepath.Base(proj.Worktree),
		Messages:    messages,
	}, nil
}

func readParts(storageDir, sessionID, messageID string) ([]partRecord, error) {
	partDir := filepath.Join(storageDir, "part", sessionID, messageID)
	entries, err := os.ReadDir(partDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, guideerr.Wrap(guideerr.KindIO, "read opencode part directory", err)
	}
	var parts []partRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(partDir, e.Name()))
		if err != nil {
			continue
		}
		var p partRecord
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Err(err).Str("file", e.Name()).Msg("skipping malformed opencode part")
			continue
		}
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Index < parts[j].Index })
	return parts, nil
}

func readProjects(storageDir string) (map[string]projectRecord, error) {
	dir := filepath.Join(storageDir, "project")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]projectRecord{}, nil
		}
		return nil, guideerr.Wrap(guideerr.KindIO, "read opencode project directory", err)
	}
	out := make(map[string]projectRecord, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var p projectRecord
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Err(err).Str("file", e.Name()).Msg("skipping malformed opencode project")
			continue
		}
		out[p.ID] = p
	}
	return out, nil
}

func readSessions(storageDir string) ([]sessionRecord, error) {
	dir := filepath.Join(storageDir, "session")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, guideerr.Wrap(guideerr.KindIO, "read opencode session directory", err)
	}
	var out []sessionRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var s sessionRecord
		if err := json.Unmarshal(data, &s); err != nil {
			log.Debug().Err(err).Str("file", e.Name()).Msg("skipping malformed opencode session")
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteCanonical persists a scan result to the canonical store.
func WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return store.Write(sessionsRoot, ProviderName, res.ProjectName, res.SessionID, res.Messages)
}
