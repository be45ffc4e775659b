package gemini

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
	"guideai/internal/store"
)

var log = logging.For("gemini-code")

// SessionResult is one parsed Gemini session.
type SessionResult struct {
	SessionID   string
	Cwd         string
	ProjectName string
	Messages    []canonical.Message
}

// ScanSessionsFiltered walks {homeDirectory}/tmp/{hash}/chats for
// session-*.json files, recovering each hash directory's cwd via the
// registry cache or, on a miss, the priority-ordered InferCwd scan
// (spec §4.2.5). A hash whose cwd cannot be recovered from any
// session is left unresolved and not cached — the watcher parks it
// and retries on the next change (spec §8 boundary behavior). Project
// filtering happens before any canonical write, per spec §4.3.
//
// This only mutates registry in memory; the caller persists it once
// (via registry.Save) after the scan completes, so a bulk scan over
// many hash directories writes the registry file at most once rather
// than once per directory.
func ScanSessionsFiltered(homeDirectory string, registry *Registry, shouldInclude func(projectName string) bool) ([]SessionResult, error) {
	tmpDir := filepath.Join(homeDirectory, "tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, guideerr.Wrap(guideerr.KindIO, "read gemini tmp directory", err)
	}

	var results []SessionResult

	for _, e := range entries {
		if !e.IsDir() || e.Name() == "bin" {
			continue
		}
		hash := e.Name()
		chatsDir := filepath.Join(tmpDir, hash, "chats")
		sessionFiles, err := listSessionFiles(chatsDir)
		if err != nil {
			continue
		}
		if len(sessionFiles) == 0 {
			continue
		}

		cwd, projectName, ok := resolveHash(hash, chatsDir, sessionFiles, registry)
		if !ok {
			log.Debug().Str("hash", hash).Msg("gemini hash has no recoverable cwd, parking")
			continue
		}
		if registry != nil {
			registry.Update(hash, cwd, projectName, time.Now())
		}

		if shouldInclude != nil && !shouldInclude(projectName) {
			continue
		}

		for _, path := range sessionFiles {
			res, err := parseSessionFile(path, hash, cwd)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to parse gemini session")
				continue
			}
			res.ProjectName = projectName
			results = append(results, res)
		}
	}

	log.Info().Int("count", len(results)).Msg("gemini scan complete")
	return results, nil
}

// resolveHash returns the cwd/project-name pair for a hash directory,
// preferring the registry cache and falling back to scanning its
// session files, mirroring gemini_utils.rs::scan_projects's
// registry-first lookup with resolve_project_info as the fallback.
func resolveHash(hash, chatsDir string, sessionFiles []string, registry *Registry) (cwd, projectName string, ok bool) {
	if registry != nil {
		if entry, found := registry.Get(hash); found {
			return entry.Cwd, entry.Name, true
		}
	}
	for _, path := range sessionFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		session, err := ParseSessionJSON(data)
		if err != nil || session.ProjectHash != hash {
			continue
		}
		if recovered, found := InferCwd(session, hash); found {
			name, err := ProjectNameFromCwd(recovered)
			if err != nil {
				continue
			}
			return recovered, name, true
		}
	}
	return "", "", false
}

func parseSessionFile(path, hash, cwd string) (SessionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionResult{}, guideerr.Wrap(guideerr.KindIO, "read gemini session file", err)
	}
	session, err := ParseSessionJSON(data)
	if err != nil {
		return SessionResult{}, guideerr.Wrap(guideerr.KindJSON, "parse gemini session file", err)
	}
	if session.SessionID == "" {
		return SessionResult{}, guideerr.New(guideerr.KindValidation, "gemini session missing sessionId")
	}

	var messages []canonical.Message
	for _, msg := range session.Messages {
		canonicalMsg := messageToCanonical(session.SessionID, cwd, msg)
		if canonicalMsg == nil {
			continue
		}
		messages = append(messages, *canonicalMsg)
	}

	return SessionResult{SessionID: session.SessionID, Cwd: cwd, Messages: messages}, nil
}

func listSessionFiles(chatsDir string) ([]string, error) {
	entries, err := os.ReadDir(chatsDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, filepath.Join(chatsDir, name))
	}
	return out, nil
}

// WriteCanonical persists a scan result to the canonical store.
func WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return store.Write(sessionsRoot, ProviderName, res.ProjectName, res.SessionID, res.Messages)
}
