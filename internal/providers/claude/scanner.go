package claude

import (
	"os"
	"path/filepath"
	"strings"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
	"guideai/internal/store"
)

var log = logging.For("claude-code")

// SessionResult is one parsed Claude Code session: the main file plus
// any agent sidechains ParseSession has already spliced in.
type SessionResult struct {
	SessionID   string
	Cwd         string
	ProjectName string
	Messages    []canonical.Message
}

// ScanSessionsFiltered walks {homeDirectory}/** (the
// ~/.claude/projects/{encoded-folder}/ tree) for main session files,
// dropping sessions whose project is not admitted by selection.
// Agent sidechain files (agent-*.jsonl) are never scanned as top-level
// sessions — they are only ever read by ParseSession when a retained
// line references them (spec §4.2.1 step 5). Project name is derived
// from the first message's cwd rather than the encoded directory
// name, since the directory encoding is lossy (it cannot distinguish
// a literal `-` in a path segment from the separator); a session whose
// cwd never appears in any message has no derivable project name and
// is skipped outright rather than cached under an "unknown" bucket
// (spec §4.2).
func ScanSessionsFiltered(homeDirectory string, shouldInclude func(projectName string) bool) ([]SessionResult, error) {
	var results []SessionResult
	err := filepath.WalkDir(homeDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != homeDirectory && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".jsonl") || IsAgentFile(name) {
			return nil
		}

		sessionID := strings.TrimSuffix(name, ".jsonl")
		messages, err := ParseSession(path, sessionID)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to parse claude session")
			return nil
		}
		if len(messages) == 0 {
			return nil
		}

		cwd := firstCwd(messages)
		projectName := ""
		if cwd != "" {
			projectName = filepath.Base(filepath.Clean(cwd))
		}
		if projectName == "" {
			log.Debug().Str("session_id", sessionID).Msg("claude session has no recoverable cwd, skipping")
			return nil
		}
		if shouldInclude != nil && !shouldInclude(projectName) {
			return nil
		}

		results = append(results, SessionResult{
			SessionID:   sessionID,
			Cwd:         cwd,
			ProjectName: projectName,
			Messages:    messages,
		})
		return nil
	})
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "walk claude projects directory", err)
	}
	log.Info().Int("count", len(results)).Msg("claude scan complete")
	return results, nil
}

func firstCwd(messages []canonical.Message) string {
	for _, m := range messages {
		if m.Cwd != "" {
			return m.Cwd
		}
	}
	return ""
}

// WriteCanonical persists a scan result to the canonical store.
func WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return store.Write(sessionsRoot, ProviderName, res.ProjectName, res.SessionID, res.Messages)
}
