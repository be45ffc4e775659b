package copilot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// absolutePathPattern finds candidate absolute filesystem paths inside
// free-form text (message prose) or JSON argument blobs.
var absolutePathPattern = regexp.MustCompile(`/[A-Za-z0-9_.\-/]+`)

// InferCwd derives a session's working directory by scanning its first
// N messages for absolute paths, per spec §4.2.3: first from tool-call
// argument payloads, then from message prose. If any configured
// "trusted folder" is a string prefix of a candidate path, it returns
// the longest such folder (no filesystem check is made); with no
// trusted-folder match it falls back to the first candidate's
// containing directory.
func InferCwd(events []Event, trustedFolders []string, scanLimit int) string {
	if scanLimit <= 0 || scanLimit > len(events) {
		scanLimit = len(events)
	}

	var candidates []string
	for _, e := range events[:scanLimit] {
		for _, tc := range e.ToolCalls {
			candidates = append(candidates, extractPathsFromArgs(tc.Arguments)...)
		}
		candidates = append(candidates, extractPathsFromContent(e.Content)...)
	}

	if best := longestTrustedPrefix(candidates, trustedFolders); best != "" {
		return best
	}
	for _, c := range candidates {
		return dirOf(c)
	}
	return ""
}

// extractPathsFromArgs pulls a "path" field out of a tool call's
// argument JSON when present, else scans the raw argument bytes for
// absolute paths (arguments vary by tool: some use "path", others
// "file_path" or embed a path in free text).
func extractPathsFromArgs(args json.RawMessage) []string {
	var p toolCallArgPaths
	if json.Unmarshal(args, &p) == nil && p.Path != "" {
		return []string{p.Path}
	}
	return absolutePathPattern.FindAllString(string(args), -1)
}

func extractPathsFromContent(content json.RawMessage) []string {
	var text string
	if json.Unmarshal(content, &text) != nil {
		text = string(content)
	}
	return absolutePathPattern.FindAllString(text, -1)
}

// longestTrustedPrefix returns the trusted folder with the longest
// path that is a prefix of any candidate path, or "" if none matches.
func longestTrustedPrefix(candidates, trustedFolders []string) string {
	var best string
	for _, folder := range trustedFolders {
		for _, c := range candidates {
			if strings.HasPrefix(c, folder) && len(folder) > len(best) {
				best = folder
			}
		}
	}
	return best
}

// dirOf returns candidate itself when it is an existing directory,
// otherwise everything before its last '/' (whether or not that path
// exists).
func dirOf(candidate string) string {
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	if idx := strings.LastIndex(candidate, "/"); idx > 0 {
		return candidate[:idx]
	}
	return candidate
}

// copilotConfig is the slice of ~/.copilot/config.json the core reads:
// the trusted-folder allowlist InferCwd prefers among candidate paths.
type copilotConfig struct {
	TrustedFolders []string `json:"trusted_folders"`
}

// LoadTrustedFolders reads the trusted-folder list from the Copilot
// config file sitting alongside session-state (homeDirectory is
// .copilot/session-state; its sibling config.json is Copilot's own).
// A missing or unparsable config yields an empty list rather than an
// error — trusted folders are an optional refinement to cwd
// inference, not a requirement of it.
func LoadTrustedFolders(homeDirectory string) []string {
	path := filepath.Join(filepath.Dir(homeDirectory), "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var cfg copilotConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil
	}
	return cfg.TrustedFolders
}
