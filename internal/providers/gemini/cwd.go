package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"

	"guideai/internal/guideerr"
)

// VerifyHash reports whether sha256(workdir) == expectedHash, hex-encoded.
// Grounded in gemini_utils.rs::verify_hash.
func VerifyHash(workdir, expectedHash string) bool {
	sum := sha256.Sum256([]byte(workdir))
	return hex.EncodeToString(sum[:]) == expectedHash
}

// FindMatchingPath walks fullPath up through its ancestors, returning
// the first one whose SHA-256 matches expectedHash. Grounded in
// gemini_utils.rs::find_matching_path's progressively-shorter-path scan.
func FindMatchingPath(fullPath, expectedHash string) (string, bool) {
	current := fullPath
	for {
		if current != "" && current != "/" && current != "\\" {
			if VerifyHash(current, expectedHash) {
				return current, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}

// ExtractCandidatePaths scans prose for absolute Unix/Windows paths,
// preferring text after a "---" delimiter (tool-output fences), per
// spec §4.2.5 step 3 / gemini_utils.rs::extract_candidate_paths_from_content.
func ExtractCandidatePaths(content string) []string {
	var paths []string
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, "/Users/") && !strings.Contains(line, "/home/") && !strings.Contains(line, `C:\`) {
			continue
		}
		searchText := line
		if idx := strings.Index(line, "---"); idx != -1 {
			searchText = line[idx+3:]
		}
		for _, part := range strings.Fields(searchText) {
			if strings.HasPrefix(part, "/") || isWindowsAbsPath(part) {
				paths = append(paths, part)
			}
		}
	}
	return paths
}

func isWindowsAbsPath(s string) bool {
	return len(s) > 3 && s[1] == ':' && s[2] == '\\'
}

// extractPathsFromToolArgs collects absolute_path, paths[], and path
// fields from a tool call's argument object, per spec §4.2.5 step 1 /
// gemini_utils.rs::extract_paths_from_tool_args.
func extractPathsFromToolArgs(args json.RawMessage) []string {
	if len(args) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(args, &obj); err != nil {
		return nil
	}
	var paths []string
	if raw, ok := obj["absolute_path"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			paths = append(paths, s)
		}
	}
	if raw, ok := obj["paths"]; ok {
		var arr []string
		if json.Unmarshal(raw, &arr) == nil {
			paths = append(paths, arr...)
		}
	}
	if raw, ok := obj["path"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			paths = append(paths, s)
		}
	}
	return paths
}

// InferCwd recovers a session's cwd by scanning its messages in the
// priority order spec §4.2.5 mandates: tool-call arguments, then
// extended-thinking descriptions, then message prose. Grounded in
// gemini_utils.rs::infer_cwd_from_session.
func InferCwd(session Session, projectHash string) (string, bool) {
	for _, msg := range session.Messages {
		for _, tc := range msg.ToolCalls {
			for _, p := range extractPathsFromToolArgs(tc.Args) {
				if match, ok := FindMatchingPath(p, projectHash); ok {
					return match, true
				}
			}
		}
		for _, th := range msg.Thoughts {
			for _, p := range ExtractCandidatePaths(th.Description) {
				if match, ok := FindMatchingPath(p, projectHash); ok {
					return match, true
				}
			}
		}
		for _, p := range ExtractCandidatePaths(msg.Content) {
			if match, ok := FindMatchingPath(p, projectHash); ok {
				return match, true
			}
		}
	}
	return "", false
}

// ProjectNameFromCwd mirrors gemini_utils.rs::get_project_name_from_path.
func ProjectNameFromCwd(cwd string) (string, error) {
	name := filepath.Base(cwd)
	if name == "" || name == "." || name == "/" {
		return "", guideerr.New(guideerr.KindValidation, "could not extract project name from cwd")
	}
	return name, nil
}
