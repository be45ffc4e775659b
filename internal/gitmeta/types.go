// Package gitmeta extracts project metadata and git diff information
// from a session's working directory, per spec §4.6 and the
// supplemented file-diff feature grounded in original_source's
// git_diff.rs. The teacher carries no git library at all; this
// package is new code built against go-git/go-git/v5, the dependency
// the rest of the retrieved corpus reaches for.
package gitmeta

// ProjectMetadata is the {project_name, git_remote_url, cwd,
// detected_project_type} tuple spec §4.6 asks for, plus the current
// branch and HEAD commit a session needs to resolve a diff against.
type ProjectMetadata struct {
	ProjectName         string `json:"project_name"`
	Cwd                 string `json:"cwd"`
	GitRemoteURL        string `json:"git_remote_url,omitempty"`
	GitBranch           string `json:"git_branch,omitempty"`
	GitHeadCommit       string `json:"git_head_commit,omitempty"`
	DetectedProjectType string `json:"detected_project_type,omitempty"`
}

// DiffStats mirrors git_diff.rs's DiffStats: line counts for one file.
type DiffStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// FileDiff mirrors git_diff.rs's FileDiff: one changed file between
// two points in a session's history, or between HEAD and the working
// tree for a still-active session.
type FileDiff struct {
	OldPath    string    `json:"old_path,omitempty"`
	NewPath    string    `json:"new_path,omitempty"`
	ChangeType string    `json:"change_type"`
	Language   string    `json:"language,omitempty"`
	Hunks      []string  `json:"hunks,omitempty"`
	Stats      DiffStats `json:"stats"`
	IsBinary   bool      `json:"is_binary"`
}

// Path returns whichever of NewPath/OldPath is set, for callers that
// just want the file's current identity.
func (f FileDiff) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}
