package gitmeta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func initRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return repo, dir
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0)}
	hash, err := wt.Commit("update "+name, &git.CommitOptions{Author: sig})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

// TestExtractProjectMetadataNoRepo verifies a cwd without a .git
// directory yields project_name/detected_project_type but no error
// and no git fields, per spec §4.6's "absent repos are not an error".
func TestExtractProjectMetadataNoRepo(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "widget")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "go.mod"), []byte("module widget\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	meta, err := ExtractProjectMetadata(sub)
	if err != nil {
		t.Fatalf("ExtractProjectMetadata: %v", err)
	}
	if meta.ProjectName != "widget" {
		t.Fatalf("got project name %q, want widget", meta.ProjectName)
	}
	if meta.DetectedProjectType != "go" {
		t.Fatalf("got detected type %q, want go", meta.DetectedProjectType)
	}
	if meta.GitRemoteURL != "" || meta.GitHeadCommit != "" {
		t.Fatalf("expected no git fields, got %+v", meta)
	}
}

// TestExtractProjectMetadataWithRepo verifies HEAD commit, remote URL,
// and detected project type are read back from an actual repository.
func TestExtractProjectMetadataWithRepo(t *testing.T) {
	repo, dir := initRepo(t)
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://example.com/widget.git"},
	}); err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]\nname=\"widget\"\n"), 0o644); err != nil {
		t.Fatalf("write Cargo.toml: %v", err)
	}
	head := commitFile(t, repo, dir, "Cargo.toml", "[package]\nname=\"widget\"\n")

	meta, err := ExtractProjectMetadata(dir)
	if err != nil {
		t.Fatalf("ExtractProjectMetadata: %v", err)
	}
	if meta.GitRemoteURL != "https://example.com/widget.git" {
		t.Fatalf("got remote %q", meta.GitRemoteURL)
	}
	if meta.GitHeadCommit != head {
		t.Fatalf("got head %q, want %q", meta.GitHeadCommit, head)
	}
	if meta.DetectedProjectType != "rust" {
		t.Fatalf("got detected type %q, want rust", meta.DetectedProjectType)
	}
}

// TestCommitDiffBetweenTwoCommits verifies the two-distinct-commits
// branch produces a modified-file diff with line counts.
func TestCommitDiffBetweenTwoCommits(t *testing.T) {
	repo, dir := initRepo(t)
	first := commitFile(t, repo, dir, "main.go", "package main\n\nfunc main() {}\n")
	latest := commitFile(t, repo, dir, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")

	diffs, err := CommitDiff(dir, first, latest, false)
	if err != nil {
		t.Fatalf("CommitDiff: %v", err)
	}
	if len(diffs) != 1 {
		t.Fatalf("got %d file diffs, want 1", len(diffs))
	}
	fd := diffs[0]
	if fd.ChangeType != "modified" || fd.Path() != "main.go" {
		t.Fatalf("unexpected diff: %+v", fd)
	}
	if fd.Language != "go" {
		t.Fatalf("got language %q, want go", fd.Language)
	}
	if fd.Stats.Additions == 0 {
		t.Fatalf("expected at least one added line")
	}
}

// TestCommitDiffSameCommitNotActive verifies an idle session whose
// commit never advanced yields no diff.
func TestCommitDiffSameCommitNotActive(t *testing.T) {
	repo, dir := initRepo(t)
	head := commitFile(t, repo, dir, "main.go", "package main\n")

	diffs, err := CommitDiff(dir, head, head, false)
	if err != nil {
		t.Fatalf("CommitDiff: %v", err)
	}
	if diffs != nil {
		t.Fatalf("expected nil diff for inactive unchanged session, got %+v", diffs)
	}
}

// TestCommitDiffSameCommitActiveUncommitted verifies an active session
// whose commit hasn't advanced still surfaces uncommitted working-tree
// changes.
func TestCommitDiffSameCommitActiveUncommitted(t *testing.T) {
	repo, dir := initRepo(t)
	head := commitFile(t, repo, dir, "main.go", "package main\n\nfunc main() {}\n")

	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {\n\tprintln(\"wip\")\n}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	diffs, err := CommitDiff(dir, head, head, true)
	if err != nil {
		t.Fatalf("CommitDiff: %v", err)
	}
	if len(diffs) != 1 {
		t.Fatalf("got %d file diffs, want 1", len(diffs))
	}
	if diffs[0].ChangeType != "modified" {
		t.Fatalf("got change type %q, want modified", diffs[0].ChangeType)
	}
	if diffs[0].Stats.Additions == 0 {
		t.Fatalf("expected additions in working-tree diff")
	}
}
