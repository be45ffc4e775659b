package gitmeta

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sergi/go-diff/diffmatchpatch"

	"guideai/internal/guideerr"
)

// CommitDiff reproduces git_diff.rs::get_commit_diff's two cases: a
// diff between two distinct commits, or — when firstCommitHash and
// latestCommitHash are the same and the session is still active — a
// diff between that commit and the current working tree. A session
// that never advanced past its starting commit and is no longer
// active has nothing to report, matching the Rust file's empty-diff
// branch.
func CommitDiff(cwd, firstCommitHash, latestCommitHash string, isActive bool) ([]FileDiff, error) {
	repo, err := git.PlainOpenWithOptions(cwd, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, guideerr.Wrap(guideerr.KindIO, "open git repository", err)
	}

	if firstCommitHash == latestCommitHash {
		if !isActive {
			return nil, nil
		}
		return workingTreeDiff(repo, cwd, latestCommitHash)
	}
	return commitToCommitDiff(repo, firstCommitHash, latestCommitHash)
}

func commitToCommitDiff(repo *git.Repository, firstHash, latestHash string) ([]FileDiff, error) {
	from, err := repo.CommitObject(plumbing.NewHash(firstHash))
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "resolve first commit", err)
	}
	to, err := repo.CommitObject(plumbing.NewHash(latestHash))
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "resolve latest commit", err)
	}

	patch, err := from.Patch(to)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "diff commits", err)
	}

	var out []FileDiff
	for _, fp := range patch.FilePatches() {
		out = append(out, fileDiffFromPatch(fp))
	}
	return out, nil
}

func fileDiffFromPatch(fp gitdiff.FilePatch) FileDiff {
	from, to := fp.Files()
	var oldPath, newPath, changeType string
	switch {
	case from == nil && to != nil:
		changeType = "added"
		newPath = to.Path()
	case from != nil && to == nil:
		changeType = "deleted"
		oldPath = from.Path()
	case from != nil && to != nil && from.Path() != to.Path():
		changeType = "renamed"
		oldPath = from.Path()
		newPath = to.Path()
	default:
		changeType = "modified"
		if from != nil {
			oldPath = from.Path()
		}
		if to != nil {
			newPath = to.Path()
		}
	}

	fd := FileDiff{
		OldPath:    oldPath,
		NewPath:    newPath,
		ChangeType: changeType,
		Language:   detectLanguage(pathOrFallback(newPath, oldPath)),
		IsBinary:   fp.IsBinary(),
	}
	if fd.IsBinary {
		return fd
	}

	var hunk strings.Builder
	for _, chunk := range fp.Chunks() {
		prefix := " "
		switch chunk.Type() {
		case gitdiff.Add:
			prefix = "+"
		case gitdiff.Delete:
			prefix = "-"
		}
		lines := splitKeepingLines(chunk.Content())
		for _, line := range lines {
			hunk.WriteString(prefix)
			hunk.WriteString(line)
			hunk.WriteString("\n")
		}
		switch chunk.Type() {
		case gitdiff.Add:
			fd.Stats.Additions += len(lines)
		case gitdiff.Delete:
			fd.Stats.Deletions += len(lines)
		}
	}
	if hunk.Len() > 0 {
		fd.Hunks = []string{hunk.String()}
	}
	return fd
}

// workingTreeDiff diffs a commit's tree against the files currently on
// disk, for a session whose last observed commit hasn't advanced but
// is still producing uncommitted changes. go-git has no built-in
// tree-to-workdir patch, so files flagged by Worktree.Status are
// diffed by hand with the same line-diff library go-git itself uses
// internally for commit-to-commit patches.
func workingTreeDiff(repo *git.Repository, cwd, commitHash string) ([]FileDiff, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "open git worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "git status", err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "resolve commit", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "read commit tree", err)
	}

	var out []FileDiff
	for path, fs := range status {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}

		oldContent, hadOld := treeFileContents(tree, path)
		newContent, hadNew := workingFileContents(cwd, path)

		fd := FileDiff{Language: detectLanguage(path)}
		switch {
		case !hadOld && hadNew:
			fd.ChangeType = "added"
			fd.NewPath = path
		case hadOld && !hadNew:
			fd.ChangeType = "deleted"
			fd.OldPath = path
		default:
			fd.ChangeType = "modified"
			fd.OldPath = path
			fd.NewPath = path
		}

		if looksBinary(oldContent) || looksBinary(newContent) {
			fd.IsBinary = true
			out = append(out, fd)
			continue
		}

		hunks, additions, deletions := lineDiff(oldContent, newContent)
		fd.Hunks = hunks
		fd.Stats = DiffStats{Additions: additions, Deletions: deletions}
		out = append(out, fd)
	}
	return out, nil
}

func treeFileContents(tree *object.Tree, path string) (string, bool) {
	file, err := tree.File(path)
	if err != nil {
		return "", false
	}
	content, err := file.Contents()
	if err != nil {
		return "", false
	}
	return content, true
}

func pathOrFallback(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func splitKeepingLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func looksBinary(content string) bool {
	return strings.ContainsRune(content, 0)
}

// lineDiff produces a unified-style hunk text and additions/deletions
// counts for two file contents, using the same diffmatchpatch
// line-mode recipe go-git uses to build its own commit-to-commit
// patches.
func lineDiff(oldText, newText string) (hunks []string, additions, deletions int) {
	if oldText == newText {
		return nil, 0, 0
	}
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		lines := splitKeepingLines(d.Text)
		for _, line := range lines {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += len(lines)
		case diffmatchpatch.DiffDelete:
			deletions += len(lines)
		}
	}
	if sb.Len() == 0 {
		return nil, additions, deletions
	}
	return []string{sb.String()}, additions, deletions
}

func workingFileContents(cwd, path string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(cwd, path))
	if err != nil {
		return "", false
	}
	return string(data), true
}
