package gitmeta

import (
	"errors"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"guideai/internal/guideerr"
)

// ExtractProjectMetadata builds a ProjectMetadata for cwd. A cwd with
// no git repository is not an error, per spec §4.6 — the returned
// metadata simply carries no git fields.
func ExtractProjectMetadata(cwd string) (ProjectMetadata, error) {
	meta := ProjectMetadata{
		ProjectName:         filepath.Base(filepath.Clean(cwd)),
		Cwd:                 cwd,
		DetectedProjectType: detectProjectType(cwd),
	}

	repo, err := git.PlainOpenWithOptions(cwd, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return meta, nil
		}
		return meta, guideerr.Wrap(guideerr.KindIO, "open git repository", err)
	}

	if remote, err := repo.Remote("origin"); err == nil {
		cfg := remote.Config()
		if len(cfg.URLs) > 0 {
			meta.GitRemoteURL = cfg.URLs[0]
		}
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			meta.GitBranch = head.Name().Short()
		}
		meta.GitHeadCommit = head.Hash().String()
	}

	return meta, nil
}
