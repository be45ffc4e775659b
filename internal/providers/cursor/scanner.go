package cursor

import (
	"os"
	"path/filepath"

	"guideai/internal/guideerr"
	"guideai/internal/store"
)

// ScanSessionsFiltered walks {homeDirectory}/{md5}/{sessionUUID}/store.db
// and parses each, dropping sessions whose project is not admitted by
// selection. projectsDir is Cursor's sibling per-project folder index
// used for cwd recovery (spec §4.2.6).
func ScanSessionsFiltered(homeDirectory, projectsDir string, shouldInclude func(projectName string) bool) ([]SessionResult, error) {
	var dbPaths []string
	err := filepath.WalkDir(homeDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == "store.db" {
			dbPaths = append(dbPaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "walk cursor chats directory", err)
	}

	var results []SessionResult
	for _, path := range dbPaths {
		md5Hash := sessionDirMD5(path)
		res, err := ParseSessionDB(path, md5Hash, projectsDir)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to parse cursor session")
			continue
		}
		if res.ProjectName == "" {
			// Project is unrecoverable: spec §4.2 requires failing the
			// session rather than caching to an "unknown" bucket.
			log.Debug().Str("session_id", res.SessionID).Msg("cursor session has no recoverable cwd, skipping")
			continue
		}
		if shouldInclude != nil && !shouldInclude(res.ProjectName) {
			continue
		}
		results = append(results, res)
	}
	log.Info().Int("count", len(results)).Msg("cursor scan complete")
	return results, nil
}

// WriteCanonical persists a scan result to the canonical store.
func WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return store.Write(sessionsRoot, ProviderName, res.ProjectName, res.SessionID, res.Messages)
}
