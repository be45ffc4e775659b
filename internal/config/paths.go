// Package config manages GuideAI's on-disk configuration: the
// top-level credentials file, per-provider sync settings, and the
// Gemini project-hash registry. It follows the teacher's own
// settings-manager idiom (internal/settings/settings.go: a Manager
// wrapping a config directory, JSON read/write helpers, 0600/0700
// permissions) generalized to the directory layout and provider
// surface that original_source/src-tauri/src/config.rs defines,
// renamed from the Rust original's `~/.guidemode` to `~/.guideai`
// per spec §6.
package config

import (
	"os"
	"path/filepath"
)

// DirName is the top-level config directory under the user's home.
const DirName = ".guideai"

// Dir returns {home}/.guideai, creating it with owner-only
// permissions if it does not yet exist.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, DirName)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// SessionsRoot returns {home}/.guideai/sessions, the canonical store
// root every parser writes under (spec §6).
func SessionsRoot() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	root := filepath.Join(dir, "sessions")
	if err := ensureDir(root); err != nil {
		return "", err
	}
	return root, nil
}

// ProvidersDir returns {home}/.guideai/providers.
func ProvidersDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	pdir := filepath.Join(dir, "providers")
	if err := ensureDir(pdir); err != nil {
		return "", err
	}
	return pdir, nil
}

// LogsDir returns {home}/.guideai/logs.
func LogsDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	ldir := filepath.Join(dir, "logs")
	if err := ensureDir(ldir); err != nil {
		return "", err
	}
	return ldir, nil
}

// ActivityLogPath returns the JSONL append sink path for the
// user-facing activity feed (distinct from the operational logs
// written under the same directory).
func ActivityLogPath() (string, error) {
	ldir, err := LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(ldir, "activity.jsonl"), nil
}

// CatalogPath returns the SQLite database path for the Session Catalog.
func CatalogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// GeminiRegistryPath returns the path to the Gemini project-hash
// registry (spec §4.2.5).
func GeminiRegistryPath() (string, error) {
	pdir, err := ProvidersDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(pdir, "gemini-code-projects.json"), nil
}

// ProviderConfigPath returns the config path for a single provider.
func ProviderConfigPath(providerID string) (string, error) {
	pdir, err := ProvidersDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(pdir, providerID+".json"), nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}
	return os.Chmod(path, 0o700)
}

// WriteOwnerOnlyFile writes data to path with 0600 permissions,
// creating or truncating it.
func WriteOwnerOnlyFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
