package gemini

import (
	"encoding/json"
	"os"
	"time"

	"guideai/internal/config"
	"guideai/internal/guideerr"
)

// ProjectEntry is one registry record: a resolved cwd for a hashed
// project directory, cached so later scans short-circuit the
// priority-ordered InferCwd walk. Mirrors gemini_registry.rs::GeminiProjectEntry.
type ProjectEntry struct {
	Cwd      string `json:"cwd"`
	Name     string `json:"name"`
	LastSeen string `json:"lastSeen"`
}

// Registry is the persisted hash -> project-entry map at
// {config_dir}/providers/gemini-code-projects.json (spec §4.2.5).
type Registry struct {
	Projects map[string]ProjectEntry `json:"projects"`
}

// LoadRegistry reads the registry, returning an empty one if the file
// does not yet exist, mirroring gemini_registry.rs::load.
func LoadRegistry() (*Registry, error) {
	path, err := config.GeminiRegistryPath()
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindConfig, "resolve gemini registry path", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Projects: map[string]ProjectEntry{}}, nil
		}
		return nil, guideerr.Wrap(guideerr.KindIO, "read gemini registry", err)
	}
	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, guideerr.Wrap(guideerr.KindJSON, "parse gemini registry", err)
	}
	if r.Projects == nil {
		r.Projects = map[string]ProjectEntry{}
	}
	return &r, nil
}

// Save persists the registry with owner-only permissions, mirroring
// gemini_registry.rs::save's 0600 idiom.
func (r *Registry) Save() error {
	path, err := config.GeminiRegistryPath()
	if err != nil {
		return guideerr.Wrap(guideerr.KindConfig, "resolve gemini registry path", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return guideerr.Wrap(guideerr.KindJSON, "marshal gemini registry", err)
	}
	if err := config.WriteOwnerOnlyFile(path, data); err != nil {
		return guideerr.Wrap(guideerr.KindIO, "write gemini registry", err)
	}
	return nil
}

// Get returns the cached entry for hash, if any.
func (r *Registry) Get(hash string) (ProjectEntry, bool) {
	e, ok := r.Projects[hash]
	return e, ok
}

// Update inserts or refreshes a project entry's cwd/name/last-seen.
func (r *Registry) Update(hash, cwd, name string, now time.Time) {
	if r.Projects == nil {
		r.Projects = map[string]ProjectEntry{}
	}
	r.Projects[hash] = ProjectEntry{
		Cwd:      cwd,
		Name:     name,
		LastSeen: now.UTC().Format(time.RFC3339),
	}
}
