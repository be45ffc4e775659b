package config

import (
	"encoding/json"
	"os"
	"sync"

	"guideai/internal/guideerr"
)

// RootConfig is the top-level {home}/.guideai/config.json document:
// credentials and server URL, mirroring Rust config.rs's
// GuideModeConfig (renamed GuideAIConfig here since the directory
// itself was renamed .guidemode -> .guideai).
type RootConfig struct {
	APIKey     string `json:"apiKey,omitempty"`
	ServerURL  string `json:"serverUrl,omitempty"`
	Username   string `json:"username,omitempty"`
	Name       string `json:"name,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	TenantID   string `json:"tenantId,omitempty"`
	TenantName string `json:"tenantName,omitempty"`
}

// SyncMode is a provider's upload policy (spec §4.7, §6).
type SyncMode string

const (
	SyncNothing             SyncMode = "Nothing"
	SyncMetricsOnly         SyncMode = "Metrics Only"
	SyncTranscriptAndMetrics SyncMode = "Transcript and Metrics"
)

// ProjectSelection controls which of a provider's projects are admitted.
type ProjectSelection string

const (
	SelectionAll      ProjectSelection = "ALL"
	SelectionSelected ProjectSelection = "SELECTED"
)

// ProviderConfig is the per-provider settings document at
// {home}/.guideai/providers/{provider}.json (spec §6).
type ProviderConfig struct {
	Enabled          bool             `json:"enabled"`
	HomeDirectory    string           `json:"home_directory"`
	ProjectSelection ProjectSelection `json:"project_selection"`
	SelectedProjects []string         `json:"selected_projects"`
	LastScanned      string           `json:"last_scanned,omitempty"`
	SyncMode         SyncMode         `json:"sync_mode"`
}

// DefaultProviderConfig mirrors Rust's Default impl for ProviderConfig:
// disabled, ALL projects, sync_mode "Nothing" until the user opts in.
func DefaultProviderConfig(homeDirectory string) ProviderConfig {
	return ProviderConfig{
		Enabled:          false,
		HomeDirectory:    homeDirectory,
		ProjectSelection: SelectionAll,
		SelectedProjects: nil,
		SyncMode:         SyncNothing,
	}
}

// ShouldInclude reports whether a project is admitted under this
// provider's selection policy, mirroring Rust
// config.rs::should_include_project.
func (p ProviderConfig) ShouldInclude(projectName string) bool {
	if p.ProjectSelection == SelectionAll {
		return true
	}
	for _, sel := range p.SelectedProjects {
		if sel == projectName {
			return true
		}
	}
	return false
}

// Manager owns the on-disk config tree, following the teacher's
// settings.Manager idiom (load-on-construct, mutex-guarded in-memory
// copy, JSON read/write helpers with 0600 perms for sensitive files).
type Manager struct {
	mu       sync.RWMutex
	root     RootConfig
	rootPath string
}

// NewManager loads (or initializes) the root config.
func NewManager() (*Manager, error) {
	dir, err := Dir()
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindConfig, "resolve config dir", err)
	}
	m := &Manager{rootPath: dir + "/config.json"}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return guideerr.Wrap(guideerr.KindConfig, "read config.json", err)
	}
	var rc RootConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return guideerr.Wrap(guideerr.KindConfig, "parse config.json", err)
	}
	m.mu.Lock()
	m.root = rc
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current root config.
func (m *Manager) Get() RootConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root
}

// Save persists rc and updates the in-memory copy.
func (m *Manager) Save(rc RootConfig) error {
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return guideerr.Wrap(guideerr.KindJSON, "marshal config.json", err)
	}
	if err := WriteOwnerOnlyFile(m.rootPath, data); err != nil {
		return guideerr.Wrap(guideerr.KindIO, "write config.json", err)
	}
	m.mu.Lock()
	m.root = rc
	m.mu.Unlock()
	return nil
}

// Clear resets the root config to its zero value, mirroring Rust's
// clear_config.
func (m *Manager) Clear() error {
	return m.Save(RootConfig{})
}

// IsAuthenticated reports whether an API key is configured.
func (m *Manager) IsAuthenticated() bool {
	return m.Get().APIKey != ""
}

// LoadProviderConfig reads a single provider's config, returning a
// sensible default (disabled, Nothing) when the file does not exist.
func LoadProviderConfig(providerID, defaultHomeDirectory string) (ProviderConfig, error) {
	path, err := ProviderConfigPath(providerID)
	if err != nil {
		return ProviderConfig{}, guideerr.Wrap(guideerr.KindConfig, "resolve provider config path", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultProviderConfig(defaultHomeDirectory), nil
		}
		return ProviderConfig{}, guideerr.Wrap(guideerr.KindConfig, "read provider config", err)
	}
	var pc ProviderConfig
	if err := json.Unmarshal(data, &pc); err != nil {
		return ProviderConfig{}, guideerr.Wrap(guideerr.KindConfig, "parse provider config", err)
	}
	return pc, nil
}

// SaveProviderConfig persists a provider's config.
func SaveProviderConfig(providerID string, pc ProviderConfig) error {
	path, err := ProviderConfigPath(providerID)
	if err != nil {
		return guideerr.Wrap(guideerr.KindConfig, "resolve provider config path", err)
	}
	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return guideerr.Wrap(guideerr.KindJSON, "marshal provider config", err)
	}
	if err := WriteOwnerOnlyFile(path, data); err != nil {
		return guideerr.Wrap(guideerr.KindIO, "write provider config", err)
	}
	return nil
}

// DeleteProviderConfig removes a provider's config file.
func DeleteProviderConfig(providerID string) error {
	path, err := ProviderConfigPath(providerID)
	if err != nil {
		return guideerr.Wrap(guideerr.KindConfig, "resolve provider config path", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return guideerr.Wrap(guideerr.KindIO, "delete provider config", err)
	}
	return nil
}
