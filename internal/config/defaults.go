package config

import (
	_ "embed"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaultsYAML seeds per-provider home directories the first time a
// provider's config is requested, generalizing the teacher's
// embedded-JSON defaults (internal/defaults/defaults.go) into a YAML
// seed covering all six providers instead of one CLAUDE.md template.
//
//go:embed provider_defaults.yaml
var defaultsYAML []byte

// ProviderDefault describes a provider's native home directory
// relative to $HOME, used to seed ProviderConfig.HomeDirectory before
// the user has configured anything.
type ProviderDefault struct {
	ID            string `yaml:"id"`
	HomeDirectory string `yaml:"home_directory"`
}

// LoadProviderDefaults parses the embedded seed file.
func LoadProviderDefaults() ([]ProviderDefault, error) {
	var defaults []ProviderDefault
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

// DefaultHomeDirectory resolves a provider's default native directory
// under the given $HOME.
func DefaultHomeDirectory(home, providerID string) string {
	defaults, err := LoadProviderDefaults()
	if err != nil {
		return ""
	}
	for _, d := range defaults {
		if d.ID == providerID {
			return filepath.Join(home, d.HomeDirectory)
		}
	}
	return ""
}
