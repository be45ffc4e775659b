package watcher

import (
	"path/filepath"
	"sync"

	"guideai/internal/config"
	"guideai/internal/providers/claude"
	"guideai/internal/providers/codex"
	"guideai/internal/providers/copilot"
	"guideai/internal/providers/cursor"
	"guideai/internal/providers/gemini"
	"guideai/internal/providers/opencode"
)

// claudeAdapter, codexAdapter, ... adapt each provider package's own
// ScanSessionsFiltered/WriteCanonical pair (identical in shape, but
// not a shared type across six independent packages) to the watcher's
// Scanner interface.

type claudeAdapter struct{}

func (claudeAdapter) Scan(cfg config.ProviderConfig) ([]SessionResult, error) {
	results, err := claude.ScanSessionsFiltered(cfg.HomeDirectory, cfg.ShouldInclude)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResult, len(results))
	for i, r := range results {
		out[i] = SessionResult{SessionID: r.SessionID, Cwd: r.Cwd, ProjectName: r.ProjectName, Messages: r.Messages}
	}
	return out, nil
}

func (claudeAdapter) WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return claude.WriteCanonical(sessionsRoot, claude.SessionResult{
		SessionID: res.SessionID, Cwd: res.Cwd, ProjectName: res.ProjectName, Messages: res.Messages,
	})
}

func claudeSignature(cfg config.ProviderConfig) (uint64, error) {
	count, size, mod, err := dirAggregate(cfg.HomeDirectory, ".jsonl")
	if err != nil {
		return 0, err
	}
	return signatureFromAggregate(count, size, mod), nil
}

type codexAdapter struct{}

func (codexAdapter) Scan(cfg config.ProviderConfig) ([]SessionResult, error) {
	results, err := codex.ScanSessionsFiltered(cfg.HomeDirectory, cfg.ShouldInclude)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResult, len(results))
	for i, r := range results {
		out[i] = SessionResult{SessionID: r.SessionID, Cwd: r.Cwd, ProjectName: r.ProjectName, Messages: r.Messages}
	}
	return out, nil
}

func (codexAdapter) WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return codex.WriteCanonical(sessionsRoot, codex.ScanResult{
		SessionID: res.SessionID, Cwd: res.Cwd, ProjectName: res.ProjectName, Messages: res.Messages,
	})
}

func codexSignature(cfg config.ProviderConfig) (uint64, error) {
	count, size, mod, err := dirAggregate(cfg.HomeDirectory, ".jsonl")
	if err != nil {
		return 0, err
	}
	return signatureFromAggregate(count, size, mod), nil
}

// copilotAdapter caches its trusted-folder list per home directory
// rather than re-reading config.json every tick; the list changes
// rarely enough that a mutex-guarded cache is simpler than plumbing a
// reload signal through the watcher's generic loop.
type copilotAdapter struct {
	mu     sync.Mutex
	cached map[string][]string
}

func newCopilotAdapter() *copilotAdapter {
	return &copilotAdapter{cached: make(map[string][]string)}
}

func (a *copilotAdapter) trustedFolders(homeDirectory string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if folders, ok := a.cached[homeDirectory]; ok {
		return folders
	}
	folders := copilot.LoadTrustedFolders(homeDirectory)
	a.cached[homeDirectory] = folders
	return folders
}

func (a *copilotAdapter) Scan(cfg config.ProviderConfig) ([]SessionResult, error) {
	results, err := copilot.ScanSessionsFiltered(cfg.HomeDirectory, a.trustedFolders(cfg.HomeDirectory), cfg.ShouldInclude)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResult, len(results))
	for i, r := range results {
		out[i] = SessionResult{SessionID: r.SessionID, Cwd: r.Cwd, ProjectName: r.ProjectName, Messages: r.Messages}
	}
	return out, nil
}

func (a *copilotAdapter) WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return copilot.WriteCanonical(sessionsRoot, copilot.SessionResult{
		SessionID: res.SessionID, Cwd: res.Cwd, ProjectName: res.ProjectName, Messages: res.Messages,
	})
}

func copilotSignature(cfg config.ProviderConfig) (uint64, error) {
	count, size, mod, err := dirAggregate(cfg.HomeDirectory, ".jsonl")
	if err != nil {
		return 0, err
	}
	return signatureFromAggregate(count, size, mod), nil
}

type opencodeAdapter struct{}

func (opencodeAdapter) Scan(cfg config.ProviderConfig) ([]SessionResult, error) {
	results, err := opencode.ScanSessionsFiltered(cfg.HomeDirectory, cfg.ShouldInclude)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResult, len(results))
	for i, r := range results {
		out[i] = SessionResult{SessionID: r.SessionID, Cwd: r.Cwd, ProjectName: r.ProjectName, Messages: r.Messages}
	}
	return out, nil
}

func (opencodeAdapter) WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return opencode.WriteCanonical(sessionsRoot, opencode.SessionResult{
		SessionID: res.SessionID, Cwd: res.Cwd, ProjectName: res.ProjectName, Messages: res.Messages,
	})
}

func opencodeSignature(cfg config.ProviderConfig) (uint64, error) {
	count, size, mod, err := dirAggregate(filepath.Join(cfg.HomeDirectory, "storage"), "")
	if err != nil {
		return 0, err
	}
	return signatureFromAggregate(count, size, mod), nil
}

// geminiAdapter owns the persistent project-hash registry (spec
// §4.2.5); it is loaded once and saved after every scan so a long
// poll run writes the registry file at most once per tick rather than
// once per hash directory.
type geminiAdapter struct {
	mu       sync.Mutex
	registry *gemini.Registry
}

func newGeminiAdapter() *geminiAdapter {
	return &geminiAdapter{}
}

func (a *geminiAdapter) Scan(cfg config.ProviderConfig) ([]SessionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.registry == nil {
		reg, err := gemini.LoadRegistry()
		if err != nil {
			return nil, err
		}
		a.registry = reg
	}
	results, err := gemini.ScanSessionsFiltered(cfg.HomeDirectory, a.registry, cfg.ShouldInclude)
	if err != nil {
		return nil, err
	}
	if err := a.registry.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to persist gemini project-hash registry")
	}
	out := make([]SessionResult, len(results))
	for i, r := range results {
		out[i] = SessionResult{SessionID: r.SessionID, Cwd: r.Cwd, ProjectName: r.ProjectName, Messages: r.Messages}
	}
	return out, nil
}

func (a *geminiAdapter) WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return gemini.WriteCanonical(sessionsRoot, gemini.SessionResult{
		SessionID: res.SessionID, Cwd: res.Cwd, ProjectName: res.ProjectName, Messages: res.Messages,
	})
}

func geminiSignature(cfg config.ProviderConfig) (uint64, error) {
	count, size, mod, err := dirAggregate(filepath.Join(cfg.HomeDirectory, "tmp"), ".json")
	if err != nil {
		return 0, err
	}
	return signatureFromAggregate(count, size, mod), nil
}

// cursorAdapter resolves Cursor's sibling projects/ directory from
// its configured chats/ home directory (spec §4.2.6).
type cursorAdapter struct{}

func cursorProjectsDir(homeDirectory string) string {
	return filepath.Join(filepath.Dir(homeDirectory), "projects")
}

func (cursorAdapter) Scan(cfg config.ProviderConfig) ([]SessionResult, error) {
	results, err := cursor.ScanSessionsFiltered(cfg.HomeDirectory, cursorProjectsDir(cfg.HomeDirectory), cfg.ShouldInclude)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResult, len(results))
	for i, r := range results {
		out[i] = SessionResult{SessionID: r.SessionID, Cwd: r.Cwd, ProjectName: r.ProjectName, Messages: r.Messages}
	}
	return out, nil
}

func (cursorAdapter) WriteCanonical(sessionsRoot string, res SessionResult) (string, error) {
	return cursor.WriteCanonical(sessionsRoot, cursor.SessionResult{
		SessionID: res.SessionID, Cwd: res.Cwd, ProjectName: res.ProjectName, Messages: res.Messages,
	})
}

// cursorSignature sums PRAGMA data_version across every session
// database under homeDirectory, per spec §4.2.6's "change detection"
// paragraph: data_version is monotonically increasing per database, so
// a rising sum is a sufficient (if coarse) "something committed"
// signal without needing to track each database's version separately.
func cursorSignature(cfg config.ProviderConfig) (uint64, error) {
	return cursor.DataVersionSum(cfg.HomeDirectory)
}

// NewDefaultProviders constructs the six built-in Scanner adapters
// keyed by provider ID, ready to Register on a Watcher.
func NewDefaultProviders() map[string]Provider {
	copilotA := newCopilotAdapter()
	geminiA := newGeminiAdapter()
	return map[string]Provider{
		claude.ProviderName: {ID: claude.ProviderName, Scanner: claudeAdapter{}, Signature: claudeSignature},
		codex.ProviderName:  {ID: codex.ProviderName, Scanner: codexAdapter{}, Signature: codexSignature},
		copilot.ProviderName: {
			ID: copilot.ProviderName, Scanner: copilotA, Signature: copilotSignature,
		},
		opencode.ProviderName: {ID: opencode.ProviderName, Scanner: opencodeAdapter{}, Signature: opencodeSignature},
		gemini.ProviderName: {
			ID: gemini.ProviderName, Scanner: geminiA, Signature: geminiSignature,
		},
		cursor.ProviderName: {ID: cursor.ProviderName, Scanner: cursorAdapter{}, Signature: cursorSignature},
	}
}
