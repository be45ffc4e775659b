package config

import "testing"

func TestShouldIncludeProject(t *testing.T) {
	all := ProviderConfig{ProjectSelection: SelectionAll}
	if !all.ShouldInclude("anything") {
		t.Fatalf("ALL selection should admit every project")
	}

	selected := ProviderConfig{
		ProjectSelection: SelectionSelected,
		SelectedProjects: []string{"guideai", "other-repo"},
	}
	if !selected.ShouldInclude("guideai") {
		t.Fatalf("expected guideai to be admitted")
	}
	if selected.ShouldInclude("unlisted") {
		t.Fatalf("unlisted project should not be admitted")
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	pc := DefaultProviderConfig("/home/user/.claude/projects")
	if pc.SyncMode != SyncNothing {
		t.Fatalf("expected default sync mode Nothing, got %q", pc.SyncMode)
	}
	if pc.Enabled {
		t.Fatalf("expected provider to start disabled")
	}
	if pc.ProjectSelection != SelectionAll {
		t.Fatalf("expected default selection ALL")
	}
}

func TestLoadProviderDefaults(t *testing.T) {
	defaults, err := LoadProviderDefaults()
	if err != nil {
		t.Fatalf("LoadProviderDefaults: %v", err)
	}
	want := map[string]bool{
		"claude-code": true, "codex": true, "github-copilot": true,
		"opencode": true, "gemini-code": true, "cursor": true,
	}
	if len(defaults) != len(want) {
		t.Fatalf("got %d defaults, want %d", len(defaults), len(want))
	}
	for _, d := range defaults {
		if !want[d.ID] {
			t.Fatalf("unexpected provider id %q", d.ID)
		}
	}
}
