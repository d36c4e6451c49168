package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Layout.Preset != "default" {
		t.Errorf("expected layout preset 'default', got %q", cfg.Layout.Preset)
	}
	if cfg.Export.Format != "json" {
		t.Errorf("expected export format 'json', got %q", cfg.Export.Format)
	}
	if cfg.History.Capacity != 50 {
		t.Errorf("expected history capacity 50, got %d", cfg.History.Capacity)
	}
	if cfg.Favorites == nil {
		t.Error("expected favorites map to be initialized")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Export.Format != "json" {
		t.Errorf("expected default config, got format %q", cfg.Export.Format)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
flows:
  - name: onboarding
    path: ~/flows/onboarding.json
  - name: skincare
    path: /absolute/skincare.json

favorites:
  1: onboarding
  2: skincare

topic: SKIN

layout:
  preset: roomy
  h_spacing: 300

export:
  format: mermaid

history:
  capacity: 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Flows) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(cfg.Flows))
	}
	if cfg.Flows[0].Name != "onboarding" {
		t.Errorf("expected flow name 'onboarding', got %q", cfg.Flows[0].Name)
	}
	// Path should have ~ expanded
	home, _ := os.UserHomeDir()
	expectedPath := filepath.Join(home, "flows/onboarding.json")
	if cfg.Flows[0].Path != expectedPath {
		t.Errorf("expected expanded path %q, got %q", expectedPath, cfg.Flows[0].Path)
	}
	if cfg.Flows[1].Path != "/absolute/skincare.json" {
		t.Errorf("expected absolute path preserved, got %q", cfg.Flows[1].Path)
	}

	if cfg.Favorites[1] != "onboarding" {
		t.Errorf("expected favorite 1 = 'onboarding', got %q", cfg.Favorites[1])
	}
	if cfg.Topic != "SKIN" {
		t.Errorf("expected topic 'SKIN', got %q", cfg.Topic)
	}
	if cfg.Layout.Preset != "roomy" {
		t.Errorf("expected preset 'roomy', got %q", cfg.Layout.Preset)
	}
	if cfg.Layout.HSpacing != 300 {
		t.Errorf("expected h_spacing 300, got %f", cfg.Layout.HSpacing)
	}
	if cfg.Export.Format != "mermaid" {
		t.Errorf("expected format 'mermaid', got %q", cfg.Export.Format)
	}
	if cfg.History.Capacity != 20 {
		t.Errorf("expected capacity 20, got %d", cfg.History.Capacity)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFrom_ZeroHistoryCapacity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
history:
  capacity: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.History.Capacity != 50 {
		t.Errorf("expected zero capacity to fall back to 50, got %d", cfg.History.Capacity)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Config{
		Flows: []Flow{
			{Name: "flow1", Path: "/path/to/flow1.json"},
			{Name: "flow2", Path: "/path/to/flows.db"},
		},
		Favorites: map[int]string{
			1: "flow1",
			3: "flow2",
		},
		Export: ExportConfig{
			Format: "dot",
		},
	}

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}

	if len(loaded.Flows) != 2 {
		t.Errorf("expected 2 flows, got %d", len(loaded.Flows))
	}
	if loaded.Flows[0].Name != "flow1" {
		t.Errorf("expected 'flow1', got %q", loaded.Flows[0].Name)
	}
	if loaded.Favorites[1] != "flow1" {
		t.Errorf("expected favorite 1 = 'flow1', got %q", loaded.Favorites[1])
	}
	if loaded.Favorites[3] != "flow2" {
		t.Errorf("expected favorite 3 = 'flow2', got %q", loaded.Favorites[3])
	}
	if loaded.Export.Format != "dot" {
		t.Errorf("expected 'dot', got %q", loaded.Export.Format)
	}
}

func TestFindFlow(t *testing.T) {
	cfg := Config{
		Flows: []Flow{
			{Name: "alpha", Path: "/a.json"},
			{Name: "Beta", Path: "/b.json"},
		},
	}

	f := cfg.FindFlow("alpha")
	if f == nil || f.Name != "alpha" {
		t.Error("expected to find 'alpha'")
	}

	// Case-insensitive
	f = cfg.FindFlow("BETA")
	if f == nil || f.Name != "Beta" {
		t.Error("expected to find 'Beta' case-insensitively")
	}

	f = cfg.FindFlow("nonexistent")
	if f != nil {
		t.Error("expected nil for nonexistent flow")
	}
}

func TestFavoriteFlow(t *testing.T) {
	cfg := Config{
		Flows: []Flow{
			{Name: "flow1", Path: "/f1.json"},
		},
		Favorites: map[int]string{
			1: "flow1",
		},
	}

	f := cfg.FavoriteFlow(1)
	if f == nil || f.Name != "flow1" {
		t.Error("expected favorite 1 to return flow1")
	}

	f = cfg.FavoriteFlow(5)
	if f != nil {
		t.Error("expected nil for unset favorite")
	}
}

func TestSetFavorite(t *testing.T) {
	cfg := Config{Favorites: make(map[int]string)}

	cfg.SetFavorite(1, "myflow")
	if cfg.Favorites[1] != "myflow" {
		t.Error("expected favorite 1 set to 'myflow'")
	}

	// Clear favorite
	cfg.SetFavorite(1, "")
	if _, ok := cfg.Favorites[1]; ok {
		t.Error("expected favorite 1 to be cleared")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", filepath.Join(home, "")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigDir()
	expected := filepath.Join(dir, "qf")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestDataDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	got := DataDir()
	expected := filepath.Join(dir, "qf")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestStateDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got := StateDir()
	expected := filepath.Join(dir, "qf")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestLoadFrom_EmptyFavorites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
flows:
  - name: solo
    path: /solo.json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Favorites == nil {
		t.Error("expected favorites map to be initialized even when empty in config")
	}
}
