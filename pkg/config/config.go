// Package config handles loading and saving qf configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/qf/config.yaml
//   - Data:    ~/.local/share/qf/ (snapshots, exports)
//   - State:   ~/.local/state/qf/ (recent flows)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flow represents a registered flow file in the config.
type Flow struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// LayoutConfig holds auto-layout preferences.
type LayoutConfig struct {
	Preset       string  `yaml:"preset,omitempty"`    // default, roomy
	HSpacing     float64 `yaml:"h_spacing,omitempty"` // Horizontal spacing override
	VSpacing     float64 `yaml:"v_spacing,omitempty"` // Vertical spacing override
	ComponentGap float64 `yaml:"component_gap,omitempty"`
}

// ExportConfig controls export defaults.
type ExportConfig struct {
	Format      string `yaml:"format,omitempty"`       // json, dot, mermaid
	SnapshotDir string `yaml:"snapshot_dir,omitempty"` // Where snapshot images land
}

// HistoryConfig controls the undo/redo ring.
type HistoryConfig struct {
	Capacity int `yaml:"capacity,omitempty"` // Max undoable states (default 50)
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	ForcePoll    bool   `yaml:"force_poll,omitempty"`
	PollInterval string `yaml:"poll_interval,omitempty"` // Go duration string
}

// Config is the top-level configuration for qf.
type Config struct {
	Flows     []Flow         `yaml:"flows,omitempty"`
	Favorites map[int]string `yaml:"favorites,omitempty"` // Number key (1-9) -> flow name
	Topic     string         `yaml:"topic,omitempty"`     // Default topic for new flows
	Layout    LayoutConfig   `yaml:"layout,omitempty"`
	Export    ExportConfig   `yaml:"export,omitempty"`
	History   HistoryConfig  `yaml:"history,omitempty"`
	Watch     WatchConfig    `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Favorites: make(map[int]string),
		Layout: LayoutConfig{
			Preset: "default",
		},
		Export: ExportConfig{
			Format: "json",
		},
		History: HistoryConfig{
			Capacity: 50,
		},
	}
}

// ConfigDir returns the XDG config directory for qf.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "qf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "qf")
}

// DataDir returns the XDG data directory for qf.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "qf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "qf")
}

// StateDir returns the XDG state directory for qf.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "qf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "qf")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Ensure favorites map is initialized
	if cfg.Favorites == nil {
		cfg.Favorites = make(map[int]string)
	}
	if cfg.History.Capacity <= 0 {
		cfg.History.Capacity = 50
	}

	// Expand ~ in flow paths
	for i := range cfg.Flows {
		cfg.Flows[i].Path = expandHome(cfg.Flows[i].Path)
	}
	cfg.Export.SnapshotDir = expandHome(cfg.Export.SnapshotDir)

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindFlow returns the flow with the given name, or nil.
func (c Config) FindFlow(name string) *Flow {
	for i := range c.Flows {
		if strings.EqualFold(c.Flows[i].Name, name) {
			return &c.Flows[i]
		}
	}
	return nil
}

// FavoriteFlow returns the flow assigned to number key n (1-9), or nil.
func (c Config) FavoriteFlow(n int) *Flow {
	name, ok := c.Favorites[n]
	if !ok {
		return nil
	}
	return c.FindFlow(name)
}

// SetFavorite assigns a flow name to a number key (1-9).
func (c *Config) SetFavorite(n int, flowName string) {
	if c.Favorites == nil {
		c.Favorites = make(map[int]string)
	}
	if flowName == "" {
		delete(c.Favorites, n)
	} else {
		c.Favorites[n] = flowName
	}
}

// ResolvedPath returns the flow path with ~ expanded.
func (f Flow) ResolvedPath() string {
	return expandHome(f.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
