// Package datasource loads and saves flow documents on behalf of the CLI.
// Persistence deliberately lives here, outside the engine: the engine owns
// in-memory state only, and callers decide where documents go.
//
// Two source types are supported: plain JSON documents and SQLite databases
// holding one document per named flow.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies the kind of backing store.
type SourceType string

const (
	// SourceTypeJSON is a plain flow document file.
	SourceTypeJSON SourceType = "json"
	// SourceTypeSQLite is a flows database (one document per row).
	SourceTypeSQLite SourceType = "sqlite"
)

// DataSource describes one openable flow location.
type DataSource struct {
	Type SourceType `json:"type"`
	// Path is the absolute path to the backing file.
	Path string `json:"path"`
	// Flow is the flow name inside a SQLite source; empty for JSON files.
	Flow string `json:"flow,omitempty"`
	// ModTime is the backing file's last modification time.
	ModTime time.Time `json:"mod_time"`
}

// String returns a human-readable description of the source.
func (s DataSource) String() string {
	if s.Type == SourceTypeSQLite {
		return fmt.Sprintf("%s#%s (%s)", s.Path, s.Flow, s.Type)
	}
	return fmt.Sprintf("%s (%s)", s.Path, s.Type)
}

// Detect classifies a path into a data source. SQLite sources may carry a
// flow name after a '#' separator: "flows.db#onboarding".
func Detect(path string) (DataSource, error) {
	flowName := ""
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path, flowName = path[:i], path[i+1:]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	src := DataSource{Path: abs, Flow: flowName}
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".db", ".sqlite", ".sqlite3":
		src.Type = SourceTypeSQLite
		if src.Flow == "" {
			src.Flow = "default"
		}
	default:
		src.Type = SourceTypeJSON
		if flowName != "" {
			return DataSource{}, fmt.Errorf("flow name %q only applies to sqlite sources", flowName)
		}
	}

	if info, err := os.Stat(abs); err == nil {
		src.ModTime = info.ModTime()
	}
	return src, nil
}
