package datasource

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/quizflow/pkg/export"
)

// SQLiteStore reads and writes flow documents in a SQLite database, one
// document per named flow.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS flows (
	name       TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// OpenSQLite opens (and if needed initializes) a flows database.
func OpenSQLite(source DataSource) (*SQLiteStore, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not sqlite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, path: source.Path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadFlow reads one named flow document.
func (s *SQLiteStore) LoadFlow(name string) (export.Document, error) {
	var payload string
	err := s.db.QueryRow(`SELECT document FROM flows WHERE name = ?`, name).Scan(&payload)
	if err == sql.ErrNoRows {
		return export.Document{}, fmt.Errorf("flow %q not found in %s", name, s.path)
	}
	if err != nil {
		return export.Document{}, fmt.Errorf("query flow %q: %w", name, err)
	}
	return export.UnmarshalDocument([]byte(payload))
}

// SaveFlow upserts one named flow document.
func (s *SQLiteStore) SaveFlow(name string, doc export.Document) error {
	data, err := export.MarshalDocument(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO flows (name, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		name, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save flow %q: %w", name, err)
	}
	return nil
}

// ListFlows returns the stored flow names, sorted.
func (s *SQLiteStore) ListFlows() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM flows`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
