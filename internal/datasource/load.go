package datasource

import (
	"fmt"
	"os"

	"github.com/vanderheijden86/quizflow/pkg/debug"
	"github.com/vanderheijden86/quizflow/pkg/export"
	"github.com/vanderheijden86/quizflow/pkg/metrics"
)

// Load reads the flow document behind a source.
func Load(src DataSource) (export.Document, error) {
	defer debug.LogEnterExit("datasource.Load")()
	defer metrics.Timer(metrics.DocumentLoad)()
	switch src.Type {
	case SourceTypeSQLite:
		r, err := OpenSQLite(src)
		if err != nil {
			return export.Document{}, err
		}
		defer r.Close()
		return r.LoadFlow(src.Flow)
	default:
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return export.Document{}, fmt.Errorf("read %s: %w", src.Path, err)
		}
		return export.UnmarshalDocument(data)
	}
}

// Save writes the flow document behind a source. JSON files are written
// atomically via a temp file rename; SQLite rows are upserted.
func Save(src DataSource, doc export.Document) error {
	defer debug.LogEnterExit("datasource.Save")()
	defer metrics.Timer(metrics.DocumentSave)()
	switch src.Type {
	case SourceTypeSQLite:
		w, err := OpenSQLite(src)
		if err != nil {
			return err
		}
		defer w.Close()
		return w.SaveFlow(src.Flow, doc)
	default:
		data, err := export.MarshalDocument(doc)
		if err != nil {
			return err
		}
		tmp := src.Path + ".tmp"
		if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", tmp, err)
		}
		if err := os.Rename(tmp, src.Path); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", tmp, err)
		}
		return nil
	}
}
