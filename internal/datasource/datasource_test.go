package datasource

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/quizflow/pkg/export"
	"github.com/vanderheijden86/quizflow/pkg/testutil"
)

func testDocument(t *testing.T) export.Document {
	t.Helper()
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(2)
	return export.BuildDocument(s.Snapshot())
}

func TestDetect(t *testing.T) {
	tests := []struct {
		path     string
		wantType SourceType
		wantFlow string
		wantErr  bool
	}{
		{path: "flow.json", wantType: SourceTypeJSON},
		{path: "flow.JSON", wantType: SourceTypeJSON},
		{path: "noext", wantType: SourceTypeJSON},
		{path: "flows.db", wantType: SourceTypeSQLite, wantFlow: "default"},
		{path: "flows.sqlite", wantType: SourceTypeSQLite, wantFlow: "default"},
		{path: "flows.sqlite3", wantType: SourceTypeSQLite, wantFlow: "default"},
		{path: "flows.db#onboarding", wantType: SourceTypeSQLite, wantFlow: "onboarding"},
		{path: "flow.json#onboarding", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, err := Detect(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Detect(%q) succeeded, want error", tt.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect(%q): %v", tt.path, err)
			}
			if src.Type != tt.wantType {
				t.Errorf("type = %s, want %s", src.Type, tt.wantType)
			}
			if src.Flow != tt.wantFlow {
				t.Errorf("flow = %q, want %q", src.Flow, tt.wantFlow)
			}
			if !filepath.IsAbs(src.Path) {
				t.Errorf("path %q not absolute", src.Path)
			}
		})
	}
}

func TestDetect_CapturesModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := Detect(path)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if src.ModTime.IsZero() {
		t.Fatalf("mod time not captured for existing file")
	}
}

func TestDataSource_String(t *testing.T) {
	j := DataSource{Type: SourceTypeJSON, Path: "/tmp/flow.json"}
	if got := j.String(); !strings.Contains(got, "flow.json") || !strings.Contains(got, "json") {
		t.Errorf("String() = %q", got)
	}
	s := DataSource{Type: SourceTypeSQLite, Path: "/tmp/flows.db", Flow: "onboarding"}
	if got := s.String(); !strings.Contains(got, "flows.db#onboarding") {
		t.Errorf("String() = %q", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	doc := testDocument(t)
	path := filepath.Join(t.TempDir(), "flow.json")
	src, err := Detect(path)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if err := Save(src, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(doc, loaded) {
		t.Fatalf("loaded document differs from saved")
	}

	// No temp file left behind by the atomic write.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestLoad_MissingJSONFile(t *testing.T) {
	src, err := Detect(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if _, err := Load(src); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := Detect(path)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if _, err := Load(src); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	doc := testDocument(t)
	path := filepath.Join(t.TempDir(), "flows.db")

	src, err := Detect(path + "#onboarding")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if err := Save(src, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(doc, loaded) {
		t.Fatalf("loaded document differs from saved")
	}
}

func TestSQLite_UpsertReplacesDocument(t *testing.T) {
	doc := testDocument(t)
	path := filepath.Join(t.TempDir(), "flows.db")
	src, err := Detect(path)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if err := Save(src, doc); err != nil {
		t.Fatalf("first save: %v", err)
	}
	doc.Metadata.Topic = "CHANGED"
	if err := Save(src, doc); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metadata.Topic != "CHANGED" {
		t.Fatalf("topic = %q, want CHANGED", loaded.Metadata.Topic)
	}

	store, err := OpenSQLite(src)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	names, err := store.ListFlows()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != "default" {
		t.Fatalf("flows = %v, want [default]", names)
	}
}

func TestSQLite_ListFlowsSorted(t *testing.T) {
	doc := testDocument(t)
	path := filepath.Join(t.TempDir(), "flows.db")

	for _, name := range []string{"zeta", "alpha", "midway"} {
		src, err := Detect(path + "#" + name)
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if err := Save(src, doc); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	src, _ := Detect(path)
	store, err := OpenSQLite(src)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	names, err := store.ListFlows()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alpha", "midway", "zeta"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("flows = %v, want %v", names, want)
	}
}

func TestSQLite_LoadMissingFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.db")
	src, err := Detect(path + "#nope")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	store, err := OpenSQLite(src)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if _, err := store.LoadFlow("nope"); err == nil {
		t.Fatalf("expected error for missing flow")
	}
}

func TestOpenSQLite_RejectsJSONSource(t *testing.T) {
	if _, err := OpenSQLite(DataSource{Type: SourceTypeJSON, Path: "x.json"}); err == nil {
		t.Fatalf("expected error for non-sqlite source")
	}
}
