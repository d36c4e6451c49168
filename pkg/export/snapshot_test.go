package export_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/quizflow/pkg/export"
	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/testutil"
)

func TestSaveSnapshot_SVG(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(2)
	path := filepath.Join(t.TempDir(), "flow.svg")

	err := export.SaveSnapshot(s.Snapshot(), export.SnapshotOptions{
		Path:     path,
		Title:    "Skin routine",
		DataHash: "deadbeef",
	})
	if err != nil {
		t.Fatalf("save svg: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	for _, want := range []string{"<svg", "Skin routine", "deadbeef", "TEST-Q1"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestSaveSnapshot_PNG(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	path := filepath.Join(t.TempDir(), "flow.png")

	if err := export.SaveSnapshot(s.Snapshot(), export.SnapshotOptions{Path: path}); err != nil {
		t.Fatalf("save png: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatalf("output is not a PNG")
	}
}

func TestSaveSnapshot_Both(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	dir := t.TempDir()

	err := export.SaveSnapshot(s.Snapshot(), export.SnapshotOptions{
		Path:   filepath.Join(dir, "flow.svg"),
		Format: "both",
		Preset: "roomy",
	})
	if err != nil {
		t.Fatalf("save both: %v", err)
	}
	for _, name := range []string{"flow.svg", "flow.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestSaveSnapshot_InfersFormatAndExtension(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	base := filepath.Join(t.TempDir(), "flow")

	if err := export.SaveSnapshot(s.Snapshot(), export.SnapshotOptions{Path: base}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(base + ".svg"); err != nil {
		t.Fatalf("extensionless path should produce .svg: %v", err)
	}
}

func TestSaveSnapshot_UseExistingPositions(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	snap := s.Snapshot()
	x := 100.0
	for _, id := range []string{"n001", "n002", "n003"} {
		snap.Nodes[id].Position.X = x
		snap.Nodes[id].Position.Y = 200
		x += 400
	}
	path := filepath.Join(t.TempDir(), "flow.svg")

	if err := export.SaveSnapshot(snap, export.SnapshotOptions{Path: path, UseExisting: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("missing output: %v", err)
	}
}

func TestSaveSnapshot_Errors(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)

	if err := export.SaveSnapshot(flow.Snapshot{}, export.SnapshotOptions{Path: "x.svg"}); err == nil {
		t.Errorf("expected error for empty flow")
	}
	if err := export.SaveSnapshot(s.Snapshot(), export.SnapshotOptions{}); err == nil {
		t.Errorf("expected error for missing path")
	}
	if err := export.SaveSnapshot(s.Snapshot(), export.SnapshotOptions{Path: "x.svg", Format: "gif"}); err == nil {
		t.Errorf("expected error for unsupported format")
	}
}
