package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/quizflow/pkg/config"
	"github.com/vanderheijden86/quizflow/pkg/engine"
	"github.com/vanderheijden86/quizflow/pkg/export"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(engine.Options{})
	for _, n := range []*model.Node{
		model.NewQuestion("q1", "Skin type?", true, "SKIN"),
		model.NewAnswer("a1", model.ModeSingle, model.Variant{Text: "Dry"}),
		model.NewOutcome("o1", "Moisturize"),
		model.NewOutcome("stray", "Unreachable"),
	} {
		if res := eng.AddNode(n); !res.OK {
			t.Fatalf("add %s: %s", n.ID, res.Reason)
		}
	}
	for _, c := range [][3]string{
		{"q1", "a1", model.HandleDefault},
		{"a1", "o1", model.HandleDefault},
	} {
		if res := eng.Connect(c[0], c[1], c[2]); !res.OK {
			t.Fatalf("connect %s -> %s: %s", c[0], c[1], res.Reason)
		}
	}
	return eng
}

func TestBuildCheckReport(t *testing.T) {
	eng := testEngine(t)
	imp := export.ImportReport{Unresolved: []string{`x["default"] -> GONE-Q1`}}

	rep := buildCheckReport(eng, imp)

	if rep.NodeCount != 4 || rep.EdgeCount != 2 {
		t.Errorf("counts = %d nodes, %d edges; want 4, 2", rep.NodeCount, rep.EdgeCount)
	}
	if rep.OrphanedNodes != 1 {
		t.Errorf("OrphanedNodes = %d, want 1 (stray outcome)", rep.OrphanedNodes)
	}
	if len(rep.Unresolved) != 1 {
		t.Errorf("Unresolved = %v", rep.Unresolved)
	}

	var found bool
	for _, f := range rep.Findings {
		if f.NodeID == "stray" && f.Severity == "error" {
			found = true
		}
		if f.NodeID == "q1" && f.Severity == "error" {
			t.Errorf("q1 flagged as error: %+v", f)
		}
	}
	if !found {
		t.Errorf("stray outcome not reported: %+v", rep.Findings)
	}
}

func TestPrintCheckReport_Summary(t *testing.T) {
	eng := testEngine(t)

	var buf strings.Builder
	printCheckReport(&buf, buildCheckReport(eng, export.ImportReport{}), true)
	out := buf.String()
	if !strings.Contains(out, "FAIL") {
		t.Errorf("orphaned node should fail the check:\n%s", out)
	}
	if !strings.Contains(out, "4 nodes, 2 edges") {
		t.Errorf("summary missing counts:\n%s", out)
	}
}

func TestPrintCheckReport_CleanFlow(t *testing.T) {
	eng := testEngine(t)
	if res := eng.DeleteNode("stray"); !res.OK {
		t.Fatalf("delete: %s", res.Reason)
	}

	var buf strings.Builder
	printCheckReport(&buf, buildCheckReport(eng, export.ImportReport{}), false)
	if !strings.Contains(buf.String(), "OK") {
		t.Errorf("clean flow should pass:\n%s", buf.String())
	}
}

func TestTruncatePlain(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 20, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a long detail line that needs cutting", 12, "a long deta…"},
		{"tiny budget is raised to the floor", 2, "tiny bu…"},
	}
	for _, tt := range tests {
		if got := truncatePlain(tt.in, tt.max); got != tt.want {
			t.Errorf("truncatePlain(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestCmdCheck_ExitSignaling(t *testing.T) {
	writeFlow := func(t *testing.T, eng *engine.Engine) string {
		t.Helper()
		data, err := export.MarshalDocument(export.BuildDocument(eng.Snapshot()))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		path := filepath.Join(t.TempDir(), "flow.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return path
	}

	// A flow with an orphaned node signals failure through the sentinel, so
	// main can finish its debug reporting before choosing the exit code.
	eng := testEngine(t)
	err := cmdCheck(config.DefaultConfig(), []string{"-quiet", writeFlow(t, eng)})
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("check of flow with orphan returned %v, want errCheckFailed", err)
	}

	if res := eng.DeleteNode("stray"); !res.OK {
		t.Fatalf("delete stray: %s", res.Reason)
	}
	if err := cmdCheck(config.DefaultConfig(), []string{"-quiet", writeFlow(t, eng)}); err != nil {
		t.Fatalf("check of clean flow returned %v, want nil", err)
	}
}
