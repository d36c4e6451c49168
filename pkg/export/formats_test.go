package export_test

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/quizflow/pkg/export"
	"github.com/vanderheijden86/quizflow/pkg/testutil"
)

func TestText_JSON(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(2)

	out, err := export.Text(s.Snapshot(), export.FormatJSON)
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	var doc export.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not a valid document: %v", err)
	}
	if len(doc.Nodes) != 5 {
		t.Fatalf("document has %d nodes, want 5", len(doc.Nodes))
	}

	// Empty format means JSON.
	def, err := export.Text(s.Snapshot(), "")
	if err != nil {
		t.Fatalf("export default: %v", err)
	}
	if def != out {
		t.Fatalf("empty format should match json output")
	}
}

func TestText_DOT(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Branching(2)

	out, err := export.Text(s.Snapshot(), export.FormatDOT)
	if err != nil {
		t.Fatalf("export dot: %v", err)
	}
	for _, want := range []string{
		"digraph flow {",
		"rankdir=LR;",
		`"n001" -> "n002";`,
		`"n002" -> "n003" [label="variant-0"];`,
		`"n002" -> "n004" [label="variant-1"];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}
}

func TestText_Mermaid(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)

	out, err := export.Text(s.Snapshot(), export.FormatMermaid)
	if err != nil {
		t.Fatalf("export mermaid: %v", err)
	}
	for _, want := range []string{
		"flowchart LR",
		"n001 --> n002",
		"n002 --> n003",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid output missing %q:\n%s", want, out)
		}
	}
}

func TestText_MermaidEscapesLabels(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	snap := s.Snapshot()
	snap.Nodes["n003"].Outcome.Recommendation = "Use \"gentle\" cleanser"

	out, err := export.Text(snap, export.FormatMermaid)
	if err != nil {
		t.Fatalf("export mermaid: %v", err)
	}
	if strings.Contains(out, `\"gentle\"`) || strings.Contains(out, `""gentle""`) {
		t.Fatalf("double quotes leaked into mermaid label:\n%s", out)
	}
	if !strings.Contains(out, "'gentle'") {
		t.Fatalf("expected quotes rewritten to apostrophes:\n%s", out)
	}
}

func TestText_UnsupportedFormat(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	if _, err := export.Text(s.Snapshot(), "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
