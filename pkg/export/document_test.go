package export_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/quizflow/pkg/export"
	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/model"
	"github.com/vanderheijden86/quizflow/pkg/testutil"
)

func TestDocument_RoundTrip(t *testing.T) {
	s := testutil.NewGenerator(testutil.GeneratorConfig{Topic: "SKIN"}).Linear(3)
	before := s.Snapshot()

	doc := export.BuildDocument(before)
	if doc.Metadata.Topic != "SKIN" {
		t.Fatalf("document topic = %q, want SKIN", doc.Metadata.Topic)
	}
	if doc.Metadata.Version != export.DocumentVersion {
		t.Fatalf("document version = %q, want %q", doc.Metadata.Version, export.DocumentVersion)
	}

	data, err := export.MarshalDocument(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := export.UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	after, report, err := export.ResolveDocument(parsed, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(report.Conflicts) != 0 || len(report.Unresolved) != 0 {
		t.Fatalf("clean import produced findings: %+v", report)
	}
	testutil.AssertSnapshotsEqual(t, before, after)
}

func TestDocument_RoundTripBranchModes(t *testing.T) {
	for name, snap := range map[string]flow.Snapshot{
		"multiple":     testutil.NewGenerator(testutil.DefaultConfig()).Branching(4).Snapshot(),
		"combinations": testutil.NewGenerator(testutil.DefaultConfig()).Combination(3).Snapshot(),
	} {
		t.Run(name, func(t *testing.T) {
			doc := export.BuildDocument(snap)
			after, report, err := export.ResolveDocument(doc, nil)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if len(report.Unresolved) != 0 {
				t.Fatalf("unresolved targets: %v", report.Unresolved)
			}
			testutil.AssertSnapshotsEqual(t, snap, after)
		})
	}
}

func TestResolveDocument_RenamesConflicts(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	doc := export.BuildDocument(s.Snapshot())

	taken := map[string]bool{"n001": true, "n001-2": true, "n002": true}
	snap, report, err := export.ResolveDocument(doc, taken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := map[string]string{"n001": "n001-3", "n002": "n002-2"}
	if len(report.Conflicts) != len(want) {
		t.Fatalf("got %d conflicts, want %d: %+v", len(report.Conflicts), len(want), report.Conflicts)
	}
	for _, c := range report.Conflicts {
		if want[c.OldID] != c.NewID {
			t.Errorf("conflict %s renamed to %s, want %s", c.OldID, c.NewID, want[c.OldID])
		}
		if !strings.Contains(c.Error(), c.NewID) {
			t.Errorf("error text %q should mention new id", c.Error())
		}
	}
	if _, ok := snap.Nodes["n001-3"]; !ok {
		t.Fatalf("renamed node n001-3 missing from snapshot")
	}

	// Navigation must follow the renames: the root still reaches its answer.
	found := false
	for _, e := range snap.Edges {
		if e.Source == "n001-3" && e.Target == "n002-2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("edge between renamed nodes missing; edges: %v", snap.Edges)
	}
}

func TestResolveDocument_ReportsUnresolvedTargets(t *testing.T) {
	s := testutil.NewGenerator(testutil.DefaultConfig()).Linear(1)
	doc := export.BuildDocument(s.Snapshot())

	// Point the answer's default somewhere that no node's pathId matches.
	nav := doc.Navigation["n002"]
	nav.Default = "TEST-Q9-A9-E9"
	doc.Navigation["n002"] = nav

	snap, report, err := export.ResolveDocument(doc, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(report.Unresolved) != 1 {
		t.Fatalf("got %d unresolved, want 1: %v", len(report.Unresolved), report.Unresolved)
	}
	if !strings.Contains(report.Unresolved[0], "TEST-Q9-A9-E9") {
		t.Fatalf("unresolved entry %q should name the missing path", report.Unresolved[0])
	}
	// The bad edge is skipped, the good one kept.
	if len(snap.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(snap.Edges))
	}
}

func TestResolveDocument_RejectsInvalidNode(t *testing.T) {
	doc := export.Document{
		Nodes: map[string]export.DocNode{
			"bad": {Type: model.NodeQuestion}, // no content
		},
	}
	if _, _, err := export.ResolveDocument(doc, nil); err == nil {
		t.Fatalf("expected error for node without content")
	}
}

func TestDataHash(t *testing.T) {
	a := export.DataHash([]byte("flow-a"))
	if a != export.DataHash([]byte("flow-a")) {
		t.Fatalf("hash not deterministic")
	}
	if a == export.DataHash([]byte("flow-b")) {
		t.Fatalf("distinct inputs share a hash")
	}
}
