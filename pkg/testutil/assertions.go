package testutil

import (
	"testing"

	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

// AssertNodeCount verifies the expected number of nodes in the store.
func AssertNodeCount(t *testing.T, s *flow.Store, expected int) {
	t.Helper()
	nodes, _ := s.Len()
	if nodes != expected {
		t.Errorf("expected %d nodes, got %d", expected, nodes)
	}
}

// AssertEdgeCount verifies the expected number of edges in the store.
func AssertEdgeCount(t *testing.T, s *flow.Store, expected int) {
	t.Helper()
	_, edges := s.Len()
	if edges != expected {
		t.Errorf("expected %d edges, got %d", expected, edges)
	}
}

// AssertPathIDs verifies that a node carries exactly the given path ids,
// in sorted order.
func AssertPathIDs(t *testing.T, s *flow.Store, nodeID string, want ...string) {
	t.Helper()
	n, ok := s.Node(nodeID)
	if !ok {
		t.Fatalf("node %s not found", nodeID)
	}
	if len(n.PathIDs) != len(want) {
		t.Errorf("node %s: expected %d path ids %v, got %d %v",
			nodeID, len(want), want, len(n.PathIDs), n.PathIDs)
		return
	}
	for i, p := range want {
		if n.PathIDs[i] != p {
			t.Errorf("node %s path id %d: expected %q, got %q", nodeID, i, p, n.PathIDs[i])
		}
	}
}

// AssertHasPathID verifies that a node is reachable under the given path id.
func AssertHasPathID(t *testing.T, s *flow.Store, nodeID, path string) {
	t.Helper()
	n, ok := s.Node(nodeID)
	if !ok {
		t.Fatalf("node %s not found", nodeID)
	}
	if !n.HasPathID(path) {
		t.Errorf("node %s: expected path id %q, have %v", nodeID, path, n.PathIDs)
	}
}

// AssertEdgeExists verifies that an edge from source to target via handle exists.
func AssertEdgeExists(t *testing.T, s *flow.Store, source, target, handle string) {
	t.Helper()
	for _, e := range s.Edges() {
		if e.Source == source && e.Target == target && e.SourceHandle == handle {
			return
		}
	}
	t.Errorf("expected edge %s -[%s]-> %s not found", source, handle, target)
}

// AssertAllValid verifies every node in the store passes model validation.
func AssertAllValid(t *testing.T, s *flow.Store) {
	t.Helper()
	for _, n := range s.Nodes() {
		if err := n.Validate(); err != nil {
			t.Errorf("node %s invalid: %v", n.ID, err)
		}
	}
}

// AssertAcyclic verifies that the edge set contains no directed cycle.
// This is a simple DFS-based check suitable for small test graphs.
func AssertAcyclic(t *testing.T, s *flow.Store) {
	t.Helper()

	adj := make(map[string][]string)
	for _, e := range s.Edges() {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	visited := make(map[string]bool)
	inPath := make(map[string]bool)

	var hasCycle func(id string) bool
	hasCycle = func(id string) bool {
		if inPath[id] {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		inPath[id] = true
		for _, next := range adj[id] {
			if hasCycle(next) {
				return true
			}
		}
		inPath[id] = false
		return false
	}

	for _, n := range s.Nodes() {
		if hasCycle(n.ID) {
			t.Errorf("cycle detected involving node %s", n.ID)
			return
		}
	}
}

// AssertSnapshotsEqual verifies two snapshots hold the same nodes (by id,
// path ids, and position) and the same edges.
func AssertSnapshotsEqual(t *testing.T, a, b flow.Snapshot) {
	t.Helper()

	if len(a.Nodes) != len(b.Nodes) {
		t.Errorf("node count mismatch: %d vs %d", len(a.Nodes), len(b.Nodes))
	}
	for id, na := range a.Nodes {
		nb, ok := b.Nodes[id]
		if !ok {
			t.Errorf("node %s missing from second snapshot", id)
			continue
		}
		if na.Position != nb.Position {
			t.Errorf("node %s position mismatch: %+v vs %+v", id, na.Position, nb.Position)
		}
		if len(na.PathIDs) != len(nb.PathIDs) {
			t.Errorf("node %s path ids mismatch: %v vs %v", id, na.PathIDs, nb.PathIDs)
			continue
		}
		for i := range na.PathIDs {
			if na.PathIDs[i] != nb.PathIDs[i] {
				t.Errorf("node %s path ids mismatch: %v vs %v", id, na.PathIDs, nb.PathIDs)
				break
			}
		}
	}

	if len(a.Edges) != len(b.Edges) {
		t.Errorf("edge count mismatch: %d vs %d", len(a.Edges), len(b.Edges))
	}
	for id := range a.Edges {
		if _, ok := b.Edges[id]; !ok {
			t.Errorf("edge %s missing from second snapshot", id)
		}
	}
}

// MustConnect connects source to target and fails the test on rejection.
func MustConnect(t *testing.T, s *flow.Store, source, target, handle string) *model.Edge {
	t.Helper()
	e, _, err := s.Connect(source, target, handle)
	if err != nil {
		t.Fatalf("connect %s -[%s]-> %s: %v", source, handle, target, err)
	}
	return e
}

// MustAddNode adds a node and fails the test on rejection.
func MustAddNode(t *testing.T, s *flow.Store, n *model.Node) {
	t.Helper()
	if err := s.AddNode(n); err != nil {
		t.Fatalf("add node %s: %v", n.ID, err)
	}
}
