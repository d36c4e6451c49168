package engine

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/quizflow/pkg/model"
)

// Fragment is a self-contained subset of a flow graph, used for copy/paste.
// Edges are included only when both endpoints are inside the subset.
type Fragment struct {
	Nodes []*model.Node `json:"nodes"`
	Edges []*model.Edge `json:"edges"`
}

// Copy extracts a deep-copied fragment for the given node ids. Unknown ids
// are skipped. Copied path identifiers are cleared: they describe routes in
// the source graph, not the fragment.
func (e *Engine) Copy(ids []string) Fragment {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var frag Fragment
	for _, n := range e.store.Nodes() {
		if !want[n.ID] {
			continue
		}
		n.PathIDs = nil
		frag.Nodes = append(frag.Nodes, n)
	}
	for _, ed := range e.store.Edges() {
		if want[ed.Source] && want[ed.Target] {
			frag.Edges = append(frag.Edges, ed)
		}
	}
	return frag
}

// Paste inserts a fragment, re-keying every node id that collides with an
// existing node (deterministically: "<id>-2", "<id>-3", ...) and offsetting
// positions slightly so the pasted nodes don't sit exactly on the originals.
// Pasted root questions drop their root flag and topic: a paste must never
// introduce a duplicate topic, and the subtree re-roots when connected.
// Edges are re-validated; any that no longer pass are skipped. The whole
// paste is one history entry.
func (e *Engine) Paste(frag Fragment) (Result, map[string]string) {
	const pasteOffset = 40.0

	pre := e.store.Snapshot()
	rename := make(map[string]string, len(frag.Nodes))
	sortedNodes := append([]*model.Node(nil), frag.Nodes...)
	sort.Slice(sortedNodes, func(i, j int) bool { return sortedNodes[i].ID < sortedNodes[j].ID })

	for _, n := range sortedNodes {
		c := n.Clone()
		newID := c.ID
		if _, exists := e.store.Node(newID); exists {
			newID = e.freeID(c.ID, rename)
		}
		rename[n.ID] = newID
		c.ID = newID
		c.PathIDs = nil
		c.Level = 0
		c.Position.X += pasteOffset
		c.Position.Y += pasteOffset
		if c.IsRoot() {
			c.Question.IsRoot = false
			c.Question.Topic = ""
		}
		if err := e.store.AddNode(c); err != nil {
			e.store.Restore(pre)
			return rejected(err), nil
		}
	}

	sortedEdges := append([]*model.Edge(nil), frag.Edges...)
	sort.Slice(sortedEdges, func(i, j int) bool { return sortedEdges[i].ID < sortedEdges[j].ID })
	r := ok()
	for _, ed := range sortedEdges {
		src, okSrc := rename[ed.Source]
		dst, okDst := rename[ed.Target]
		if !okSrc || !okDst {
			continue
		}
		if _, s, err := e.store.Connect(src, dst, ed.SourceHandle); err == nil {
			r.StaleHandles = append(r.StaleHandles, s...)
		}
	}
	e.commit()
	return r, rename
}

// freeID finds the first unclaimed "<id>-<n>" suffix, also avoiding ids
// already promised in the current rename set.
func (e *Engine) freeID(id string, rename map[string]string) string {
	taken := func(candidate string) bool {
		if _, exists := e.store.Node(candidate); exists {
			return true
		}
		for _, v := range rename {
			if v == candidate {
				return true
			}
		}
		return false
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
