// Package pathid derives hierarchical path identifiers for flow graph nodes.
//
// Every node reachable from a root question gets one identifier per distinct
// route, e.g. "T-Q1-A1-V2-Q3". Identifiers are derived state: they are
// reproducible byte-for-byte from (nodes, edges) and must never be edited by
// hand. The Generator is caller-owned; construct one per engine and pass it
// in explicitly rather than sharing an instance.
package pathid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vanderheijden86/quizflow/pkg/metrics"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

// DefaultTopic is used for a traversal root whose question carries no topic.
const DefaultTopic = "FLOW"

// OrphanedHandleError records an edge whose source handle references a
// variant or combination that no longer exists. It is collected and
// reported, never thrown: the derived path is simply dropped so callers can
// highlight the stale handle.
type OrphanedHandleError struct {
	NodeID string // answer node owning the handle
	Handle string // the stale source handle
	EdgeID string // edge attached to the stale handle
}

func (e *OrphanedHandleError) Error() string {
	return fmt.Sprintf("node %s: handle %q references a missing variant (edge %s)", e.NodeID, e.Handle, e.EdgeID)
}

// Generator derives path identifiers. It owns the per-type sequential
// numbering used in path strings; Reset clears that state so a generator can
// be reused across unrelated graphs.
type Generator struct {
	// Topic is the fallback label for roots without their own topic.
	Topic string

	ranks map[string]int // node id -> per-type sequential number
}

// NewGenerator returns a generator with the default fallback topic.
func NewGenerator() *Generator {
	return &Generator{Topic: DefaultTopic}
}

// Reset clears all numbering state. The next Rebuild or ExtendForEdge
// derives ranks from scratch.
func (g *Generator) Reset() {
	g.ranks = nil
}

// computeRanks assigns each node its fixed sequential number: the node's
// rank among all nodes of the same type, ordered by node id. Ranking by id
// rather than a per-parent counter keeps identifiers stable when siblings
// are reordered or re-parented.
func (g *Generator) computeRanks(nodes map[string]*model.Node) {
	byType := map[model.NodeType][]string{}
	for id, n := range nodes {
		byType[n.Type] = append(byType[n.Type], id)
	}
	g.ranks = make(map[string]int, len(nodes))
	for _, ids := range byType {
		sort.Strings(ids)
		for i, id := range ids {
			g.ranks[id] = i + 1
		}
	}
}

// rank returns the sequential number for a node, computing ranks on first
// use after a Reset.
func (g *Generator) rank(nodes map[string]*model.Node, id string) int {
	if g.ranks == nil {
		g.computeRanks(nodes)
	}
	r, ok := g.ranks[id]
	if !ok {
		// Node added since ranks were computed; re-derive the table.
		g.computeRanks(nodes)
		r = g.ranks[id]
	}
	return r
}

// entry is one unit of traversal work: derive paths for node id given the
// parent path that reached it.
type entry struct {
	id     string
	parent string // empty for roots
	level  int
}

// Rebuild recomputes every node's PathIDs and Level from scratch. All
// numbering state is reset first, so the result depends only on the current
// (nodes, edges) and the generator's fallback topic. Nodes unreachable from
// any root are labeled "ORPHAN-<letter><n>".
func (g *Generator) Rebuild(nodes map[string]*model.Node, edges map[string]*model.Edge) []*OrphanedHandleError {
	defer metrics.Timer(metrics.PathRebuild)()
	g.Reset()
	g.computeRanks(nodes)

	for _, n := range nodes {
		n.PathIDs = nil
		n.Level = 0
	}

	var orphaned []*OrphanedHandleError
	queue := g.rootEntries(nodes, edges)
	seen := make(map[string]bool)

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		key := e.id + "\x00" + e.parent
		if seen[key] {
			continue
		}
		seen[key] = true

		children, errs := g.step(nodes, edges, e)
		orphaned = append(orphaned, errs...)
		queue = append(queue, children...)
	}

	g.labelOrphans(nodes)
	return orphaned
}

// ExtendForEdge derives only the new path(s) introduced by a single added
// edge and appends them to the target (and transitively to its descendants)
// without disturbing any existing path. Full rebuilds after every connect
// would be disruptive to interactively edited graphs; this incremental form
// must produce strings following the exact same grammar as Rebuild.
func (g *Generator) ExtendForEdge(nodes map[string]*model.Node, edges map[string]*model.Edge, added *model.Edge) []*OrphanedHandleError {
	defer metrics.Timer(metrics.PathExtend)()
	source, ok := nodes[added.Source]
	if !ok {
		return nil
	}
	if _, ok := nodes[added.Target]; !ok {
		return nil
	}

	var (
		queue    []entry
		orphaned []*OrphanedHandleError
	)
	if len(source.PathIDs) == 0 && source.Type == model.NodeQuestion && !hasIncoming(edges, added.Source) {
		// A root question connected for the first time has no derived path
		// yet; traverse from the root so the whole chain below it (including
		// the new edge) gets its identifiers.
		queue = []entry{{id: added.Source}}
	} else {
		parents, errs := g.parentPathsForHandle(source, added)
		orphaned = errs
		for _, p := range parents {
			queue = append(queue, entry{id: added.Target, parent: p, level: source.Level + 1})
		}
	}

	seen := make(map[string]bool)
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		key := e.id + "\x00" + e.parent
		if seen[key] {
			continue
		}
		seen[key] = true

		children, errs := g.step(nodes, edges, e)
		orphaned = append(orphaned, errs...)
		queue = append(queue, children...)
	}
	return orphaned
}

func hasIncoming(edges map[string]*model.Edge, id string) bool {
	for _, e := range edges {
		if e.Target == id {
			return true
		}
	}
	return false
}

// rootEntries returns a traversal entry for every root question: a question
// node with no incoming edge. Sorted by id for deterministic order.
func (g *Generator) rootEntries(nodes map[string]*model.Node, edges map[string]*model.Edge) []entry {
	hasIncoming := make(map[string]bool, len(nodes))
	for _, e := range edges {
		hasIncoming[e.Target] = true
	}
	var roots []string
	for id, n := range nodes {
		if n.Type == model.NodeQuestion && !hasIncoming[id] {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	entries := make([]entry, len(roots))
	for i, id := range roots {
		entries[i] = entry{id: id}
	}
	return entries
}

// step derives the path(s) for a single traversal entry, records them on the
// node, and returns the child entries to continue with. This is the single
// implementation of the path grammar shared by Rebuild and ExtendForEdge.
func (g *Generator) step(nodes map[string]*model.Node, edges map[string]*model.Edge, e entry) ([]entry, []*OrphanedHandleError) {
	n, ok := nodes[e.id]
	if !ok {
		return nil, nil
	}
	if len(n.PathIDs) == 0 || e.level < n.Level {
		n.Level = e.level
	}

	switch n.Type {
	case model.NodeQuestion:
		prefix := e.parent
		if prefix == "" {
			prefix = n.Topic()
			if prefix == "" {
				prefix = g.Topic
			}
		}
		path := prefix + "-Q" + strconv.Itoa(g.rank(nodes, e.id))
		n.AddPathID(path)
		return childEntries(edges, e.id, model.HandleDefault, path, e.level+1), nil

	case model.NodeAnswer:
		return g.stepAnswer(nodes, edges, e, n)

	case model.NodeOutcome:
		n.AddPathID(e.parent + "-E" + strconv.Itoa(g.rank(nodes, e.id)))
		return nil, nil
	}
	return nil, nil
}

// stepAnswer handles the three branching modes. In single mode the base path
// itself identifies the answer and feeds the lone child. In multiple and
// combinations modes the base path is never recorded; only derived variant
// paths are, and each outgoing handle inherits its own derived path.
func (g *Generator) stepAnswer(nodes map[string]*model.Node, edges map[string]*model.Edge, e entry, n *model.Node) ([]entry, []*OrphanedHandleError) {
	base := e.parent + "-A" + strconv.Itoa(g.rank(nodes, e.id))
	var (
		children []entry
		orphaned []*OrphanedHandleError
	)

	switch n.Answer.Mode {
	case model.ModeSingle:
		n.AddPathID(base)
		children = childEntries(edges, e.id, model.HandleDefault, base, e.level+1)

	case model.ModeMultiple:
		for i := range n.Answer.Variants {
			n.AddPathID(variantPath(base, []int{i}))
		}
		for _, edge := range outgoing(edges, e.id) {
			i, ok := model.ParseVariantHandle(edge.SourceHandle)
			if !ok {
				continue
			}
			if i >= len(n.Answer.Variants) {
				orphaned = append(orphaned, &OrphanedHandleError{NodeID: e.id, Handle: edge.SourceHandle, EdgeID: edge.ID})
				continue
			}
			children = append(children, entry{id: edge.Target, parent: variantPath(base, []int{i}), level: e.level + 1})
		}

	case model.ModeCombinations:
		for _, combo := range model.Combinations(n.Answer.Variants) {
			n.AddPathID(variantPath(base, combo.Indices))
		}
		for _, edge := range outgoing(edges, e.id) {
			indices, ok := model.ParseCombinationHandle(edge.SourceHandle)
			if !ok {
				continue
			}
			if len(indices) > 0 && indices[len(indices)-1] >= len(n.Answer.Variants) {
				orphaned = append(orphaned, &OrphanedHandleError{NodeID: e.id, Handle: edge.SourceHandle, EdgeID: edge.ID})
				continue
			}
			children = append(children, entry{id: edge.Target, parent: variantPath(base, indices), level: e.level + 1})
		}
	}
	return children, orphaned
}

// parentPathsForHandle reconstructs the parent path(s) a new edge inherits
// from its source node and handle, using only the source's already-derived
// PathIDs. Used by the incremental update.
func (g *Generator) parentPathsForHandle(source *model.Node, added *model.Edge) ([]string, []*OrphanedHandleError) {
	switch source.Type {
	case model.NodeQuestion:
		return append([]string(nil), source.PathIDs...), nil

	case model.NodeAnswer:
		switch source.Answer.Mode {
		case model.ModeSingle:
			return append([]string(nil), source.PathIDs...), nil
		case model.ModeMultiple:
			i, ok := model.ParseVariantHandle(added.SourceHandle)
			if !ok {
				return nil, nil
			}
			if i >= len(source.Answer.Variants) {
				return nil, []*OrphanedHandleError{{NodeID: source.ID, Handle: added.SourceHandle, EdgeID: added.ID}}
			}
			return pathsWithSuffix(source.PathIDs, variantSuffix([]int{i})), nil
		case model.ModeCombinations:
			indices, ok := model.ParseCombinationHandle(added.SourceHandle)
			if !ok {
				return nil, nil
			}
			if len(indices) > 0 && indices[len(indices)-1] >= len(source.Answer.Variants) {
				return nil, []*OrphanedHandleError{{NodeID: source.ID, Handle: added.SourceHandle, EdgeID: added.ID}}
			}
			return pathsWithSuffix(source.PathIDs, variantSuffix(indices)), nil
		}
	}
	// Outcomes never propagate.
	return nil, nil
}

// labelOrphans assigns "ORPHAN-<letter><n>" identifiers to nodes the
// traversal never reached.
func (g *Generator) labelOrphans(nodes map[string]*model.Node) {
	for id, n := range nodes {
		if len(n.PathIDs) == 0 {
			n.AddPathID("ORPHAN-" + n.TypeLetter() + strconv.Itoa(g.rank(nodes, id)))
		}
	}
}

// variantSuffix renders the derived-path suffix for ascending variant
// indices, e.g. "-V1" or "-V1+V3" (indices are 1-based in path strings).
func variantSuffix(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = "V" + strconv.Itoa(idx+1)
	}
	return "-" + strings.Join(parts, "+")
}

func variantPath(base string, indices []int) string {
	return base + variantSuffix(indices)
}

// pathsWithSuffix filters paths ending in the given derived suffix.
func pathsWithSuffix(paths []string, suffix string) []string {
	var out []string
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) && len(p) > len(suffix) {
			out = append(out, p)
		}
	}
	return out
}

// outgoing returns the edges leaving a node, ordered by source handle then
// target for deterministic traversal.
func outgoing(edges map[string]*model.Edge, source string) []*model.Edge {
	var out []*model.Edge
	for _, e := range edges {
		if e.Source == source {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceHandle != out[j].SourceHandle {
			return out[i].SourceHandle < out[j].SourceHandle
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// childEntries builds traversal entries for every edge leaving (source,
// handle) with the given parent path.
func childEntries(edges map[string]*model.Edge, source, handle, parent string, level int) []entry {
	var out []entry
	for _, e := range outgoing(edges, source) {
		if e.SourceHandle == handle {
			out = append(out, entry{id: e.Target, parent: parent, level: level})
		}
	}
	return out
}
