package engine

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/quizflow/pkg/model"
)

// NodeFlags carries the derived per-node highlighting state the rendering
// layer consumes.
type NodeFlags struct {
	// IsOrphaned is set when the node lacks a required connection: inbound
	// for anything but a root question, outbound for anything but an
	// outcome. Nodes whose identifiers start with "ORPHAN-" (unreachable
	// from every root) are orphaned by definition.
	IsOrphaned bool
	// OrphanedHandles lists source handles whose edges reference variants
	// or combinations that no longer exist.
	OrphanedHandles []string
	// MissingHandles lists declared output handles with no connection yet.
	MissingHandles []string
}

// Flags computes the orphan state for every node from the current graph.
func (e *Engine) Flags() map[string]NodeFlags {
	snap := e.store.Snapshot()
	flags := make(map[string]NodeFlags, len(snap.Nodes))

	hasIncoming := make(map[string]bool)
	outByHandle := make(map[string]map[string]bool)
	for _, ed := range snap.Edges {
		hasIncoming[ed.Target] = true
		if outByHandle[ed.Source] == nil {
			outByHandle[ed.Source] = make(map[string]bool)
		}
		outByHandle[ed.Source][ed.SourceHandle] = true
	}

	for id, n := range snap.Nodes {
		f := NodeFlags{}

		needsInbound := !n.IsRoot()
		if needsInbound && !hasIncoming[id] {
			f.IsOrphaned = true
		}
		needsOutbound := n.Type != model.NodeOutcome
		if needsOutbound && len(outByHandle[id]) == 0 {
			f.IsOrphaned = true
		}
		for _, p := range n.PathIDs {
			if strings.HasPrefix(p, "ORPHAN-") {
				f.IsOrphaned = true
				break
			}
		}

		if n.Type == model.NodeAnswer {
			f.OrphanedHandles = staleHandles(n, snap.Edges)
			f.MissingHandles = missingHandles(n, outByHandle[id])
		} else if needsOutbound && !outByHandle[id][model.HandleDefault] {
			f.MissingHandles = []string{model.HandleDefault}
		}

		flags[id] = f
	}
	return flags
}

// staleHandles finds outgoing edge handles referencing variants that no
// longer exist on the answer.
func staleHandles(n *model.Node, edges map[string]*model.Edge) []string {
	var stale []string
	for _, ed := range edges {
		if ed.Source != n.ID {
			continue
		}
		switch n.Answer.Mode {
		case model.ModeSingle:
			if ed.SourceHandle != model.HandleDefault {
				stale = append(stale, ed.SourceHandle)
			}
		case model.ModeMultiple:
			i, okHandle := model.ParseVariantHandle(ed.SourceHandle)
			if !okHandle || i >= len(n.Answer.Variants) {
				stale = append(stale, ed.SourceHandle)
			}
		case model.ModeCombinations:
			indices, okHandle := model.ParseCombinationHandle(ed.SourceHandle)
			if !okHandle || indices[len(indices)-1] >= len(n.Answer.Variants) {
				stale = append(stale, ed.SourceHandle)
			}
		}
	}
	sort.Strings(stale)
	return stale
}

// missingHandles lists the handles an answer declares under its mode that
// carry no connection yet.
func missingHandles(n *model.Node, connected map[string]bool) []string {
	var missing []string
	switch n.Answer.Mode {
	case model.ModeSingle:
		if !connected[model.HandleDefault] {
			missing = append(missing, model.HandleDefault)
		}
	case model.ModeMultiple:
		for i := range n.Answer.Variants {
			if h := model.VariantHandle(i); !connected[h] {
				missing = append(missing, h)
			}
		}
	case model.ModeCombinations:
		for _, combo := range model.Combinations(n.Answer.Variants) {
			if h := combo.Handle(); !connected[h] {
				missing = append(missing, h)
			}
		}
	}
	return missing
}
