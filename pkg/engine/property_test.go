package engine

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/quizflow/pkg/model"
)

// committedAcyclic runs a three-color depth-first search over the engine's
// committed edge set and reports whether it is cycle-free.
func committedAcyclic(e *Engine) bool {
	adj := make(map[string][]string)
	for _, ed := range e.Edges() {
		adj[ed.Source] = append(adj[ed.Source], ed.Target)
	}

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int)

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case inProgress:
			return false
		case done:
			return true
		}
		state[id] = inProgress
		for _, next := range adj[id] {
			if !visit(next) {
				return false
			}
		}
		state[id] = done
		return true
	}

	for _, n := range e.Nodes() {
		if !visit(n.ID) {
			return false
		}
	}
	return true
}

// TestRandomMutationSequences_StayAcyclic drives long random sequences of
// adds, connects, and deletes through the engine. Connects are drawn
// blindly, so most get rejected for adjacency, occupancy, or cycle
// reasons; rejected mutations must leave the graph byte-for-byte
// untouched, and the committed edge set must stay acyclic throughout.
func TestRandomMutationSequences_StayAcyclic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New(Options{})
		steps := rapid.IntRange(20, 200).Draw(t, "steps")

		var ids []string
		next := 0
		add := func(n *model.Node) {
			if r := e.AddNode(n); !r.OK {
				t.Fatalf("add %s rejected: %s", n.ID, r.Reason)
			}
			ids = append(ids, n.ID)
		}
		pick := func(label string) string {
			return rapid.SampledFrom(ids).Draw(t, label)
		}

		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 9).Draw(t, fmt.Sprintf("op%d", i))
			next++

			switch {
			case op <= 1 || len(ids) == 0:
				add(model.NewQuestion(fmt.Sprintf("q%03d", next), "Q?", false, ""))
			case op == 2:
				add(model.NewAnswer(fmt.Sprintf("a%03d", next), model.ModeSingle,
					model.Variant{Text: "Yes"}, model.Variant{Text: "No"}))
			case op == 3:
				add(model.NewAnswer(fmt.Sprintf("m%03d", next), model.ModeMultiple,
					model.Variant{Text: "A"}, model.Variant{Text: "B"}, model.Variant{Text: "C"}))
			case op == 4:
				add(model.NewOutcome(fmt.Sprintf("o%03d", next), "Done"))
			case op == 9 && len(ids) > 1:
				// Occasional delete, which also drops incident edges.
				victim := pick(fmt.Sprintf("del%d", i))
				if r := e.DeleteNode(victim); !r.OK {
					t.Fatalf("delete %s rejected: %s", victim, r.Reason)
				}
				for j, id := range ids {
					if id == victim {
						ids = append(ids[:j], ids[j+1:]...)
						break
					}
				}
			default:
				source := pick(fmt.Sprintf("src%d", i))
				target := pick(fmt.Sprintf("dst%d", i))
				handle := model.HandleDefault
				if n, ok := e.Node(source); ok && n.Type == model.NodeAnswer && n.Answer.Mode == model.ModeMultiple {
					handle = model.VariantHandle(rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("h%d", i)))
				}

				pre := e.Snapshot()
				r := e.Connect(source, target, handle)
				if !r.OK {
					post := e.Snapshot()
					if len(post.Nodes) != len(pre.Nodes) || len(post.Edges) != len(pre.Edges) {
						t.Fatalf("rejected connect %s->%s mutated the graph", source, target)
					}
				}
			}

			if !committedAcyclic(e) {
				t.Fatalf("cycle in committed edges after step %d", i)
			}
		}
	})
}
