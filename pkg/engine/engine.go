// Package engine is the single owner of a flow graph: it sequences every
// mutation through validation, applies it to the store, re-derives path
// identifiers, and records history. External collaborators only ever see
// deep-copied state and per-mutation results; nothing mutates the
// collections directly.
package engine

import (
	"errors"
	"time"

	"github.com/vanderheijden86/quizflow/pkg/debug"
	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/history"
	"github.com/vanderheijden86/quizflow/pkg/layout"
	"github.com/vanderheijden86/quizflow/pkg/model"
	"github.com/vanderheijden86/quizflow/pkg/pathid"
)

// Options configures a new engine.
type Options struct {
	// HistoryCapacity bounds the undo ring; 0 means history.DefaultCapacity.
	HistoryCapacity int
	// Generator supplies path numbering; nil constructs a fresh one. Passing
	// it in keeps numbering state caller-owned and tests independent.
	Generator *pathid.Generator
}

// Engine owns the store, the history ring, and the path generator.
type Engine struct {
	store *flow.Store
	hist  *history.Ring
}

// Result reports a mutation outcome. Rejections are recoverable: the graph
// is untouched and Reason is suitable for surfacing directly in UI.
type Result struct {
	OK     bool
	Reason string
	Kind   flow.RejectionKind

	// DroppedEdges lists edges removed by a mode migration.
	DroppedEdges []*model.Edge
	// StaleHandles lists edges whose handles reference missing variants,
	// found while deriving paths. Data-quality findings, not failures.
	StaleHandles []*pathid.OrphanedHandleError
}

func ok() Result { return Result{OK: true} }

func rejected(err error) Result {
	var rej *flow.RejectionError
	if errors.As(err, &rej) {
		return Result{Reason: rej.Reason, Kind: rej.Kind}
	}
	return Result{Reason: err.Error()}
}

// New constructs an empty engine. The initial (empty) state seeds the
// history ring so the first mutation can be undone.
func New(opts Options) *Engine {
	e := &Engine{
		store: flow.NewStore(opts.Generator),
		hist:  history.New(opts.HistoryCapacity),
	}
	e.hist.Save(e.store.Snapshot())
	return e
}

// commit records the settled post-mutation state in history.
func (e *Engine) commit() {
	e.hist.Save(e.store.Snapshot())
}

// Nodes returns deep copies of all nodes, sorted by id.
func (e *Engine) Nodes() []*model.Node { return e.store.Nodes() }

// Edges returns copies of all edges, sorted by id.
func (e *Engine) Edges() []*model.Edge { return e.store.Edges() }

// Node returns a deep copy of one node.
func (e *Engine) Node(id string) (*model.Node, bool) { return e.store.Node(id) }

// Snapshot returns an immutable deep copy of the whole graph.
func (e *Engine) Snapshot() flow.Snapshot { return e.store.Snapshot() }

// Len returns node and edge counts.
func (e *Engine) Len() (nodes, edges int) { return e.store.Len() }

// AddNode inserts a node built with the model constructors.
func (e *Engine) AddNode(n *model.Node) Result {
	if err := e.store.AddNode(n); err != nil {
		return rejected(err)
	}
	e.commit()
	return ok()
}

// Connect adds a validated edge and incrementally derives the new paths.
func (e *Engine) Connect(source, target, handle string) Result {
	_, stale, err := e.store.Connect(source, target, handle)
	if err != nil {
		return rejected(err)
	}
	e.commit()
	r := ok()
	r.StaleHandles = stale
	return r
}

// CanConnect previews whether Connect would succeed, without mutating.
func (e *Engine) CanConnect(source, target, handle string) Result {
	if err := e.store.CanConnect(source, target, handle); err != nil {
		return rejected(err)
	}
	return ok()
}

// DeleteNode removes a node and every edge touching it. Downstream pathIds
// are left stale until PropagateAll (lazy invalidation).
func (e *Engine) DeleteNode(id string) Result {
	if err := e.store.RemoveNode(id); err != nil {
		return rejected(err)
	}
	e.commit()
	return ok()
}

// DeleteEdge removes a single edge.
func (e *Engine) DeleteEdge(id string) Result {
	if err := e.store.RemoveEdge(id); err != nil {
		return rejected(err)
	}
	e.commit()
	return ok()
}

// SetAnswerMode migrates an answer's branching mode, dropping edges whose
// handles are invalid under the new mode.
func (e *Engine) SetAnswerMode(id string, mode model.BranchMode) Result {
	dropped, err := e.store.SetAnswerMode(id, mode)
	if err != nil {
		return rejected(err)
	}
	e.commit()
	r := ok()
	r.DroppedEdges = dropped
	return r
}

// RenameTopic renames a root question's topic and rebuilds all paths.
func (e *Engine) RenameTopic(rootID, topic string) Result {
	if err := e.store.RenameTopic(rootID, topic); err != nil {
		return rejected(err)
	}
	e.commit()
	return ok()
}

// SetQuestionText updates question content.
func (e *Engine) SetQuestionText(id, text string) Result {
	if err := e.store.SetQuestionText(id, text); err != nil {
		return rejected(err)
	}
	e.commit()
	return ok()
}

// SetVariants replaces an answer's variants. Stale handles are flagged by
// the orphan pass, not dropped.
func (e *Engine) SetVariants(id string, variants []model.Variant) Result {
	if err := e.store.SetVariants(id, variants); err != nil {
		return rejected(err)
	}
	e.commit()
	return ok()
}

// SetRecommendation updates outcome content.
func (e *Engine) SetRecommendation(id, rec string) Result {
	if err := e.store.SetRecommendation(id, rec); err != nil {
		return rejected(err)
	}
	e.commit()
	return ok()
}

// MoveNode updates a position without recording history. Continuous drag
// interaction calls this per frame; CommitDrag records the single entry at
// drag end.
func (e *Engine) MoveNode(id string, pos model.Position) Result {
	if err := e.store.SetPosition(id, pos); err != nil {
		return rejected(err)
	}
	return ok()
}

// CommitDrag applies a batch of final drag positions as one history entry.
func (e *Engine) CommitDrag(positions map[string]model.Position) Result {
	e.store.SetPositions(positions)
	e.commit()
	return ok()
}

// Organize computes a fresh collision-free layout and applies it in a
// single atomic position replace, as one history entry.
func (e *Engine) Organize(opts layout.Options) Result {
	start := time.Now()
	snap := e.store.Snapshot()
	nodes := make([]*model.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes = append(nodes, n)
	}
	edges := make([]*model.Edge, 0, len(snap.Edges))
	for _, ed := range snap.Edges {
		edges = append(edges, ed)
	}
	positions := layout.Compute(nodes, edges, opts)
	e.store.SetPositions(positions)
	e.commit()
	debug.LogTiming("organize", time.Since(start))
	return ok()
}

// PropagateAll re-derives every path identifier from scratch. This is the
// explicit recovery point for pathIds left stale by deletes.
func (e *Engine) PropagateAll() Result {
	stale := e.store.PropagateAll()
	e.commit()
	r := ok()
	r.StaleHandles = stale
	return r
}

// Undo restores the previous settled state. A no-op at the oldest entry.
func (e *Engine) Undo() bool {
	snap, restored := e.hist.Undo()
	if restored {
		e.store.Restore(snap)
	}
	return restored
}

// Redo restores the next settled state. A no-op at the newest entry.
func (e *Engine) Redo() bool {
	snap, restored := e.hist.Redo()
	if restored {
		e.store.Restore(snap)
	}
	return restored
}

// CanUndo reports whether Undo would change state.
func (e *Engine) CanUndo() bool { return e.hist.CanUndo() }

// CanRedo reports whether Redo would change state.
func (e *Engine) CanRedo() bool { return e.hist.CanRedo() }

// ReplaceAll swaps in a whole new graph (import), re-derives every path,
// and records one history entry.
func (e *Engine) ReplaceAll(snap flow.Snapshot) Result {
	e.store.Restore(snap)
	stale := e.store.PropagateAll()
	e.commit()
	r := ok()
	r.StaleHandles = stale
	return r
}
