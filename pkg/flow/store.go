// Package flow holds the canonical flow graph state and gatekeeps every
// structural mutation. The Store is the single source of truth: readers get
// deep-copied snapshots, writers go through validated commands, and no
// collaborator ever mutates the collections directly.
package flow

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/quizflow/pkg/debug"
	"github.com/vanderheijden86/quizflow/pkg/model"
	"github.com/vanderheijden86/quizflow/pkg/pathid"
)

// Store owns the node and edge collections plus the path generator that
// keeps identifiers in sync with structure.
type Store struct {
	nodes map[string]*model.Node
	edges map[string]*model.Edge
	gen   *pathid.Generator
}

// NewStore builds an empty store around a caller-owned path generator.
func NewStore(gen *pathid.Generator) *Store {
	if gen == nil {
		gen = pathid.NewGenerator()
	}
	return &Store{
		nodes: make(map[string]*model.Node),
		edges: make(map[string]*model.Edge),
		gen:   gen,
	}
}

// Snapshot is an immutable deep copy of the graph, used by history and by
// readers that must observe a settled state.
type Snapshot struct {
	Nodes map[string]*model.Node
	Edges map[string]*model.Edge
}

// Snapshot deep-copies the current graph.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Nodes: model.CloneNodes(s.nodes),
		Edges: model.CloneEdges(s.edges),
	}
}

// Restore atomically replaces the graph with a snapshot's contents. The
// snapshot is cloned again so history entries stay immutable.
func (s *Store) Restore(snap Snapshot) {
	s.nodes = model.CloneNodes(snap.Nodes)
	s.edges = model.CloneEdges(snap.Edges)
}

// Node returns a deep copy of one node.
func (s *Store) Node(id string) (*model.Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Nodes returns deep copies of all nodes, sorted by id.
func (s *Store) Nodes() []*model.Node {
	out := make([]*model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns copies of all edges, sorted by id.
func (s *Store) Edges() []*model.Edge {
	out := make([]*model.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the node and edge counts.
func (s *Store) Len() (nodes, edges int) {
	return len(s.nodes), len(s.edges)
}

// AddNode inserts a new node. Root questions must not claim a topic another
// root already holds.
func (s *Store) AddNode(n *model.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if _, exists := s.nodes[n.ID]; exists {
		return reject(RejectDuplicateNode, fmt.Sprintf("node %s already exists", n.ID))
	}
	if err := s.checkTopicUnique(n); err != nil {
		return err
	}
	s.nodes[n.ID] = n.Clone()
	return nil
}

// Connect validates and appends an edge, then incrementally derives the new
// path(s) it introduces and propagates the nearest-ancestor topic onto the
// target if the target lacks one. Returns any stale-handle findings from the
// incremental derivation.
func (s *Store) Connect(source, target, handle string) (*model.Edge, []*pathid.OrphanedHandleError, error) {
	if err := s.CanConnect(source, target, handle); err != nil {
		return nil, nil, err
	}
	e := model.NewEdge(source, target, handle)
	s.edges[e.ID] = e
	s.propagateTopic(target)
	orphaned := s.gen.ExtendForEdge(s.nodes, s.edges, e)
	debug.Log("connect %s -[%s]-> %s (%d stale handles)", source, handle, target, len(orphaned))
	return e.Clone(), orphaned, nil
}

// RemoveEdge deletes a single edge. Downstream pathIds are not purged here;
// call PropagateAll to re-derive everything.
func (s *Store) RemoveEdge(id string) error {
	if _, ok := s.edges[id]; !ok {
		return reject(RejectMissingNode, fmt.Sprintf("edge %s does not exist", id))
	}
	delete(s.edges, id)
	return nil
}

// RemoveNode deletes a node and cascades to every edge touching it.
// Stale downstream pathIds are left for the orphan pass (lazy invalidation).
func (s *Store) RemoveNode(id string) error {
	if _, ok := s.nodes[id]; !ok {
		return reject(RejectMissingNode, fmt.Sprintf("node %s does not exist", id))
	}
	for eid, e := range s.edges {
		if e.Source == id || e.Target == id {
			delete(s.edges, eid)
		}
	}
	delete(s.nodes, id)
	return nil
}

// SetPosition moves a node. Position is presentation state: no validation
// and no path derivation.
func (s *Store) SetPosition(id string, pos model.Position) error {
	n, ok := s.nodes[id]
	if !ok {
		return reject(RejectMissingNode, fmt.Sprintf("node %s does not exist", id))
	}
	n.Position = pos
	return nil
}

// SetPositions applies a whole position map in one step, so readers never
// observe a partially updated layout.
func (s *Store) SetPositions(positions map[string]model.Position) {
	for id, pos := range positions {
		if n, ok := s.nodes[id]; ok {
			n.Position = pos
		}
	}
}

// SetQuestionText updates a question's prompt.
func (s *Store) SetQuestionText(id, text string) error {
	n, ok := s.nodes[id]
	if !ok || n.Type != model.NodeQuestion {
		return reject(RejectMissingNode, fmt.Sprintf("question %s does not exist", id))
	}
	n.Question.Text = text
	return nil
}

// SetRecommendation updates an outcome's recommendation.
func (s *Store) SetRecommendation(id, rec string) error {
	n, ok := s.nodes[id]
	if !ok || n.Type != model.NodeOutcome {
		return reject(RejectMissingNode, fmt.Sprintf("outcome %s does not exist", id))
	}
	n.Outcome.Recommendation = rec
	return nil
}

// SetVariants replaces an answer's variant list. Edges whose handles now
// reference missing variants are kept but become stale; the orphan pass
// flags them.
func (s *Store) SetVariants(id string, variants []model.Variant) error {
	n, ok := s.nodes[id]
	if !ok || n.Type != model.NodeAnswer {
		return reject(RejectMissingNode, fmt.Sprintf("answer %s does not exist", id))
	}
	n.Answer.Variants = append([]model.Variant(nil), variants...)
	return nil
}

// SetAnswerMode migrates an answer to a new branching mode. Outgoing edges
// whose handles are invalid under the new mode are dropped explicitly rather
// than left stale, and paths are fully re-derived since the grammar for the
// answer's subtree changes.
func (s *Store) SetAnswerMode(id string, mode model.BranchMode) (dropped []*model.Edge, err error) {
	n, ok := s.nodes[id]
	if !ok || n.Type != model.NodeAnswer {
		return nil, reject(RejectMissingNode, fmt.Sprintf("answer %s does not exist", id))
	}
	switch mode {
	case model.ModeSingle, model.ModeMultiple, model.ModeCombinations:
	default:
		return nil, fmt.Errorf("unknown branch mode %q", mode)
	}
	if n.Answer.Mode == mode {
		return nil, nil
	}
	n.Answer.Mode = mode
	for eid, e := range s.edges {
		if e.Source != id {
			continue
		}
		if checkHandle(n, e.SourceHandle) != nil {
			dropped = append(dropped, e.Clone())
			delete(s.edges, eid)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i].ID < dropped[j].ID })
	s.gen.Rebuild(s.nodes, s.edges)
	debug.Log("answer %s -> %s mode, dropped %d edges", id, mode, len(dropped))
	return dropped, nil
}

// RenameTopic changes a root question's topic and rebuilds every path from
// scratch, since the topic prefixes the whole subtree.
func (s *Store) RenameTopic(rootID, topic string) error {
	n, ok := s.nodes[rootID]
	if !ok || !n.IsRoot() {
		return reject(RejectMissingNode, fmt.Sprintf("root question %s does not exist", rootID))
	}
	for id, other := range s.nodes {
		if id != rootID && other.IsRoot() && other.Topic() == topic {
			return reject(RejectDuplicateTopic, fmt.Sprintf("topic %q is already claimed by root %s", topic, id))
		}
	}
	n.Question.Topic = topic
	s.propagateTopicsFrom(rootID)
	s.gen.Rebuild(s.nodes, s.edges)
	return nil
}

// PropagateAll re-derives every path identifier from scratch and returns any
// stale-handle findings. This is the explicit recovery point for the lazy
// invalidation left behind by deletes.
func (s *Store) PropagateAll() []*pathid.OrphanedHandleError {
	return s.gen.Rebuild(s.nodes, s.edges)
}

// propagateTopic copies the nearest-ancestor topic onto a question that has
// none yet. Walks incoming edges breadth-first until a topic is found.
func (s *Store) propagateTopic(target string) {
	n, ok := s.nodes[target]
	if !ok || n.Type != model.NodeQuestion || n.Question.Topic != "" {
		return
	}
	visited := map[string]bool{target: true}
	queue := []string{target}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.edges {
			if e.Target != cur || visited[e.Source] {
				continue
			}
			visited[e.Source] = true
			if parent := s.nodes[e.Source]; parent != nil && parent.Topic() != "" {
				n.Question.Topic = parent.Topic()
				return
			}
			queue = append(queue, e.Source)
		}
	}
}

// propagateTopicsFrom pushes a (possibly renamed) topic down to every
// non-root descendant question.
func (s *Store) propagateTopicsFrom(rootID string) {
	root, ok := s.nodes[rootID]
	if !ok {
		return
	}
	topic := root.Topic()
	visited := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.edges {
			if e.Source != cur || visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			if child := s.nodes[e.Target]; child != nil && child.Type == model.NodeQuestion && !child.IsRoot() {
				child.Question.Topic = topic
			}
			queue = append(queue, e.Target)
		}
	}
}
