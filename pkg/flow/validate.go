package flow

import (
	"fmt"

	"github.com/vanderheijden86/quizflow/pkg/model"
)

// CanConnect gatekeeps edge creation. It runs, in order: type adjacency,
// handle validity and occupancy, topic uniqueness, and a cycle check.
// A nil return means the edge may be added.
func (s *Store) CanConnect(source, target, handle string) error {
	src, ok := s.nodes[source]
	if !ok {
		return reject(RejectMissingNode, fmt.Sprintf("source node %s does not exist", source))
	}
	dst, ok := s.nodes[target]
	if !ok {
		return reject(RejectMissingNode, fmt.Sprintf("target node %s does not exist", target))
	}

	if err := checkAdjacency(src, dst); err != nil {
		return err
	}
	if err := checkHandle(src, handle); err != nil {
		return err
	}
	if err := s.checkHandleFree(source, handle); err != nil {
		return err
	}
	if err := s.checkTopicUnique(src); err != nil {
		return err
	}
	if err := s.checkAcyclic(source, target); err != nil {
		return err
	}
	return nil
}

// checkAdjacency enforces the typed adjacency rules: questions feed answers,
// answers feed questions or outcomes, outcomes are terminal.
func checkAdjacency(src, dst *model.Node) error {
	switch src.Type {
	case model.NodeQuestion:
		if dst.Type != model.NodeAnswer {
			return reject(RejectAdjacency, fmt.Sprintf("a question can only connect to an answer, not a %s", dst.Type))
		}
	case model.NodeAnswer:
		if dst.Type != model.NodeQuestion && dst.Type != model.NodeOutcome {
			return reject(RejectAdjacency, fmt.Sprintf("an answer can only connect to a question or an outcome, not a %s", dst.Type))
		}
	case model.NodeOutcome:
		return reject(RejectAdjacency, "an outcome is terminal and cannot have outgoing connections")
	}
	return nil
}

// checkHandle verifies the handle exists on the source under its current
// type and branching mode.
func checkHandle(src *model.Node, handle string) error {
	switch src.Type {
	case model.NodeQuestion:
		if handle != model.HandleDefault {
			return reject(RejectInvalidHandle, fmt.Sprintf("questions only expose the %q handle, got %q", model.HandleDefault, handle))
		}
	case model.NodeAnswer:
		switch src.Answer.Mode {
		case model.ModeSingle:
			if handle != model.HandleDefault {
				return reject(RejectInvalidHandle, fmt.Sprintf("a single-mode answer only exposes the %q handle, got %q", model.HandleDefault, handle))
			}
		case model.ModeMultiple:
			i, ok := model.ParseVariantHandle(handle)
			if !ok {
				return reject(RejectInvalidHandle, fmt.Sprintf("a multiple-mode answer exposes variant handles, got %q", handle))
			}
			if i >= len(src.Answer.Variants) {
				return reject(RejectInvalidHandle, fmt.Sprintf("variant handle %q is out of range (answer has %d variants)", handle, len(src.Answer.Variants)))
			}
		case model.ModeCombinations:
			indices, ok := model.ParseCombinationHandle(handle)
			if !ok {
				return reject(RejectInvalidHandle, fmt.Sprintf("a combinations-mode answer exposes combination handles, got %q", handle))
			}
			if indices[len(indices)-1] >= len(src.Answer.Variants) {
				return reject(RejectInvalidHandle, fmt.Sprintf("combination handle %q is out of range (answer has %d variants)", handle, len(src.Answer.Variants)))
			}
		}
	}
	return nil
}

// checkHandleFree rejects when an edge already leaves (source, handle).
// Every handle carries at most one connection.
func (s *Store) checkHandleFree(source, handle string) error {
	for _, e := range s.edges {
		if e.Source == source && e.SourceHandle == handle {
			return reject(RejectHandleOccupied, fmt.Sprintf("handle %q on node %s already has a connection", handle, source))
		}
	}
	return nil
}

// checkTopicUnique rejects when the source is a root question whose topic is
// already claimed by another root.
func (s *Store) checkTopicUnique(src *model.Node) error {
	if !src.IsRoot() || src.Topic() == "" {
		return nil
	}
	for id, n := range s.nodes {
		if id != src.ID && n.IsRoot() && n.Topic() == src.Topic() {
			return reject(RejectDuplicateTopic, fmt.Sprintf("topic %q is already claimed by root %s", src.Topic(), id))
		}
	}
	return nil
}

// checkAcyclic refuses an edge that would close a cycle: if source is
// reachable from target (including source == target), the new edge would
// complete a loop. Depth-first search over outgoing edges.
func (s *Store) checkAcyclic(source, target string) error {
	if source == target {
		return reject(RejectCycle, "a node cannot connect to itself")
	}
	visited := map[string]bool{}
	stack := []string{target}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == source {
			return reject(RejectCycle, fmt.Sprintf("connecting %s to %s would create a cycle", source, target))
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, e := range s.edges {
			if e.Source == cur {
				stack = append(stack, e.Target)
			}
		}
	}
	return nil
}
