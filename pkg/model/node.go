// Package model defines the flow graph data model: nodes, edges, handles,
// and the combination enumeration used by answers in combinations mode.
//
// A Node is a tagged union over three variants (question, answer, outcome).
// Exactly one of the content pointers is non-nil and must agree with Type.
package model

import (
	"fmt"
	"sort"
)

// NodeType discriminates the node union.
type NodeType string

const (
	NodeQuestion NodeType = "question"
	NodeAnswer   NodeType = "answer"
	NodeOutcome  NodeType = "outcome"
)

// BranchMode controls how edges fan out of an answer node.
type BranchMode string

const (
	// ModeSingle: one outgoing edge from the default handle.
	ModeSingle BranchMode = "single"
	// ModeMultiple: one outgoing edge per variant handle.
	ModeMultiple BranchMode = "multiple"
	// ModeCombinations: one outgoing edge per non-empty variant subset.
	ModeCombinations BranchMode = "combinations"
)

// Position is a 2-D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Variant is one selectable answer option.
type Variant struct {
	Text           string `json:"text"`
	Score          int    `json:"score"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// QuestionContent holds question-specific state. Root questions carry the
// topic; non-roots inherit it transitively when they are first connected.
type QuestionContent struct {
	Text   string `json:"text"`
	IsRoot bool   `json:"isRoot"`
	Topic  string `json:"topic,omitempty"`
}

// AnswerContent holds the branching mode and the ordered variant list.
type AnswerContent struct {
	Mode     BranchMode `json:"mode"`
	Variants []Variant  `json:"variants"`
}

// OutcomeContent is a terminal recommendation.
type OutcomeContent struct {
	Recommendation string `json:"recommendation"`
}

// Node is one vertex of the flow graph.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`

	// Level is the depth assigned during path derivation (root = 0).
	Level int `json:"level"`

	// PathIDs holds every hierarchical identifier by which the node is
	// reachable, kept sorted and duplicate-free. Derived state: only the
	// path engine writes it.
	PathIDs []string `json:"pathIds"`

	Question *QuestionContent `json:"question,omitempty"`
	Answer   *AnswerContent   `json:"answer,omitempty"`
	Outcome  *OutcomeContent  `json:"outcome,omitempty"`
}

// NewQuestion builds a question node. Pass topic only for roots.
func NewQuestion(id, text string, isRoot bool, topic string) *Node {
	return &Node{
		ID:       id,
		Type:     NodeQuestion,
		Question: &QuestionContent{Text: text, IsRoot: isRoot, Topic: topic},
	}
}

// NewAnswer builds an answer node in the given mode.
func NewAnswer(id string, mode BranchMode, variants ...Variant) *Node {
	return &Node{
		ID:     id,
		Type:   NodeAnswer,
		Answer: &AnswerContent{Mode: mode, Variants: variants},
	}
}

// NewOutcome builds a terminal outcome node.
func NewOutcome(id, recommendation string) *Node {
	return &Node{
		ID:      id,
		Type:    NodeOutcome,
		Outcome: &OutcomeContent{Recommendation: recommendation},
	}
}

// Validate checks that the union tag agrees with the populated content.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node has empty id")
	}
	switch n.Type {
	case NodeQuestion:
		if n.Question == nil || n.Answer != nil || n.Outcome != nil {
			return fmt.Errorf("node %s: question type with mismatched content", n.ID)
		}
	case NodeAnswer:
		if n.Answer == nil || n.Question != nil || n.Outcome != nil {
			return fmt.Errorf("node %s: answer type with mismatched content", n.ID)
		}
		switch n.Answer.Mode {
		case ModeSingle, ModeMultiple, ModeCombinations:
		default:
			return fmt.Errorf("node %s: unknown branch mode %q", n.ID, n.Answer.Mode)
		}
	case NodeOutcome:
		if n.Outcome == nil || n.Question != nil || n.Answer != nil {
			return fmt.Errorf("node %s: outcome type with mismatched content", n.ID)
		}
	default:
		return fmt.Errorf("node %s: unknown type %q", n.ID, n.Type)
	}
	return nil
}

// IsRoot reports whether the node is a root question.
func (n *Node) IsRoot() bool {
	return n.Type == NodeQuestion && n.Question != nil && n.Question.IsRoot
}

// Topic returns the node's topic, or "" for non-question nodes.
func (n *Node) Topic() string {
	if n.Type == NodeQuestion && n.Question != nil {
		return n.Question.Topic
	}
	return ""
}

// TypeLetter returns the path-grammar letter for the node type.
func (n *Node) TypeLetter() string {
	switch n.Type {
	case NodeQuestion:
		return "Q"
	case NodeAnswer:
		return "A"
	case NodeOutcome:
		return "E"
	}
	return "?"
}

// AddPathID inserts a path identifier, keeping PathIDs sorted and unique.
// Returns true if the path was not already present.
func (n *Node) AddPathID(path string) bool {
	i := sort.SearchStrings(n.PathIDs, path)
	if i < len(n.PathIDs) && n.PathIDs[i] == path {
		return false
	}
	n.PathIDs = append(n.PathIDs, "")
	copy(n.PathIDs[i+1:], n.PathIDs[i:])
	n.PathIDs[i] = path
	return true
}

// HasPathID reports whether the node already carries the given path.
func (n *Node) HasPathID(path string) bool {
	i := sort.SearchStrings(n.PathIDs, path)
	return i < len(n.PathIDs) && n.PathIDs[i] == path
}

// PrimaryPathID returns the first path identifier, or "" when unreachable.
func (n *Node) PrimaryPathID() string {
	if len(n.PathIDs) == 0 {
		return ""
	}
	return n.PathIDs[0]
}

// Label returns a short human-readable description used by exports and
// layout sizing.
func (n *Node) Label() string {
	switch n.Type {
	case NodeQuestion:
		if n.Question.Text != "" {
			return n.Question.Text
		}
	case NodeAnswer:
		if len(n.Answer.Variants) > 0 {
			return n.Answer.Variants[0].Text
		}
	case NodeOutcome:
		if n.Outcome.Recommendation != "" {
			return n.Outcome.Recommendation
		}
	}
	return n.ID
}
