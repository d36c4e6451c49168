package model

// Clone returns a deep copy of the node. History snapshots and read-side
// accessors rely on clones never sharing mutable state with the original.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.PathIDs != nil {
		c.PathIDs = append([]string(nil), n.PathIDs...)
	}
	if n.Question != nil {
		q := *n.Question
		c.Question = &q
	}
	if n.Answer != nil {
		a := *n.Answer
		a.Variants = append([]Variant(nil), n.Answer.Variants...)
		c.Answer = &a
	}
	if n.Outcome != nil {
		o := *n.Outcome
		c.Outcome = &o
	}
	return &c
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// CloneNodes deep-copies a node map.
func CloneNodes(nodes map[string]*Node) map[string]*Node {
	out := make(map[string]*Node, len(nodes))
	for id, n := range nodes {
		out[id] = n.Clone()
	}
	return out
}

// CloneEdges deep-copies an edge map.
func CloneEdges(edges map[string]*Edge) map[string]*Edge {
	out := make(map[string]*Edge, len(edges))
	for id, e := range edges {
		out[id] = e.Clone()
	}
	return out
}
