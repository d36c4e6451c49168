// Package export converts flow graphs to and from their interchange
// representations: the canonical JSON document, DOT and Mermaid text forms,
// and static SVG/PNG snapshots of the computed layout.
package export

import (
	"fmt"
	"hash/fnv"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

// DocumentVersion is written into exported metadata.
const DocumentVersion = "1.0"

// Document is the persisted flow shape. Edges are not stored directly:
// navigation maps each node's output handles to the target's path
// identifier, and import resolves those back to node ids.
type Document struct {
	Metadata   Metadata              `json:"metadata"`
	Nodes      map[string]DocNode    `json:"nodes"`
	Navigation map[string]Navigation `json:"navigation,omitempty"`
}

// Metadata carries document-level fields.
type Metadata struct {
	Topic   string `json:"topic"`
	Version string `json:"version"`
}

// DocNode is one serialized node.
type DocNode struct {
	Type     model.NodeType `json:"type"`
	PathID   string         `json:"pathId"`
	PathIDs  []string       `json:"pathIds"`
	Content  DocContent     `json:"content"`
	Level    int            `json:"level"`
	Position model.Position `json:"position"`
}

// DocContent holds the type-specific payload; exactly one field is set.
type DocContent struct {
	Question *model.QuestionContent `json:"question,omitempty"`
	Answer   *model.AnswerContent   `json:"answer,omitempty"`
	Outcome  *model.OutcomeContent  `json:"outcome,omitempty"`
}

// Navigation maps a node's output handles to target path identifiers.
type Navigation struct {
	Default      string            `json:"default,omitempty"`
	Variants     map[string]string `json:"variants,omitempty"`
	Combinations map[string]string `json:"combinations,omitempty"`
}

// ImportConflictError reports an id collision resolved by deterministic
// renaming. Non-fatal: the import proceeds with the renamed node.
type ImportConflictError struct {
	OldID string
	NewID string
}

func (e *ImportConflictError) Error() string {
	return fmt.Sprintf("node id %q already exists, renamed to %q", e.OldID, e.NewID)
}

// ImportReport collects the non-fatal findings of an import.
type ImportReport struct {
	// Conflicts lists id collisions resolved by renaming.
	Conflicts []*ImportConflictError
	// Unresolved lists navigation targets whose pathId matched no node.
	Unresolved []string
}

// BuildDocument converts a graph snapshot into the interchange shape.
// The topic defaults to the first root question's topic.
func BuildDocument(snap flow.Snapshot) Document {
	doc := Document{
		Metadata:   Metadata{Version: DocumentVersion},
		Nodes:      make(map[string]DocNode, len(snap.Nodes)),
		Navigation: make(map[string]Navigation),
	}

	ids := make([]string, 0, len(snap.Nodes))
	for id := range snap.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := snap.Nodes[id]
		if n.IsRoot() && doc.Metadata.Topic == "" {
			doc.Metadata.Topic = n.Topic()
		}
		doc.Nodes[id] = DocNode{
			Type:    n.Type,
			PathID:  n.PrimaryPathID(),
			PathIDs: append([]string(nil), n.PathIDs...),
			Content: DocContent{
				Question: n.Question,
				Answer:   n.Answer,
				Outcome:  n.Outcome,
			},
			Level:    n.Level,
			Position: n.Position,
		}
	}

	for _, e := range snap.Edges {
		target, ok := snap.Nodes[e.Target]
		if !ok {
			continue
		}
		nav := doc.Navigation[e.Source]
		switch {
		case e.SourceHandle == model.HandleDefault:
			nav.Default = target.PrimaryPathID()
		default:
			if _, isVariant := model.ParseVariantHandle(e.SourceHandle); isVariant {
				if nav.Variants == nil {
					nav.Variants = make(map[string]string)
				}
				nav.Variants[e.SourceHandle] = target.PrimaryPathID()
			} else if _, isCombo := model.ParseCombinationHandle(e.SourceHandle); isCombo {
				if nav.Combinations == nil {
					nav.Combinations = make(map[string]string)
				}
				nav.Combinations[e.SourceHandle] = target.PrimaryPathID()
			}
		}
		doc.Navigation[e.Source] = nav
	}
	return doc
}

// MarshalDocument renders the document as indented JSON.
func MarshalDocument(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalDocument parses an interchange document.
func UnmarshalDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse flow document: %w", err)
	}
	return doc, nil
}

// ResolveDocument reconstructs a graph snapshot from a document. Ids
// colliding with the taken set are renamed deterministically ("<id>-2",
// "<id>-3", ...) and reported; navigation targets that resolve to no node
// are reported as unresolved and skipped. Pass a nil taken set when loading
// into an empty engine.
func ResolveDocument(doc Document, taken map[string]bool) (flow.Snapshot, ImportReport, error) {
	snap := flow.Snapshot{
		Nodes: make(map[string]*model.Node),
		Edges: make(map[string]*model.Edge),
	}
	report := ImportReport{}

	ids := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rename := make(map[string]string, len(ids))
	claimed := make(map[string]bool, len(ids))
	for k := range taken {
		claimed[k] = true
	}

	for _, id := range ids {
		dn := doc.Nodes[id]
		newID := id
		if claimed[newID] {
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s-%d", id, n)
				if !claimed[candidate] {
					newID = candidate
					break
				}
			}
			report.Conflicts = append(report.Conflicts, &ImportConflictError{OldID: id, NewID: newID})
		}
		claimed[newID] = true
		rename[id] = newID

		node := &model.Node{
			ID:       newID,
			Type:     dn.Type,
			Level:    dn.Level,
			Position: dn.Position,
			Question: dn.Content.Question,
			Answer:   dn.Content.Answer,
			Outcome:  dn.Content.Outcome,
		}
		for _, p := range dn.PathIDs {
			node.AddPathID(p)
		}
		if err := node.Validate(); err != nil {
			return flow.Snapshot{}, report, fmt.Errorf("invalid node %s: %w", id, err)
		}
		snap.Nodes[newID] = node
	}

	// Resolve navigation targets: any of a node's pathIds identifies it.
	byPath := make(map[string]string)
	for id, n := range snap.Nodes {
		for _, p := range n.PathIDs {
			byPath[p] = id
		}
	}

	addEdge := func(source, handle, targetPath string) {
		targetID, found := byPath[targetPath]
		if !found {
			report.Unresolved = append(report.Unresolved, fmt.Sprintf("%s[%s] -> %s", source, handle, targetPath))
			return
		}
		e := model.NewEdge(source, targetID, handle)
		snap.Edges[e.ID] = e
	}

	navIDs := make([]string, 0, len(doc.Navigation))
	for id := range doc.Navigation {
		navIDs = append(navIDs, id)
	}
	sort.Strings(navIDs)
	for _, id := range navIDs {
		nav := doc.Navigation[id]
		source, known := rename[id]
		if !known {
			report.Unresolved = append(report.Unresolved, fmt.Sprintf("%s -> (unknown source node)", id))
			continue
		}
		if nav.Default != "" {
			addEdge(source, model.HandleDefault, nav.Default)
		}
		for handle, targetPath := range sortedMap(nav.Variants) {
			addEdge(source, handle, targetPath)
		}
		for handle, targetPath := range sortedMap(nav.Combinations) {
			addEdge(source, handle, targetPath)
		}
	}
	sort.Strings(report.Unresolved)
	return snap, report, nil
}

// sortedMap iterates a string map in key order.
func sortedMap(m map[string]string) func(yield func(string, string) bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return func(yield func(string, string) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

// DataHash fingerprints a document for provenance lines in snapshots and
// check output.
func DataHash(data []byte) string {
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum64())
}
