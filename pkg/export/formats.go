package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

// Format specifies the text export flavor.
type Format string

const (
	FormatJSON    Format = "json"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// Text renders the flow graph in the requested text format. JSON returns
// the canonical interchange document; DOT and Mermaid are presentation
// forms for documentation and review.
func Text(snap flow.Snapshot, format Format) (string, error) {
	switch format {
	case FormatDOT:
		return generateDOT(snap), nil
	case FormatMermaid:
		return generateMermaid(snap), nil
	case FormatJSON, "":
		data, err := MarshalDocument(BuildDocument(snap))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json, dot, or mermaid)", format)
	}
}

// sortedNodes returns the snapshot's nodes ordered by id.
func sortedNodes(snap flow.Snapshot) []*model.Node {
	out := make([]*model.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortedEdges returns the snapshot's edges ordered by id.
func sortedEdges(snap flow.Snapshot) []*model.Edge {
	out := make([]*model.Edge, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// generateDOT renders Graphviz DOT. Render with:
//
//	dot -Tpng flow.dot -o flow.png
func generateDOT(snap flow.Snapshot) string {
	var b strings.Builder
	b.WriteString("digraph flow {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"monospace\", style=filled];\n\n")

	for _, n := range sortedNodes(snap) {
		shape, fill := "box", "#c8e6c9"
		switch n.Type {
		case model.NodeAnswer:
			shape, fill = "ellipse", "#fff3e0"
		case model.NodeOutcome:
			shape, fill = "note", "#cfd8dc"
		}
		label := n.PrimaryPathID()
		if label == "" {
			label = n.ID
		}
		b.WriteString(fmt.Sprintf("  %q [label=%q, shape=%s, fillcolor=%q];\n",
			n.ID, label+"\\n"+truncate(n.Label(), 32), shape, fill))
	}
	b.WriteString("\n")
	for _, e := range sortedEdges(snap) {
		attrs := ""
		if e.SourceHandle != model.HandleDefault {
			attrs = fmt.Sprintf(" [label=%q]", e.SourceHandle)
		}
		b.WriteString(fmt.Sprintf("  %q -> %q%s;\n", e.Source, e.Target, attrs))
	}
	b.WriteString("}\n")
	return b.String()
}

// generateMermaid renders a Mermaid flowchart, embeddable in Markdown.
func generateMermaid(snap flow.Snapshot) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	for _, n := range sortedNodes(snap) {
		label := mermaidEscape(truncate(n.Label(), 32))
		switch n.Type {
		case model.NodeQuestion:
			b.WriteString(fmt.Sprintf("  %s[%q]\n", mermaidID(n.ID), label))
		case model.NodeAnswer:
			b.WriteString(fmt.Sprintf("  %s(%q)\n", mermaidID(n.ID), label))
		case model.NodeOutcome:
			b.WriteString(fmt.Sprintf("  %s{{%q}}\n", mermaidID(n.ID), label))
		}
	}
	for _, e := range sortedEdges(snap) {
		if e.SourceHandle == model.HandleDefault {
			b.WriteString(fmt.Sprintf("  %s --> %s\n", mermaidID(e.Source), mermaidID(e.Target)))
		} else {
			b.WriteString(fmt.Sprintf("  %s -- %s --> %s\n",
				mermaidID(e.Source), mermaidEscape(e.SourceHandle), mermaidID(e.Target)))
		}
	}
	return b.String()
}

// mermaidID sanitizes a node id for use as a Mermaid identifier.
func mermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

func mermaidEscape(s string) string {
	return strings.NewReplacer("\"", "'", "\n", " ").Replace(s)
}

// truncate shortens a string to max runes with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
