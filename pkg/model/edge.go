package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Edge is a directed connection between two nodes, attached to a named
// output handle on the source.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
}

// HandleDefault is the single output of questions and single-mode answers.
const HandleDefault = "default"

const (
	variantHandlePrefix     = "variant-"
	combinationHandlePrefix = "combination-"
)

// VariantHandle names the output handle for variant index i on a
// multiple-mode answer.
func VariantHandle(i int) string {
	return variantHandlePrefix + strconv.Itoa(i)
}

// CombinationHandle names the output handle for a combination id on a
// combinations-mode answer.
func CombinationHandle(comboID string) string {
	return combinationHandlePrefix + comboID
}

// ParseVariantHandle extracts the variant index from a variant handle.
func ParseVariantHandle(handle string) (int, bool) {
	rest, ok := strings.CutPrefix(handle, variantHandlePrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ParseCombinationHandle extracts the ascending variant indices from a
// combination handle such as "combination-0+2".
func ParseCombinationHandle(handle string) ([]int, bool) {
	rest, ok := strings.CutPrefix(handle, combinationHandlePrefix)
	if !ok || rest == "" {
		return nil, false
	}
	parts := strings.Split(rest, "+")
	indices := make([]int, 0, len(parts))
	prev := -1
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil || i <= prev {
			return nil, false
		}
		indices = append(indices, i)
		prev = i
	}
	return indices, true
}

// NewEdge builds an edge with a deterministic id derived from its endpoints.
// The id stays stable across re-imports of the same document.
func NewEdge(source, target, sourceHandle string) *Edge {
	return &Edge{
		ID:           EdgeID(source, target, sourceHandle),
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
	}
}

// EdgeID derives the canonical edge id for a (source, target, handle) triple.
func EdgeID(source, target, sourceHandle string) string {
	return fmt.Sprintf("e:%s:%s:%s", source, sourceHandle, target)
}
