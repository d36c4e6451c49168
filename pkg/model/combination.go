package model

import (
	"strconv"
	"strings"
)

// Combination is one non-empty subset of an answer's variants. An answer in
// combinations mode exposes one output handle per combination.
type Combination struct {
	// ID is the ascending variant index list joined with "+", e.g. "0+2".
	ID string
	// Indices are the variant indices in ascending order.
	Indices []int
	// Label is the space-joined variant texts in subset order.
	Label string
}

// Handle returns the output handle name for this combination.
func (c Combination) Handle() string {
	return CombinationHandle(c.ID)
}

// Combinations enumerates every non-empty subset of the given variants,
// ordered by the subset's bitmask value ascending, so the result is
// deterministic and has exactly 2^n - 1 members.
func Combinations(variants []Variant) []Combination {
	n := len(variants)
	if n == 0 {
		return nil
	}
	combos := make([]Combination, 0, (1<<n)-1)
	for mask := 1; mask < 1<<n; mask++ {
		var (
			indices []int
			idParts []string
			texts   []string
		)
		for i := 0; i < n; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			indices = append(indices, i)
			idParts = append(idParts, strconv.Itoa(i))
			texts = append(texts, variants[i].Text)
		}
		combos = append(combos, Combination{
			ID:      strings.Join(idParts, "+"),
			Indices: indices,
			Label:   strings.Join(texts, " "),
		})
	}
	return combos
}

// CombinationID returns the canonical id for a set of variant indices.
// Indices must be ascending.
func CombinationID(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "+")
}
