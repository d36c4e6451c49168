// Package history provides a bounded snapshot ring with undo/redo over flow
// graph state. Snapshots are immutable deep copies; once the ring exceeds
// capacity the oldest entry is discarded.
package history

import (
	"github.com/vanderheijden86/quizflow/pkg/flow"
)

// DefaultCapacity bounds how many snapshots are retained.
const DefaultCapacity = 50

// Ring is a snapshot-based undo/redo stack. It holds every settled graph
// state oldest-first; the cursor marks the live one. The engine seeds the
// ring with the initial state and pushes each post-mutation state, so
// undoing after k mutations walks back through exact prior states and redo
// replays them.
type Ring struct {
	capacity int
	entries  []flow.Snapshot
	cursor   int // index of the live entry, -1 when empty
}

// New returns a ring with the given capacity; values < 1 fall back to
// DefaultCapacity.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Ring{capacity: capacity, cursor: -1}
}

// Save records a settled state. Any redo entries past the cursor are
// discarded, and the oldest entry is evicted once the ring is over capacity.
func (r *Ring) Save(snap flow.Snapshot) {
	r.entries = append(r.entries[:r.cursor+1], snap)
	r.cursor++
	if len(r.entries) > r.capacity {
		over := len(r.entries) - r.capacity
		r.entries = append([]flow.Snapshot(nil), r.entries[over:]...)
		r.cursor -= over
	}
}

// Undo steps the cursor back and returns that snapshot. The second return
// is false when there is nothing to undo (cursor already at the oldest
// entry), in which case Undo is a no-op.
func (r *Ring) Undo() (flow.Snapshot, bool) {
	if r.cursor <= 0 {
		return flow.Snapshot{}, false
	}
	r.cursor--
	return r.entries[r.cursor], true
}

// Redo steps the cursor forward and returns that snapshot. The second
// return is false when already at the newest entry.
func (r *Ring) Redo() (flow.Snapshot, bool) {
	if r.cursor < 0 || r.cursor >= len(r.entries)-1 {
		return flow.Snapshot{}, false
	}
	r.cursor++
	return r.entries[r.cursor], true
}

// CanUndo reports whether Undo would restore an older snapshot.
func (r *Ring) CanUndo() bool { return r.cursor > 0 }

// CanRedo reports whether Redo would restore a newer snapshot.
func (r *Ring) CanRedo() bool { return r.cursor >= 0 && r.cursor < len(r.entries)-1 }

// Len returns the number of retained snapshots.
func (r *Ring) Len() int { return len(r.entries) }
