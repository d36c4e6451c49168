package flow

// RejectionKind classifies why a mutation was refused. Every rejection is
// recoverable: the mutation simply does not apply and the graph is left
// untouched.
type RejectionKind string

const (
	RejectMissingNode    RejectionKind = "missing-node"
	RejectDuplicateNode  RejectionKind = "duplicate-node"
	RejectAdjacency      RejectionKind = "adjacency"
	RejectInvalidHandle  RejectionKind = "invalid-handle"
	RejectHandleOccupied RejectionKind = "handle-occupied"
	RejectDuplicateTopic RejectionKind = "duplicate-topic"
	RejectCycle          RejectionKind = "cycle"
)

// RejectionError carries a machine-matchable kind and a human-readable
// reason suitable for surfacing directly in UI.
type RejectionError struct {
	Kind   RejectionKind
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

func reject(kind RejectionKind, reason string) *RejectionError {
	return &RejectionError{Kind: kind, Reason: reason}
}
