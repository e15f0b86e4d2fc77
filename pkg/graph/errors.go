package graph

import "fmt"

// MergeConflictError indicates a merge transaction could not commit, e.g.
// the store detected a concurrent modification or one of the pair's nodes
// disappeared mid-transaction. Callers retry up to a bounded limit.
type MergeConflictError struct {
	CanonicalID string
	RetiredID   string
	Cause       error
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge of %q into %q could not commit: %v", e.RetiredID, e.CanonicalID, e.Cause)
}

func (e *MergeConflictError) Unwrap() error {
	return e.Cause
}

// MappingIntegrityError indicates an attempted mapping would create a chain:
// its canonical identifier already appears as the original of another
// mapping, or its retired entity is the canonical of one and deleting it
// would leave earlier mappings pointing at a missing node. Never resolved
// by auto-chaining; the pair is rejected and flagged.
type MappingIntegrityError struct {
	OriginalID  string
	CanonicalID string
	Reason      string
}

func (e *MappingIntegrityError) Error() string {
	return fmt.Sprintf("mapping %q -> %q would create a chain: %s", e.OriginalID, e.CanonicalID, e.Reason)
}
