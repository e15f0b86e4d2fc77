package matching

import "fmt"

// ScoringError indicates malformed entity data encountered while scoring a
// pair. The pair is skipped and the run continues.
type ScoringError struct {
	EntityA string
	EntityB string
	Reason  string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("cannot score pair (%q, %q): %s", e.EntityA, e.EntityB, e.Reason)
}
