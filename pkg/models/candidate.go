package models

import (
	"time"
)

// Disposition is the decision state of a candidate pair.
type Disposition string

const (
	DispositionPending      Disposition = "pending"
	DispositionAutoMerge    Disposition = "auto_merge"
	DispositionManualReview Disposition = "manual_review"
	DispositionRejected     Disposition = "rejected"
	DispositionMerged       Disposition = "merged"
)

// SignalScores holds the independent similarity signals for a pair.
// Signals that cannot be computed (e.g. missing contact info) are 0.0,
// never an error.
type SignalScores struct {
	NameSimilarity      float64 `json:"name_similarity"`
	ContactExactMatch   float64 `json:"contact_exact_match"`
	RelationshipOverlap float64 `json:"relationship_overlap"`
}

// CandidatePair is an unordered pair of entities flagged by blocking for
// comparison. EntityA is always the lexicographically smaller identifier so
// that re-runs produce identical pairs.
type CandidatePair struct {
	ID           string       `json:"id" db:"id"`
	EntityA      string       `json:"entity_a" db:"entity_a"`
	EntityB      string       `json:"entity_b" db:"entity_b"`
	Signals      SignalScores `json:"signals" db:"-"`
	Confidence   float64      `json:"confidence" db:"confidence"`
	Disposition  Disposition  `json:"disposition" db:"disposition"`
	MatchReasons []string     `json:"match_reasons" db:"-"`
	FingerprintA string       `json:"fingerprint_a,omitempty" db:"fingerprint_a"` // EntityA state digest at scoring time
	FingerprintB string       `json:"fingerprint_b,omitempty" db:"fingerprint_b"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy   *string      `json:"resolved_by,omitempty" db:"resolved_by"`
}

// NewCandidatePair builds a pair with identifiers in canonical (sorted) order.
func NewCandidatePair(a, b string) CandidatePair {
	if b < a {
		a, b = b, a
	}
	return CandidatePair{
		EntityA:     a,
		EntityB:     b,
		Disposition: DispositionPending,
	}
}

// Key returns the canonical pair key used for in-run deduplication.
func (p *CandidatePair) Key() string {
	return p.EntityA + "|" + p.EntityB
}

// Involves reports whether the pair touches the given entity.
func (p *CandidatePair) Involves(entityID string) bool {
	return p.EntityA == entityID || p.EntityB == entityID
}
