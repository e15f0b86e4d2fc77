package models

import (
	"time"
)

// MappingSource tags which process created a mapping.
const (
	MappingSourceAutoMerge    = "auto_merge"
	MappingSourceManualReview = "manual_review"
)

// EntityMapping is the durable record of a retired identity pointing at its
// canonical identity. Mappings are append-only: corrections append a new
// record, they never mutate history. The record layout is the engine's only
// stable persistence contract.
type EntityMapping struct {
	MappingID         string    `json:"mapping_id"`
	OriginalEntityID  string    `json:"original_entity_id"`
	CanonicalEntityID string    `json:"canonical_entity_id"`
	MergeTimestamp    time.Time `json:"merge_timestamp"`
	MergeConfidence   float64   `json:"merge_confidence"`
	MergeReasons      []string  `json:"merge_reasons"`
	Source            string    `json:"source"`
}

// Statistics summarizes the durable state of the resolution engine.
type Statistics struct {
	TotalMappings    int        `json:"total_mappings"`
	TotalEntities    int        `json:"total_entities"`
	LastRunTimestamp *time.Time `json:"last_run_timestamp,omitempty"`
}

// RunSummary is returned by every resolution run, including partial failures,
// so operators never need the logs to know what happened.
type RunSummary struct {
	CandidatesFound int             `json:"candidates_found"`
	AutoMerges      int             `json:"auto_merges"`
	ManualReview    []CandidatePair `json:"manual_review_queue"`
	Rejected        int             `json:"rejected"`
	FailedMerges    int             `json:"failed_merges"`
	SkippedPairs    int             `json:"skipped_pairs"` // malformed entity data
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}
