package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

func TestBuildUpsert(t *testing.T) {
	a := models.NewCandidatePair("a1", "b2")
	a.Confidence = 0.72
	a.Disposition = models.DispositionManualReview
	b := models.NewCandidatePair("c3", "d4")
	b.ID = "existing-id"
	b.Confidence = 0.95
	b.Disposition = models.DispositionAutoMerge

	query, args := buildUpsert([]*models.CandidatePair{&a, &b})

	// IDs and timestamps are assigned back so callers can track queue rows.
	require.NotEmpty(t, a.ID)
	assert.Equal(t, "existing-id", b.ID)
	assert.False(t, a.CreatedAt.IsZero())

	assert.Contains(t, query, "INSERT INTO candidate_pairs")
	assert.Contains(t, query, "ON CONFLICT (entity_a, entity_b) DO UPDATE")
	assert.Contains(t, query, "disposition = EXCLUDED.disposition")
	assert.Contains(t, query, "fingerprint_b = EXCLUDED.fingerprint_b")
	// Resolved rows keep their final disposition.
	assert.Contains(t, query, "candidate_pairs.resolved_at IS NULL")

	// Two rows of eleven columns each, nothing else parameterized.
	assert.Len(t, args, 22)
}
