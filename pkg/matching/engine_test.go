package matching

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

func testEngine(config EngineConfig) *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, config)
}

func strPtr(s string) *string { return &s }

func TestEngine_ScorePair(t *testing.T) {
	engine := testEngine(DefaultConfig())

	t.Run("contact exact match is case insensitive", func(t *testing.T) {
		a := &models.Entity{ID: "e1", Name: "Robert Smith", Contact: strPtr("R.Smith@X.com")}
		b := &models.Entity{ID: "e2", Name: "Bob Smith", Contact: strPtr("r.smith@x.com")}

		signals, err := engine.ScorePair(context.Background(), a, b)
		require.NoError(t, err)

		assert.Equal(t, 1.0, signals.ContactExactMatch)
		assert.Equal(t, 1.0, signals.NameSimilarity)
	})

	t.Run("missing contact on either side scores 0", func(t *testing.T) {
		a := &models.Entity{ID: "e1", Name: "Jane Doe", Contact: strPtr("jane@x.com")}
		b := &models.Entity{ID: "e2", Name: "Jane Doe"}

		signals, err := engine.ScorePair(context.Background(), a, b)
		require.NoError(t, err)

		assert.Equal(t, 0.0, signals.ContactExactMatch)
	})

	t.Run("shared partners produce relationship overlap", func(t *testing.T) {
		a := &models.Entity{ID: "e1", Name: "Jane Doe", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1"},
			{Type: "WORKS_FOR", PartnerID: "p2"},
		}}
		b := &models.Entity{ID: "e2", Name: "Jane Doe", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1"},
			{Type: "KNOWS", PartnerID: "p2"},
		}}

		signals, err := engine.ScorePair(context.Background(), a, b)
		require.NoError(t, err)

		assert.Equal(t, 1.0, signals.RelationshipOverlap)
	})

	t.Run("missing identifier returns ScoringError", func(t *testing.T) {
		a := &models.Entity{ID: "", Name: "Jane Doe"}
		b := &models.Entity{ID: "e2", Name: "Jane Doe"}

		_, err := engine.ScorePair(context.Background(), a, b)

		var scoringErr *ScoringError
		require.ErrorAs(t, err, &scoringErr)
	})
}

func TestEngine_Aggregate(t *testing.T) {
	engine := testEngine(DefaultConfig())

	t.Run("all zero signals give zero confidence", func(t *testing.T) {
		confidence, reasons := engine.Aggregate(models.SignalScores{})
		assert.Equal(t, 0.0, confidence)
		assert.Empty(t, reasons)
	})

	t.Run("all maximal signals clamp to 1", func(t *testing.T) {
		confidence, reasons := engine.Aggregate(models.SignalScores{
			NameSimilarity:      1.0,
			ContactExactMatch:   1.0,
			RelationshipOverlap: 1.0,
		})
		assert.Equal(t, 1.0, confidence)
		assert.Equal(t, []string{"name_similarity_1.00", "email_exact_match", "relationship_similarity_1.00"}, reasons)
	})

	t.Run("weights apply per signal", func(t *testing.T) {
		confidence, _ := engine.Aggregate(models.SignalScores{NameSimilarity: 0.5})
		assert.InDelta(t, 0.35, confidence, 0.001)
	})

	t.Run("signals at the threshold produce no reason", func(t *testing.T) {
		_, reasons := engine.Aggregate(models.SignalScores{NameSimilarity: 0.5})
		assert.Empty(t, reasons)
	})

	t.Run("custom weights are honored", func(t *testing.T) {
		config := DefaultConfig()
		config.NameWeight = 1.0
		config.ContactWeight = 0.0
		confidence, _ := testEngine(config).Aggregate(models.SignalScores{
			NameSimilarity:    0.8,
			ContactExactMatch: 1.0,
		})
		assert.InDelta(t, 0.8, confidence, 0.001)
	})
}

func TestEngine_Decide(t *testing.T) {
	engine := testEngine(DefaultConfig())

	tests := []struct {
		name       string
		confidence float64
		expected   models.Disposition
	}{
		{"at auto merge threshold", 0.9, models.DispositionAutoMerge},
		{"above auto merge threshold", 0.95, models.DispositionAutoMerge},
		{"at review threshold", 0.6, models.DispositionManualReview},
		{"between thresholds", 0.75, models.DispositionManualReview},
		{"below review threshold", 0.59, models.DispositionRejected},
		{"zero confidence", 0.0, models.DispositionRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, engine.Decide(tt.confidence))
		})
	}
}

func TestEngine_Evaluate(t *testing.T) {
	engine := testEngine(DefaultConfig())

	t.Run("nickname plus shared email auto merges", func(t *testing.T) {
		a := &models.Entity{ID: "e1", Name: "Robert Smith", Contact: strPtr("r.smith@x.com"), Properties: map[string]any{"city": "Austin"}}
		b := &models.Entity{ID: "e2", Name: "Bob Smith", Contact: strPtr("r.smith@x.com")}
		pair := models.NewCandidatePair(a.ID, b.ID)

		require.NoError(t, engine.Evaluate(context.Background(), &pair, a, b))

		assert.Equal(t, models.DispositionAutoMerge, pair.Disposition)
		assert.GreaterOrEqual(t, pair.Confidence, 0.9)
		assert.Contains(t, pair.MatchReasons, "email_exact_match")
	})

	t.Run("same name with full relationship overlap auto merges", func(t *testing.T) {
		rels := []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1"},
			{Type: "KNOWS", PartnerID: "p2"},
		}
		a := &models.Entity{ID: "e1", Name: "Jane Doe", Relationships: rels}
		b := &models.Entity{ID: "e2", Name: "Jane Doe", Relationships: rels}
		pair := models.NewCandidatePair(a.ID, b.ID)

		require.NoError(t, engine.Evaluate(context.Background(), &pair, a, b))

		assert.Equal(t, models.DispositionAutoMerge, pair.Disposition)
		assert.Equal(t, 1.0, pair.Confidence)
	})

	t.Run("dissimilar names reject", func(t *testing.T) {
		a := &models.Entity{ID: "e1", Name: "Alice Young"}
		b := &models.Entity{ID: "e2", Name: "Alice Brown"}
		pair := models.NewCandidatePair(a.ID, b.ID)

		require.NoError(t, engine.Evaluate(context.Background(), &pair, a, b))

		assert.Equal(t, models.DispositionRejected, pair.Disposition)
	})
}
