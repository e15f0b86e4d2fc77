// Package matching computes similarity signals and merge decisions for
// candidate pairs.
package matching

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/normalizers"
	"github.com/ronkoch2-code/avatar-builder/pkg/scoring"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// Engine scores candidate pairs and assigns dispositions. Scoring is pure
// and side-effect-free; an Engine is safe for concurrent use.
type Engine struct {
	logger     ectologger.Logger
	nameScorer *scoring.NameScorer
	scorer     *scoring.Scorer
	config     EngineConfig
}

// EngineConfig contains configuration for the match engine
type EngineConfig struct {
	NameWeight         float64 // Weight applied to name similarity (default: 0.7)
	ContactWeight      float64 // Weight applied to contact exact match (default: 0.9)
	RelationshipWeight float64 // Weight applied to relationship overlap (default: 0.3)

	AutoMergeThreshold float64 // Confidence at or above which to auto-merge (default: 0.9)
	ReviewThreshold    float64 // Confidence at or above which to queue for review (default: 0.6)

	ReasonThreshold float64 // Signal value above which a match reason is recorded (default: 0.5)

	EnablePhoneticMatching bool // Whether phonetic equivalence boosts name similarity
	EnableNicknameMatching bool // Whether nickname expansion boosts name similarity
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		NameWeight:             0.7,
		ContactWeight:          0.9,
		RelationshipWeight:     0.3,
		AutoMergeThreshold:     0.9,
		ReviewThreshold:        0.6,
		ReasonThreshold:        0.5,
		EnablePhoneticMatching: true,
		EnableNicknameMatching: true,
	}
}

// NewEngine creates a new match engine
func NewEngine(logger ectologger.Logger, config EngineConfig) *Engine {
	return &Engine{
		logger:     logger,
		nameScorer: scoring.NewNameScorer(config.EnablePhoneticMatching, config.EnableNicknameMatching),
		scorer:     scoring.NewScorer(),
		config:     config,
	}
}

// ScorePair computes the three similarity signals for a candidate pair.
// A signal that cannot be computed contributes 0.0 rather than failing.
func (e *Engine) ScorePair(ctx context.Context, a, b *models.Entity) (models.SignalScores, error) {
	_, span := tracing.StartSpan(ctx, "matching.Engine.ScorePair")
	defer span.End()

	if a == nil || b == nil || a.ID == "" || b.ID == "" {
		return models.SignalScores{}, &ScoringError{
			EntityA: entityID(a),
			EntityB: entityID(b),
			Reason:  "entity missing identifier",
		}
	}

	signals := models.SignalScores{
		NameSimilarity:      e.nameScorer.Similarity(a.Name, b.Name),
		ContactExactMatch:   e.contactMatch(a, b),
		RelationshipOverlap: e.relationshipOverlap(a, b),
	}

	return signals, nil
}

// Aggregate combines the signals into a clamped confidence plus the list of
// match reasons for signals above the materiality threshold.
func (e *Engine) Aggregate(signals models.SignalScores) (float64, []string) {
	confidence := signals.NameSimilarity*e.config.NameWeight +
		signals.ContactExactMatch*e.config.ContactWeight +
		signals.RelationshipOverlap*e.config.RelationshipWeight

	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0.0 {
		confidence = 0.0
	}

	reasons := make([]string, 0, 3)
	if signals.NameSimilarity > e.config.ReasonThreshold {
		reasons = append(reasons, fmt.Sprintf("name_similarity_%.2f", signals.NameSimilarity))
	}
	if signals.ContactExactMatch > e.config.ReasonThreshold {
		reasons = append(reasons, "email_exact_match")
	}
	if signals.RelationshipOverlap > e.config.ReasonThreshold {
		reasons = append(reasons, fmt.Sprintf("relationship_similarity_%.2f", signals.RelationshipOverlap))
	}

	return confidence, reasons
}

// Decide maps a confidence onto a disposition using the configured
// thresholds.
func (e *Engine) Decide(confidence float64) models.Disposition {
	switch {
	case confidence >= e.config.AutoMergeThreshold:
		return models.DispositionAutoMerge
	case confidence >= e.config.ReviewThreshold:
		return models.DispositionManualReview
	default:
		return models.DispositionRejected
	}
}

// Evaluate runs the full score → aggregate → decide sequence for a pair and
// fills in the pair's signals, confidence, reasons and disposition.
func (e *Engine) Evaluate(ctx context.Context, pair *models.CandidatePair, a, b *models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Evaluate")
	defer span.End()

	signals, err := e.ScorePair(ctx, a, b)
	if err != nil {
		return err
	}

	confidence, reasons := e.Aggregate(signals)

	pair.Signals = signals
	pair.Confidence = confidence
	pair.MatchReasons = reasons
	pair.Disposition = e.Decide(confidence)

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_a":    pair.EntityA,
		"entity_b":    pair.EntityB,
		"confidence":  confidence,
		"disposition": pair.Disposition,
	}).Debug("Evaluated candidate pair")

	return nil
}

func (e *Engine) contactMatch(a, b *models.Entity) float64 {
	if !a.HasContact() || !b.HasContact() {
		return 0.0
	}
	return e.scorer.ExactMatch(normalizers.NormalizeContact(a.ContactValue()), normalizers.NormalizeContact(b.ContactValue()), false)
}

func (e *Engine) relationshipOverlap(a, b *models.Entity) float64 {
	return e.scorer.Jaccard(partnerSlice(a), partnerSlice(b))
}

func partnerSlice(e *models.Entity) []string {
	partners := e.PartnerIDs()
	out := make([]string, 0, len(partners))
	for id := range partners {
		out = append(out, id)
	}
	return out
}

func entityID(e *models.Entity) string {
	if e == nil {
		return ""
	}
	return e.ID
}
