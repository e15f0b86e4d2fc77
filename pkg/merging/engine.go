package merging

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// Plan is the fully computed effect of merging one pair: the surviving
// entity's final property and relationship sets plus the ledger record.
// A Plan is applied in a single atomic graph transaction.
type Plan struct {
	CanonicalID   string
	RetiredID     string
	Properties    map[string]any
	Relationships []models.Relationship
	Mapping       models.EntityMapping
}

// Engine builds merge plans for decided pairs.
type Engine struct {
	logger       ectologger.Logger
	properties   *PropertyMerger
	consolidator *Consolidator
}

// NewEngine creates a merge engine with the given policy tables. Nil tables
// use the defaults.
func NewEngine(logger ectologger.Logger, propertyPolicies map[string]models.PropertyPolicy, relationshipPolicies map[string]models.RelationshipPolicy) *Engine {
	return &Engine{
		logger:       logger,
		properties:   NewPropertyMerger(propertyPolicies),
		consolidator: NewConsolidator(relationshipPolicies),
	}
}

// BuildPlan selects the canonical entity and computes the merged property
// set, consolidated relationships and the EntityMapping record. source tags
// whether the merge came from the automatic path or a confirmed review.
func (e *Engine) BuildPlan(ctx context.Context, pair *models.CandidatePair, a, b *models.Entity, source string) *Plan {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.BuildPlan")
	defer span.End()

	canonical, retired := SelectCanonical(a, b)

	plan := &Plan{
		CanonicalID:   canonical.ID,
		RetiredID:     retired.ID,
		Properties:    e.properties.Merge(canonical, retired),
		Relationships: e.consolidator.Consolidate(canonical, retired),
		Mapping: models.EntityMapping{
			MappingID:         uuid.NewString(),
			OriginalEntityID:  retired.ID,
			CanonicalEntityID: canonical.ID,
			MergeTimestamp:    time.Now().UTC(),
			MergeConfidence:   pair.Confidence,
			MergeReasons:      pair.MatchReasons,
			Source:            source,
		},
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"canonical_id": plan.CanonicalID,
		"retired_id":   plan.RetiredID,
		"confidence":   pair.Confidence,
	}).Debug("Built merge plan")

	return plan
}
