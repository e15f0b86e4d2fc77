// Package events handles event emission for merge lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/ronkoch2-code/avatar-builder/pkg/kafka"
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// Emitter publishes merge events. Emission is best-effort: a publish failure
// is logged, never propagated, because the merge has already committed.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter. A nil producer disables emission.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitEntityMerged announces a committed merge.
func (e *Emitter) EmitEntityMerged(ctx context.Context, mapping *models.EntityMapping) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntityMerged")
	defer span.End()

	if e.producer == nil {
		return
	}

	event := &kafka.MergeEvent{
		EventType:         "entity.merged",
		MappingID:         mapping.MappingID,
		CanonicalEntityID: mapping.CanonicalEntityID,
		RetiredEntityID:   mapping.OriginalEntityID,
		Confidence:        mapping.MergeConfidence,
		MatchReasons:      mapping.MergeReasons,
		Source:            mapping.Source,
		Timestamp:         mapping.MergeTimestamp,
	}

	if err := e.producer.PublishMergeEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"mapping_id": mapping.MappingID,
		}).Error("Failed to emit entity.merged event")
	}
}
