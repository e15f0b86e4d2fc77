package resolution

import (
	"context"
	"errors"
	"fmt"

	"github.com/ronkoch2-code/avatar-builder/pkg/fingerprint"
	"github.com/ronkoch2-code/avatar-builder/pkg/graph"
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// ErrNotReviewable is returned when a review decision targets a pair that is
// not waiting on manual review.
var ErrNotReviewable = errors.New("candidate pair is not pending manual review")

// ErrStaleReview is returned when the entities behind a reviewed pair changed
// since scoring and the pair no longer qualifies for a merge.
var ErrStaleReview = errors.New("candidate pair is stale")

// ListReviewQueue returns pending manual review pairs at or above the given
// confidence, highest confidence first.
func (o *Orchestrator) ListReviewQueue(ctx context.Context, minConfidence float64, limit int) ([]models.CandidatePair, error) {
	if o.queue == nil {
		return nil, errors.New("review queue is not configured")
	}
	return o.queue.ListReviewQueue(ctx, minConfidence, limit)
}

// ConfirmMerge applies a reviewer-approved merge. The pair's entities are
// resolved to their live canonicals first, so a pair queued before an earlier
// merge still lands on the right nodes.
func (o *Orchestrator) ConfirmMerge(ctx context.Context, pairID string, resolvedBy string) (*models.EntityMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Orchestrator.ConfirmMerge")
	defer span.End()

	if o.queue == nil {
		return nil, errors.New("review queue is not configured")
	}

	pair, err := o.queue.Get(ctx, pairID)
	if err != nil {
		return nil, err
	}
	if pair.Disposition != models.DispositionManualReview {
		return nil, fmt.Errorf("%w: pair %s has disposition %s", ErrNotReviewable, pairID, pair.Disposition)
	}

	liveA, err := o.liveID(ctx, pair.EntityA)
	if err != nil {
		return nil, err
	}
	liveB, err := o.liveID(ctx, pair.EntityB)
	if err != nil {
		return nil, err
	}
	if liveA == liveB {
		// An earlier merge already collapsed the pair.
		if err := o.queue.UpdateDisposition(ctx, pairID, models.DispositionMerged, &resolvedBy); err != nil {
			return nil, err
		}
		return nil, nil
	}

	release := o.locks.acquire(liveA, liveB)
	defer release()

	a, err := o.store.GetEntity(ctx, liveA)
	if err != nil {
		return nil, err
	}
	b, err := o.store.GetEntity(ctx, liveB)
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, fmt.Errorf("entity pair (%s, %s) no longer resolvable", liveA, liveB)
	}

	confirmed := models.NewCandidatePair(liveA, liveB)
	confirmed.Confidence = pair.Confidence
	confirmed.MatchReasons = pair.MatchReasons
	confirmed.Signals = pair.Signals

	// A reviewer approved a specific snapshot of the two entities. If either
	// one changed since scoring, re-score before trusting the decision.
	if o.pairChangedSinceScoring(pair, liveA, liveB, a, b) {
		if err := o.matcher.Evaluate(ctx, &confirmed, a, b); err != nil {
			return nil, err
		}
		if confirmed.Disposition == models.DispositionRejected {
			return nil, fmt.Errorf("%w: pair %s re-scored at %.2f after entity changes", ErrStaleReview, pairID, confirmed.Confidence)
		}
	}

	plan := o.merger.BuildPlan(ctx, &confirmed, a, b, models.MappingSourceManualReview)

	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts(); attempt++ {
		lastErr = o.store.ApplyMerge(ctx, plan)
		if lastErr == nil {
			break
		}
		var conflict *graph.MergeConflictError
		if !errors.As(lastErr, &conflict) {
			break
		}
		o.logger.WithContext(ctx).WithError(lastErr).WithFields(map[string]any{"attempt": attempt}).Warn("Merge conflict, retrying")
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if err := o.queue.UpdateDisposition(ctx, pairID, models.DispositionMerged, &resolvedBy); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Merge applied but queue update failed")
	}
	if o.emitter != nil {
		o.emitter.EmitEntityMerged(ctx, &plan.Mapping)
	}
	return &plan.Mapping, nil
}

// RejectPair records a reviewer's rejection of a queued pair.
func (o *Orchestrator) RejectPair(ctx context.Context, pairID string, resolvedBy string) error {
	if o.queue == nil {
		return errors.New("review queue is not configured")
	}
	pair, err := o.queue.Get(ctx, pairID)
	if err != nil {
		return err
	}
	if pair.Disposition != models.DispositionManualReview {
		return fmt.Errorf("%w: pair %s has disposition %s", ErrNotReviewable, pairID, pair.Disposition)
	}
	return o.queue.UpdateDisposition(ctx, pairID, models.DispositionRejected, &resolvedBy)
}

// LookupCanonical resolves a historical entity ID through the mapping ledger
// to the entity that currently represents it. Returns the input ID with
// found=false when no mapping exists.
func (o *Orchestrator) LookupCanonical(ctx context.Context, entityID string) (string, bool, error) {
	return o.liveIDTracked(ctx, entityID)
}

// GetStatistics reports ledger and graph counts.
func (o *Orchestrator) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return o.store.Statistics(ctx)
}

// pairChangedSinceScoring reports whether either pair member was merged away
// or had its resolvable state change since the pair was scored.
func (o *Orchestrator) pairChangedSinceScoring(pair *models.CandidatePair, liveA, liveB string, a, b *models.Entity) bool {
	if liveA != pair.EntityA || liveB != pair.EntityB {
		return true
	}
	if pair.FingerprintA != "" && fingerprint.Entity(a) != pair.FingerprintA {
		return true
	}
	return pair.FingerprintB != "" && fingerprint.Entity(b) != pair.FingerprintB
}

// liveID resolves an entity to its current canonical. Mappings are one hop
// by construction; the store refuses to commit a chain.
func (o *Orchestrator) liveID(ctx context.Context, entityID string) (string, error) {
	id, _, err := o.liveIDTracked(ctx, entityID)
	return id, err
}

func (o *Orchestrator) liveIDTracked(ctx context.Context, entityID string) (string, bool, error) {
	canonical, ok, err := o.store.Resolve(ctx, entityID)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return entityID, false, nil
	}
	return canonical, true, nil
}
