package resolution

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ronkoch2-code/avatar-builder/pkg/graph"
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

// mergeRun carries the mutable state of the merge phase of a single run.
// redirects maps a retired entity ID to the canonical it was folded into;
// touched marks canonicals whose properties or edges changed this run.
type mergeRun struct {
	summary   *models.RunSummary
	entities  map[string]*models.Entity
	redirects map[string]string
	touched   map[string]struct{}
}

// follow chases the redirect table to the live entity ID.
func (r *mergeRun) follow(id string) string {
	for {
		next, ok := r.redirects[id]
		if !ok {
			return id
		}
		id = next
	}
}

// executeMerge resolves both pair members to their live IDs, re-scores the
// pair when either side changed since scoring, and applies the merge with
// bounded retries on write conflicts.
func (o *Orchestrator) executeMerge(ctx context.Context, run *mergeRun, pair *models.CandidatePair, source string) {
	log := o.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_a": pair.EntityA,
		"entity_b": pair.EntityB,
	})

	liveA := run.follow(pair.EntityA)
	liveB := run.follow(pair.EntityB)
	if liveA == liveB {
		// Both sides already collapsed into the same canonical; there is
		// nothing left to merge.
		o.resolveQueued(ctx, pair, models.DispositionMerged)
		return
	}

	a, b := run.entities[liveA], run.entities[liveB]

	// A prior merge this run may have changed either entity, so the original
	// score is stale. Re-fetch and re-decide before committing.
	if o.pairIsStale(run, pair, liveA, liveB) {
		fresh := models.NewCandidatePair(liveA, liveB)
		fresh.ID = pair.ID
		var err error
		if a, err = o.refetch(ctx, run, liveA); err != nil {
			log.WithError(err).Warn("Failed to re-fetch entity, deferring pair")
			run.summary.FailedMerges++
			return
		}
		if b, err = o.refetch(ctx, run, liveB); err != nil {
			log.WithError(err).Warn("Failed to re-fetch entity, deferring pair")
			run.summary.FailedMerges++
			return
		}
		if err := o.matcher.Evaluate(ctx, &fresh, a, b); err != nil {
			log.WithError(err).Warn("Re-scoring failed, deferring pair")
			run.summary.FailedMerges++
			return
		}
		switch fresh.Disposition {
		case models.DispositionAutoMerge:
			pair = &fresh
		case models.DispositionManualReview:
			log.WithFields(map[string]any{"confidence": fresh.Confidence}).Info("Pair demoted to manual review after re-scoring")
			run.summary.ManualReview = append(run.summary.ManualReview, fresh)
			return
		default:
			log.WithFields(map[string]any{"confidence": fresh.Confidence}).Info("Pair rejected after re-scoring")
			run.summary.Rejected++
			return
		}
	}

	release := o.locks.acquire(liveA, liveB)
	defer release()

	plan := o.merger.BuildPlan(ctx, pair, a, b, source)

	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts(); attempt++ {
		lastErr = o.store.ApplyMerge(ctx, plan)
		if lastErr == nil {
			break
		}

		var integrity *graph.MappingIntegrityError
		if errors.As(lastErr, &integrity) {
			log.WithError(lastErr).Error("Merge target already retired, rejecting pair")
			o.resolveQueued(ctx, pair, models.DispositionRejected)
			run.summary.Rejected++
			return
		}

		var conflict *graph.MergeConflictError
		if !errors.As(lastErr, &conflict) {
			break
		}
		log.WithError(lastErr).WithFields(map[string]any{"attempt": attempt}).Warn("Merge conflict, retrying")
	}
	if lastErr != nil {
		log.WithError(lastErr).Error("Merge failed")
		// Back to pending so the next run picks the pair up again.
		o.resolveQueued(ctx, pair, models.DispositionPending)
		run.summary.FailedMerges++
		return
	}

	run.redirects[plan.RetiredID] = plan.CanonicalID
	run.touched[plan.CanonicalID] = struct{}{}
	delete(run.entities, plan.RetiredID)
	run.summary.AutoMerges++

	o.resolveQueued(ctx, pair, models.DispositionMerged)
	if o.emitter != nil {
		o.emitter.EmitEntityMerged(ctx, &plan.Mapping)
	}
}

// pairIsStale reports whether either side of the pair changed since scoring.
func (o *Orchestrator) pairIsStale(run *mergeRun, pair *models.CandidatePair, liveA, liveB string) bool {
	if liveA != pair.EntityA || liveB != pair.EntityB {
		return true
	}
	if _, ok := run.touched[liveA]; ok {
		return true
	}
	_, ok := run.touched[liveB]
	return ok
}

// refetch reloads an entity from the store so re-scoring sees post-merge
// properties and edges, and refreshes the run's in-memory copy.
func (o *Orchestrator) refetch(ctx context.Context, run *mergeRun, id string) (*models.Entity, error) {
	entity, err := o.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("entity %q no longer exists", id)
	}
	run.entities[id] = entity
	return entity, nil
}

// resolveQueued marks the persisted pair resolved. Best effort; the graph is
// the source of truth for mappings, the queue is bookkeeping.
func (o *Orchestrator) resolveQueued(ctx context.Context, pair *models.CandidatePair, disposition models.Disposition) {
	if o.queue == nil || pair.ID == "" {
		return
	}
	if err := o.queue.UpdateDisposition(ctx, pair.ID, disposition, nil); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to update queued pair disposition")
	}
}

func (o *Orchestrator) maxAttempts() int {
	if o.config.MergeMaxAttempts < 1 {
		return 1
	}
	return o.config.MergeMaxAttempts
}

// sortByConfidence orders pairs highest confidence first, with the pair key
// as a stable tiebreak.
func sortByConfidence(pairs []models.CandidatePair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Confidence != pairs[j].Confidence {
			return pairs[i].Confidence > pairs[j].Confidence
		}
		return pairs[i].Key() < pairs[j].Key()
	})
}
