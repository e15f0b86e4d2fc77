// Package resolution orchestrates the full entity resolution pipeline: load,
// block, score, decide, merge, and the review queue operations around it.
package resolution

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/ronkoch2-code/avatar-builder/config"
	"github.com/ronkoch2-code/avatar-builder/internal/repositories/candidate"
	"github.com/ronkoch2-code/avatar-builder/pkg/blocking"
	"github.com/ronkoch2-code/avatar-builder/pkg/events"
	"github.com/ronkoch2-code/avatar-builder/pkg/fingerprint"
	"github.com/ronkoch2-code/avatar-builder/pkg/graph"
	"github.com/ronkoch2-code/avatar-builder/pkg/matching"
	"github.com/ronkoch2-code/avatar-builder/pkg/merging"
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// Store is the graph persistence the orchestrator depends on.
type Store interface {
	LoadEntities(ctx context.Context) ([]*models.Entity, error)
	GetEntity(ctx context.Context, entityID string) (*models.Entity, error)
	ApplyMerge(ctx context.Context, plan *merging.Plan) error
	Resolve(ctx context.Context, originalID string) (string, bool, error)
	MappedOriginalIDs(ctx context.Context) (map[string]struct{}, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Queue persists candidate pairs across runs for review. Optional; a nil
// queue keeps the pipeline fully functional with in-memory pairs only.
type Queue interface {
	Upsert(ctx context.Context, pairs []*models.CandidatePair) error
	Get(ctx context.Context, id string) (*models.CandidatePair, error)
	ListReviewQueue(ctx context.Context, minConfidence float64, limit int) ([]models.CandidatePair, error)
	UpdateDisposition(ctx context.Context, id string, disposition models.Disposition, resolvedBy *string) error
}

var (
	_ Store = (*graph.Store)(nil)
	_ Queue = (*candidate.Repository)(nil)
)

// Orchestrator runs resolution end to end.
type Orchestrator struct {
	logger  ectologger.Logger
	config  config.Resolution
	store   Store
	queue   Queue
	emitter *events.Emitter
	blocker *blocking.Index
	matcher *matching.Engine
	merger  *merging.Engine
	locks   *entityLocks
}

// NewOrchestrator validates the configuration and wires the pipeline.
// queue and emitter may be nil.
func NewOrchestrator(
	logger ectologger.Logger,
	cfg config.Resolution,
	store Store,
	queue Queue,
	emitter *events.Emitter,
	propertyPolicies map[string]models.PropertyPolicy,
	relationshipPolicies map[string]models.RelationshipPolicy,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	matcherCfg := matching.EngineConfig{
		NameWeight:             cfg.NameWeight,
		ContactWeight:          cfg.ContactWeight,
		RelationshipWeight:     cfg.RelationshipWeight,
		AutoMergeThreshold:     cfg.AutoMergeThreshold,
		ReviewThreshold:        cfg.ReviewThreshold,
		ReasonThreshold:        cfg.ReasonThreshold,
		EnablePhoneticMatching: cfg.UsePhoneticMatching,
		EnableNicknameMatching: cfg.UseNicknameExpansion,
	}

	return &Orchestrator{
		logger:  logger,
		config:  cfg,
		store:   store,
		queue:   queue,
		emitter: emitter,
		blocker: blocking.NewIndex(logger, cfg.MaxComparisonPairs),
		matcher: matching.NewEngine(logger, matcherCfg),
		merger:  merging.NewEngine(logger, propertyPolicies, relationshipPolicies),
		locks:   newEntityLocks(),
	}, nil
}

// Run executes one full resolution pass and returns a summary even on
// partial failure. The run aborts only when the store is unreachable; every
// per-pair failure is recovered and counted.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Orchestrator.Run")
	defer span.End()

	summary := &models.RunSummary{StartedAt: time.Now().UTC()}
	log := o.logger.WithContext(ctx)

	mapped, err := o.store.MappedOriginalIDs(ctx)
	if err != nil {
		return nil, err
	}

	entities, err := o.store.LoadEntities(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Entity, len(entities))
	for _, entity := range entities {
		byID[entity.ID] = entity
	}

	pairs := o.blocker.GeneratePairs(ctx, entities, func(id string) bool {
		_, ok := mapped[id]
		return ok
	})
	summary.CandidatesFound = len(pairs)

	scored, skipped := o.scorePairs(ctx, pairs, byID)
	summary.SkippedPairs = skipped

	o.persistPairs(ctx, scored)

	// Merge highest confidence first so the strongest evidence wins when
	// merges cascade within a cluster.
	sortByConfidence(scored)

	run := &mergeRun{
		summary:   summary,
		entities:  byID,
		redirects: make(map[string]string),
		touched:   make(map[string]struct{}),
	}

	for i := range scored {
		pair := &scored[i]
		switch pair.Disposition {
		case models.DispositionAutoMerge:
			o.executeMerge(ctx, run, pair, models.MappingSourceAutoMerge)
		case models.DispositionManualReview:
			summary.ManualReview = append(summary.ManualReview, *pair)
		case models.DispositionRejected:
			summary.Rejected++
		}
	}

	summary.FinishedAt = time.Now().UTC()
	log.WithFields(map[string]any{
		"candidates":    summary.CandidatesFound,
		"auto_merges":   summary.AutoMerges,
		"manual_review": len(summary.ManualReview),
		"rejected":      summary.Rejected,
		"failed_merges": summary.FailedMerges,
		"skipped_pairs": summary.SkippedPairs,
	}).Info("Resolution run finished")

	return summary, nil
}

// scorePairs evaluates pairs in parallel. Scoring is pure, so the only
// coordination is handing out work; results land at the pair's own index.
func (o *Orchestrator) scorePairs(ctx context.Context, pairs []models.CandidatePair, byID map[string]*models.Entity) ([]models.CandidatePair, int) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Orchestrator.scorePairs")
	defer span.End()

	workers := o.config.MatchWorkerCount
	if workers < 1 {
		workers = 1
	}

	type outcome struct {
		skipped bool
	}
	outcomes := make([]outcome, len(pairs))

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				pair := &pairs[i]
				a := byID[pair.EntityA]
				b := byID[pair.EntityB]
				if err := o.matcher.Evaluate(ctx, pair, a, b); err != nil {
					o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
						"entity_a": pair.EntityA,
						"entity_b": pair.EntityB,
					}).Warn("Skipping pair, scoring failed")
					outcomes[i].skipped = true
					continue
				}
				pair.FingerprintA = fingerprint.Entity(a)
				pair.FingerprintB = fingerprint.Entity(b)
			}
		}()
	}
	for i := range pairs {
		work <- i
	}
	close(work)
	wg.Wait()

	scored := make([]models.CandidatePair, 0, len(pairs))
	skipped := 0
	for i := range pairs {
		if outcomes[i].skipped {
			skipped++
			continue
		}
		scored = append(scored, pairs[i])
	}
	return scored, skipped
}

// persistPairs writes evaluated pairs to the review queue. Persistence
// failures do not stop the run; the in-memory pipeline carries on.
func (o *Orchestrator) persistPairs(ctx context.Context, pairs []models.CandidatePair) {
	if o.queue == nil || len(pairs) == 0 {
		return
	}

	toStore := make([]*models.CandidatePair, 0, len(pairs))
	for i := range pairs {
		if pairs[i].Disposition == models.DispositionRejected {
			continue
		}
		toStore = append(toStore, &pairs[i])
	}
	if len(toStore) == 0 {
		return
	}

	if err := o.queue.Upsert(ctx, toStore); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to persist candidate pairs to review queue")
	}
}
