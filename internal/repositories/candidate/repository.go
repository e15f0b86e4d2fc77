// Package candidate persists the review queue of candidate pairs.
package candidate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/ronkoch2-code/avatar-builder/internal/database"
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// ErrNotFound is returned when a candidate pair does not exist.
var ErrNotFound = errors.New("candidate pair not found")

const table = "candidate_pairs"

var candidateStruct = database.NewStruct(new(candidateRow))

// candidateRow maps the candidate_pairs table; signal scores and reasons are
// stored as jsonb.
type candidateRow struct {
	ID           string                              `db:"id"`
	EntityA      string                              `db:"entity_a"`
	EntityB      string                              `db:"entity_b"`
	Confidence   float64                             `db:"confidence"`
	Disposition  string                              `db:"disposition"`
	Signals      database.JSONB[models.SignalScores] `db:"signals"`
	MatchReasons database.JSONB[[]string]            `db:"match_reasons"`
	FingerprintA string                              `db:"fingerprint_a"`
	FingerprintB string                              `db:"fingerprint_b"`
	CreatedAt    time.Time                           `db:"created_at"`
	UpdatedAt    time.Time                           `db:"updated_at"`
	ResolvedAt   *time.Time                          `db:"resolved_at"`
	ResolvedBy   *string                             `db:"resolved_by"`
}

func (r *candidateRow) toModel() models.CandidatePair {
	return models.CandidatePair{
		ID:           r.ID,
		EntityA:      r.EntityA,
		EntityB:      r.EntityB,
		Confidence:   r.Confidence,
		Disposition:  models.Disposition(r.Disposition),
		Signals:      r.Signals.Data,
		MatchReasons: r.MatchReasons.Data,
		FingerprintA: r.FingerprintA,
		FingerprintB: r.FingerprintB,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		ResolvedAt:   r.ResolvedAt,
		ResolvedBy:   r.ResolvedBy,
	}
}

// Repository handles candidate pair persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new candidate pair repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes a batch of evaluated pairs. A pair that already exists for
// the same entity pair keeps its row but takes the fresh confidence,
// signals and disposition, unless it was already resolved.
func (r *Repository) Upsert(ctx context.Context, pairs []*models.CandidatePair) error {
	ctx, span := tracing.StartSpan(ctx, "candidate.Repository.Upsert")
	defer span.End()

	if len(pairs) == 0 {
		return nil
	}

	query, args := buildUpsert(pairs)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert candidate pairs")
		return fmt.Errorf("failed to upsert candidate pairs: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(pairs)}).Debug("Upserted candidate pairs")
	return nil
}

// buildUpsert assigns IDs and timestamps to the pairs and builds the insert.
// A pair that already exists for the same entity pair keeps its row but takes
// the fresh values, unless it was already resolved.
func buildUpsert(pairs []*models.CandidatePair) (string, []any) {
	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto(table).Cols("id", "entity_a", "entity_b", "confidence", "disposition", "signals", "match_reasons", "fingerprint_a", "fingerprint_b", "created_at", "updated_at")

	for _, p := range pairs {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.CreatedAt = now
		p.UpdatedAt = now
		ib.Values(
			p.ID, p.EntityA, p.EntityB, p.Confidence, string(p.Disposition),
			database.JSONB[models.SignalScores]{Data: p.Signals},
			database.JSONB[[]string]{Data: p.MatchReasons},
			p.FingerprintA, p.FingerprintB,
			p.CreatedAt, p.UpdatedAt,
		)
	}

	ub := ib.OnConflict("entity_a", "entity_b")
	ub.Set(
		ub.Assign("confidence", database.Excluded("confidence")),
		ub.Assign("disposition", database.Excluded("disposition")),
		ub.Assign("signals", database.Excluded("signals")),
		ub.Assign("match_reasons", database.Excluded("match_reasons")),
		ub.Assign("fingerprint_a", database.Excluded("fingerprint_a")),
		ub.Assign("fingerprint_b", database.Excluded("fingerprint_b")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)
	ub.Where("candidate_pairs.resolved_at IS NULL")

	return ib.Build()
}

// Get retrieves a candidate pair by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.CandidatePair, error) {
	ctx, span := tracing.StartSpan(ctx, "candidate.Repository.Get")
	defer span.End()

	sb := candidateStruct.SelectFrom(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row candidateRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get candidate pair")
		return nil, fmt.Errorf("failed to get candidate pair %s: %w", id, err)
	}

	pair := row.toModel()
	return &pair, nil
}

// GetByEntityPair gets an existing candidate between two entities. Returns
// nil when none exists.
func (r *Repository) GetByEntityPair(ctx context.Context, entityA, entityB string) (*models.CandidatePair, error) {
	ctx, span := tracing.StartSpan(ctx, "candidate.Repository.GetByEntityPair")
	defer span.End()

	if entityB < entityA {
		entityA, entityB = entityB, entityA
	}

	sb := candidateStruct.SelectFrom(table)
	sb.Where(
		sb.Equal("entity_a", entityA),
		sb.Equal("entity_b", entityB),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var row candidateRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get candidate pair by entities")
		return nil, fmt.Errorf("failed to get candidate pair by entities: %w", err)
	}

	pair := row.toModel()
	return &pair, nil
}

// ListReviewQueue retrieves manual review pairs at or above the given
// confidence, highest confidence first.
func (r *Repository) ListReviewQueue(ctx context.Context, minConfidence float64, limit int) ([]models.CandidatePair, error) {
	ctx, span := tracing.StartSpan(ctx, "candidate.Repository.ListReviewQueue")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := candidateStruct.SelectFrom(table)
	sb.Where(
		sb.Equal("disposition", string(models.DispositionManualReview)),
		sb.GreaterEqualThan("confidence", minConfidence),
	)
	sb.OrderBy("confidence DESC", "created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list review queue")
		return nil, fmt.Errorf("failed to list review queue: %w", err)
	}

	pairs := make([]models.CandidatePair, len(rows))
	for i := range rows {
		pairs[i] = rows[i].toModel()
	}
	return pairs, nil
}

// UpdateDisposition moves a pair to a new disposition. resolvedBy records
// who or what resolved it, nil for engine-internal transitions.
func (r *Repository) UpdateDisposition(ctx context.Context, id string, disposition models.Disposition, resolvedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "candidate.Repository.UpdateDisposition")
	defer span.End()

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update(table)
	assignments := []string{
		ub.Assign("disposition", string(disposition)),
		ub.Assign("updated_at", now),
	}
	if disposition == models.DispositionMerged || disposition == models.DispositionRejected {
		assignments = append(assignments,
			ub.Assign("resolved_at", now),
			ub.Assign("resolved_by", resolvedBy),
		)
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update candidate pair disposition")
		return fmt.Errorf("failed to update candidate pair %s: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// DeleteResolved removes pairs resolved before the cutoff. Pairs carry no
// long-term value once merged or rejected; the mapping ledger is the audit
// record.
func (r *Repository) DeleteResolved(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "candidate.Repository.DeleteResolved")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(
		"resolved_at IS NOT NULL",
		db.LessThan("resolved_at", before),
	)

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete resolved candidate pairs")
		return 0, fmt.Errorf("failed to delete resolved candidate pairs: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
