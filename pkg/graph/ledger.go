package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// Resolve returns the canonical identifier for a retired entity, or
// ("", false) when no mapping exists. ApplyMerge rejects any mapping that
// would chain, so a single hop is always the full answer.
func (s *Store) Resolve(ctx context.Context, originalID string) (string, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.Resolve")
	defer span.End()

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (m:%s {original_entity_id: $id})
			RETURN m.canonical_entity_id AS canonical_id
			LIMIT 1
		`, mappingLabel), map[string]any{"id": originalID})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}
		canonical, _ := res.Record().Get("canonical_id")
		return canonical, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %q: %w", originalID, err)
	}
	if result == nil {
		return "", false, nil
	}
	canonical, ok := result.(string)
	if !ok || canonical == "" {
		return "", false, nil
	}
	return canonical, true, nil
}

// MappedOriginalIDs returns the set of entity identifiers that are already
// retired. Used by blocking to exclude them from candidate generation.
func (s *Store) MappedOriginalIDs(ctx context.Context) (map[string]struct{}, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.MappedOriginalIDs")
	defer span.End()

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (m:%s)
			RETURN m.original_entity_id AS original_id
		`, mappingLabel), nil)
		if err != nil {
			return nil, err
		}
		ids := make(map[string]struct{})
		for res.Next(ctx) {
			if id, ok := res.Record().Get("original_id"); ok {
				if s, ok := id.(string); ok && s != "" {
					ids[s] = struct{}{}
				}
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load mapped entity ids: %w", err)
	}
	return result.(map[string]struct{}), nil
}

// Statistics returns ledger and entity counts plus the most recent merge
// timestamp.
func (s *Store) Statistics(ctx context.Context) (*models.Statistics, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.Statistics")
	defer span.End()

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stats := &models.Statistics{}

		mappingResult, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (m:%s)
			RETURN count(m) AS total, max(m.merge_timestamp) AS last_merge
		`, mappingLabel), nil)
		if err != nil {
			return nil, err
		}
		record, err := mappingResult.Single(ctx)
		if err != nil {
			return nil, err
		}
		if total, ok := record.Get("total"); ok {
			if n, ok := total.(int64); ok {
				stats.TotalMappings = int(n)
			}
		}
		if last, ok := record.Get("last_merge"); ok {
			if raw, ok := last.(string); ok && raw != "" {
				if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
					stats.LastRunTimestamp = &parsed
				}
			}
		}

		entityResult, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s)
			RETURN count(p) AS total
		`, personLabel), nil)
		if err != nil {
			return nil, err
		}
		record, err = entityResult.Single(ctx)
		if err != nil {
			return nil, err
		}
		if total, ok := record.Get("total"); ok {
			if n, ok := total.(int64); ok {
				stats.TotalEntities = int(n)
			}
		}

		return stats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	return result.(*models.Statistics), nil
}
