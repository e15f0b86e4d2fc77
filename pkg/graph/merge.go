package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ronkoch2-code/avatar-builder/pkg/merging"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// ApplyMerge commits a merge plan in a single write transaction: the
// canonical node takes the merged property set, every edge incident to
// either entity is replaced by the consolidated edge set, one EntityMapping
// record is created and the retired node is deleted. Either all of it
// commits or none of it does.
//
// Returns MappingIntegrityError when the mapping would chain and
// MergeConflictError when the transaction cannot commit.
func (s *Store) ApplyMerge(ctx context.Context, plan *merging.Plan) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.ApplyMerge")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"canonical_id": plan.CanonicalID,
		"retired_id":   plan.RetiredID,
	})

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// A mapping whose canonical id is itself someone's original would
		// form a chain. Checked inside the transaction so a concurrent merge
		// cannot slip one in.
		chained, err := hasMappingForOriginal(ctx, tx, plan.CanonicalID)
		if err != nil {
			return nil, err
		}
		if chained {
			return nil, &MappingIntegrityError{
				OriginalID:  plan.RetiredID,
				CanonicalID: plan.CanonicalID,
				Reason:      fmt.Sprintf("%q is already mapped to another canonical entity", plan.CanonicalID),
			}
		}

		// The mirror case: retiring an entity that survived an earlier merge
		// would leave that merge's mappings resolving to a deleted node.
		survivor, err := hasMappingWithCanonical(ctx, tx, plan.RetiredID)
		if err != nil {
			return nil, err
		}
		if survivor {
			return nil, &MappingIntegrityError{
				OriginalID:  plan.RetiredID,
				CanonicalID: plan.CanonicalID,
				Reason:      fmt.Sprintf("%q is the canonical entity of an earlier mapping", plan.RetiredID),
			}
		}

		retiredAlready, err := hasMappingForOriginal(ctx, tx, plan.RetiredID)
		if err != nil {
			return nil, err
		}
		if retiredAlready {
			return nil, fmt.Errorf("entity %q is already retired", plan.RetiredID)
		}

		// Both nodes must still exist; a missing node means another merge
		// won the race.
		countResult, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s)
			WHERE p.id IN [$canonical_id, $retired_id]
			RETURN count(p) AS node_count
		`, personLabel), map[string]any{
			"canonical_id": plan.CanonicalID,
			"retired_id":   plan.RetiredID,
		})
		if err != nil {
			return nil, err
		}
		record, err := countResult.Single(ctx)
		if err != nil {
			return nil, err
		}
		if count, _ := record.Get("node_count"); count != int64(2) {
			return nil, fmt.Errorf("expected both entities present, found %v nodes", count)
		}

		// 1. merged properties onto the canonical node
		if _, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s {id: $id})
			SET p += $props
		`, personLabel), map[string]any{
			"id":    plan.CanonicalID,
			"props": plan.Properties,
		}); err != nil {
			return nil, err
		}

		// 2. replace every edge incident to either entity with the
		// consolidated set
		if _, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s)-[r]-()
			WHERE p.id IN [$canonical_id, $retired_id]
			DELETE r
		`, personLabel), map[string]any{
			"canonical_id": plan.CanonicalID,
			"retired_id":   plan.RetiredID,
		}); err != nil {
			return nil, err
		}

		created, err := createEdges(ctx, tx, plan)
		if err != nil {
			return nil, err
		}
		if created != len(plan.Relationships) {
			return nil, fmt.Errorf("created %d of %d consolidated edges, partner node missing", created, len(plan.Relationships))
		}

		// 3. the ledger record
		if _, err := tx.Run(ctx, fmt.Sprintf(`
			CREATE (m:%s {
				mapping_id: $mapping_id,
				original_entity_id: $original_id,
				canonical_entity_id: $canonical_id,
				merge_timestamp: $timestamp,
				merge_confidence: $confidence,
				merge_reasons: $reasons,
				source: $source
			})
		`, mappingLabel), map[string]any{
			"mapping_id":   plan.Mapping.MappingID,
			"original_id":  plan.Mapping.OriginalEntityID,
			"canonical_id": plan.Mapping.CanonicalEntityID,
			"timestamp":    plan.Mapping.MergeTimestamp.Format(time.RFC3339),
			"confidence":   plan.Mapping.MergeConfidence,
			"reasons":      toAnySlice(plan.Mapping.MergeReasons),
			"source":       plan.Mapping.Source,
		}); err != nil {
			return nil, err
		}

		// 4. retire the duplicate
		if _, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s {id: $id})
			DETACH DELETE p
		`, personLabel), map[string]any{"id": plan.RetiredID}); err != nil {
			return nil, err
		}

		return nil, nil
	})

	if err != nil {
		var integrityErr *MappingIntegrityError
		if errors.As(err, &integrityErr) {
			log.WithError(err).Error("Merge would create a mapping chain")
			return integrityErr
		}
		log.WithError(err).Error("Merge transaction failed")
		return &MergeConflictError{
			CanonicalID: plan.CanonicalID,
			RetiredID:   plan.RetiredID,
			Cause:       err,
		}
	}

	log.Info("Merged entity into canonical")
	return nil
}

// createEdges recreates the consolidated edge set, grouped by type and
// direction so each Cypher statement has a static relationship type. Returns
// the number of edges actually created.
func createEdges(ctx context.Context, tx neo4j.ManagedTransaction, plan *merging.Plan) (int, error) {
	type edgeGroup struct {
		relType  string
		outgoing bool
	}
	groups := make(map[edgeGroup][]map[string]any)
	for _, rel := range plan.Relationships {
		key := edgeGroup{relType: rel.Type, outgoing: rel.Outgoing}
		props := rel.Data
		if props == nil {
			props = map[string]any{}
		}
		groups[key] = append(groups[key], map[string]any{
			"partner_id": rel.PartnerID,
			"props":      props,
		})
	}

	total := 0
	for group, batch := range groups {
		pattern := fmt.Sprintf("(p)-[r:%s]->(partner)", sanitizeLabel(group.relType))
		if !group.outgoing {
			pattern = fmt.Sprintf("(p)<-[r:%s]-(partner)", sanitizeLabel(group.relType))
		}

		result, err := tx.Run(ctx, fmt.Sprintf(`
			UNWIND $batch AS edge
			MATCH (p:%s {id: $canonical_id})
			MATCH (partner:%s {id: edge.partner_id})
			CREATE %s
			SET r = edge.props
		`, personLabel, personLabel, pattern), map[string]any{
			"canonical_id": plan.CanonicalID,
			"batch":        batch,
		})
		if err != nil {
			return total, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return total, err
		}
		total += summary.Counters().RelationshipsCreated()
	}
	return total, nil
}

// sanitizeLabel ensures the label is safe for Cypher
func sanitizeLabel(label string) string {
	// Only allow alphanumeric and underscore
	result := ""
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result += string(c)
		}
	}
	if result == "" {
		return "RELATED_TO"
	}
	return result
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func hasMappingForOriginal(ctx context.Context, tx neo4j.ManagedTransaction, entityID string) (bool, error) {
	return mappingExists(ctx, tx, "original_entity_id", entityID)
}

func hasMappingWithCanonical(ctx context.Context, tx neo4j.ManagedTransaction, entityID string) (bool, error) {
	return mappingExists(ctx, tx, "canonical_entity_id", entityID)
}

func mappingExists(ctx context.Context, tx neo4j.ManagedTransaction, property, entityID string) (bool, error) {
	result, err := tx.Run(ctx, fmt.Sprintf(`
		MATCH (m:%s {%s: $id})
		RETURN m.mapping_id
		LIMIT 1
	`, mappingLabel, property), map[string]any{"id": entityID})
	if err != nil {
		return false, err
	}
	found := result.Next(ctx)
	if err := result.Err(); err != nil {
		return false, err
	}
	return found, nil
}
