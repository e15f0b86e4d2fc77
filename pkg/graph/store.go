package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// personLabel is the node label for person entities.
const personLabel = "Person"

// mappingLabel is the node label for merge ledger records.
const mappingLabel = "EntityMapping"

// Store reads and writes person entities and their relationships.
type Store struct {
	client *Client
	logger ectologger.Logger
}

// NewStore creates a new entity store
func NewStore(client *Client, logger ectologger.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// LoadEntities returns every person node with its properties and incident
// relationship edges. Retired entities (those with a mapping) are included;
// callers exclude them during blocking via the ledger.
func (s *Store) LoadEntities(ctx context.Context) ([]*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.LoadEntities")
	defer span.End()

	log := s.logger.WithContext(ctx)

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		entities := make(map[string]*models.Entity)

		nodeResult, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s)
			RETURN p.id AS id, properties(p) AS props
		`, personLabel), nil)
		if err != nil {
			return nil, err
		}
		for nodeResult.Next(ctx) {
			record := nodeResult.Record()
			id, _ := record.Get("id")
			props, _ := record.Get("props")
			entityID, ok := id.(string)
			if !ok || entityID == "" {
				continue
			}
			entities[entityID] = entityFromProps(entityID, props.(map[string]any))
		}
		if err := nodeResult.Err(); err != nil {
			return nil, err
		}

		edgeResult, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (a:%s)-[r]->(b:%s)
			RETURN a.id AS from_id, b.id AS to_id, type(r) AS rel_type, properties(r) AS props
		`, personLabel, personLabel), nil)
		if err != nil {
			return nil, err
		}
		for edgeResult.Next(ctx) {
			record := edgeResult.Record()
			fromID, _ := record.Get("from_id")
			toID, _ := record.Get("to_id")
			relType, _ := record.Get("rel_type")
			props, _ := record.Get("props")

			from, okFrom := fromID.(string)
			to, okTo := toID.(string)
			if !okFrom || !okTo {
				continue
			}

			data, _ := props.(map[string]any)
			ts := timestampFromProps(data)

			if entity, ok := entities[from]; ok {
				entity.Relationships = append(entity.Relationships, models.Relationship{
					Type:      relType.(string),
					PartnerID: to,
					Outgoing:  true,
					Timestamp: ts,
					Data:      data,
				})
			}
			if entity, ok := entities[to]; ok {
				entity.Relationships = append(entity.Relationships, models.Relationship{
					Type:      relType.(string),
					PartnerID: from,
					Outgoing:  false,
					Timestamp: ts,
					Data:      data,
				})
			}
		}
		if err := edgeResult.Err(); err != nil {
			return nil, err
		}

		out := make([]*models.Entity, 0, len(entities))
		for _, entity := range entities {
			out = append(out, entity)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}

	entities := result.([]*models.Entity)
	log.WithFields(map[string]any{"entity_count": len(entities)}).Debug("Loaded entities from graph")
	return entities, nil
}

// GetEntity returns a single person with its incident edges, or nil when the
// node does not exist.
func (s *Store) GetEntity(ctx context.Context, entityID string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.GetEntity")
	defer span.End()

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		nodeResult, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s {id: $id})
			RETURN properties(p) AS props
		`, personLabel), map[string]any{"id": entityID})
		if err != nil {
			return nil, err
		}
		if !nodeResult.Next(ctx) {
			return nil, nodeResult.Err()
		}
		props, _ := nodeResult.Record().Get("props")
		entity := entityFromProps(entityID, props.(map[string]any))

		edgeResult, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (p:%s {id: $id})-[r]-(other:%s)
			RETURN other.id AS partner_id, type(r) AS rel_type, properties(r) AS props,
			       startNode(r).id = $id AS outgoing
		`, personLabel, personLabel), map[string]any{"id": entityID})
		if err != nil {
			return nil, err
		}
		for edgeResult.Next(ctx) {
			record := edgeResult.Record()
			partnerID, _ := record.Get("partner_id")
			relType, _ := record.Get("rel_type")
			relProps, _ := record.Get("props")
			outgoing, _ := record.Get("outgoing")

			partner, ok := partnerID.(string)
			if !ok {
				continue
			}
			data, _ := relProps.(map[string]any)
			entity.Relationships = append(entity.Relationships, models.Relationship{
				Type:      relType.(string),
				PartnerID: partner,
				Outgoing:  outgoing == true,
				Timestamp: timestampFromProps(data),
				Data:      data,
			})
		}
		if err := edgeResult.Err(); err != nil {
			return nil, err
		}
		return entity, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity %q: %w", entityID, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.Entity), nil
}

// entityFromProps maps a node property bag onto an Entity. The id, name and
// email keys are lifted out; everything else stays in Properties.
func entityFromProps(id string, props map[string]any) *models.Entity {
	entity := &models.Entity{
		ID:         id,
		Properties: make(map[string]any, len(props)),
	}
	for key, value := range props {
		switch key {
		case "id":
			continue
		case "name":
			if name, ok := value.(string); ok {
				entity.Name = name
			}
			entity.Properties[key] = value
		case "email":
			if email, ok := value.(string); ok && email != "" {
				entity.Contact = &email
			}
			entity.Properties[key] = value
		default:
			entity.Properties[key] = value
		}
	}
	return entity
}

func timestampFromProps(props map[string]any) *time.Time {
	if props == nil {
		return nil
	}
	switch v := props["timestamp"].(type) {
	case time.Time:
		return &v
	case string:
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}
