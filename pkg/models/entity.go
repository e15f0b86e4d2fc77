// Package models defines the core types shared across the resolution pipeline
package models

import (
	"time"
)

// Entity represents a person record in the knowledge graph.
// Entities are owned by the ingestion pipeline; the resolution engine only
// mutates them through merge transactions.
type Entity struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Contact       *string        `json:"contact,omitempty"` // normalized email, nil when unknown
	Properties    map[string]any `json:"properties"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// ContactValue returns the normalized contact identifier or "" when absent.
func (e *Entity) ContactValue() string {
	if e.Contact == nil {
		return ""
	}
	return *e.Contact
}

// HasContact reports whether the entity carries a non-empty contact identifier.
func (e *Entity) HasContact() bool {
	return e.Contact != nil && *e.Contact != ""
}

// PropertyCount returns the number of non-nil properties.
func (e *Entity) PropertyCount() int {
	count := 0
	for _, v := range e.Properties {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		count++
	}
	return count
}

// PartnerIDs returns the set of relationship partner identifiers.
func (e *Entity) PartnerIDs() map[string]struct{} {
	partners := make(map[string]struct{}, len(e.Relationships))
	for _, rel := range e.Relationships {
		partners[rel.PartnerID] = struct{}{}
	}
	return partners
}

// Relationship is a typed edge incident to an entity. Direction is recorded
// from the owning entity's point of view.
type Relationship struct {
	Type      string         `json:"type"`
	PartnerID string         `json:"partner_id"`
	Outgoing  bool           `json:"outgoing"`
	Timestamp *time.Time     `json:"timestamp,omitempty"` // most recent activity on the edge
	Data      map[string]any `json:"data,omitempty"`
}

// EdgeKey identifies an edge for deduplication purposes: same type, same
// partner, same direction.
func (r *Relationship) EdgeKey() string {
	direction := "in"
	if r.Outgoing {
		direction = "out"
	}
	return r.Type + "|" + r.PartnerID + "|" + direction
}
