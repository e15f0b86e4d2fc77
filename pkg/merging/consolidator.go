package merging

import (
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

// Consolidator computes the relationship set the canonical entity carries
// after a merge.
type Consolidator struct {
	policies map[string]models.RelationshipPolicy
}

// NewConsolidator creates a Consolidator. A nil policy table falls back to
// the defaults; types absent from the table use dedupe_keep_latest.
func NewConsolidator(policies map[string]models.RelationshipPolicy) *Consolidator {
	if policies == nil {
		policies = models.DefaultRelationshipPolicies()
	}
	return &Consolidator{policies: policies}
}

// Consolidate unions the two entities' edges, rewriting the retired entity's
// edges onto the canonical entity. Edges whose partner becomes the canonical
// entity itself after rewriting are dropped as self-loops. Edges to third
// parties are never dropped, only deduplicated per policy.
func (c *Consolidator) Consolidate(canonical, retired *models.Entity) []models.Relationship {
	merged := make([]models.Relationship, 0, len(canonical.Relationships)+len(retired.Relationships))
	// EdgeKey -> index into merged, for dedupe_keep_latest types
	byKey := make(map[string]int)

	add := func(rel models.Relationship, fromRetired bool) {
		if fromRetired {
			if rel.PartnerID == retired.ID || rel.PartnerID == canonical.ID {
				// rewriting onto canonical would create a self-loop
				return
			}
		} else if rel.PartnerID == retired.ID {
			// canonical's own edge to the retired entity collapses
			return
		}

		policy, ok := c.policies[rel.Type]
		if !ok {
			policy = models.RelationshipPolicyDedupeKeepLatest
		}

		if policy == models.RelationshipPolicyPreserveAll {
			merged = append(merged, rel)
			return
		}

		key := rel.EdgeKey()
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = len(merged)
			merged = append(merged, rel)
			return
		}

		// same type, partner and direction seen from both sides: keep the
		// edge with the most recent timestamp, canonical's when untimed
		if newerThan(rel, merged[existing]) {
			merged[existing] = rel
		}
	}

	for _, rel := range canonical.Relationships {
		add(rel, false)
	}
	for _, rel := range retired.Relationships {
		add(rel, true)
	}

	return merged
}

func newerThan(candidate, current models.Relationship) bool {
	if candidate.Timestamp == nil {
		return false
	}
	if current.Timestamp == nil {
		return true
	}
	return candidate.Timestamp.After(*current.Timestamp)
}
