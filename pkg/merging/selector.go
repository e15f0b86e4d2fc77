// Package merging decides which entity survives a merge and computes the
// surviving entity's property and relationship sets.
package merging

import (
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

// SelectCanonical picks the surviving entity of a pair using an ordered
// tie-break chain, stopping at the first decisive rule:
//  1. non-null contact identifier
//  2. strictly more non-null properties
//  3. strictly more relationship edges
//  4. lexicographically smaller identifier
//
// The second return value is the retired entity.
func SelectCanonical(a, b *models.Entity) (*models.Entity, *models.Entity) {
	if a.HasContact() && !b.HasContact() {
		return a, b
	}
	if b.HasContact() && !a.HasContact() {
		return b, a
	}

	if a.PropertyCount() > b.PropertyCount() {
		return a, b
	}
	if b.PropertyCount() > a.PropertyCount() {
		return b, a
	}

	if len(a.Relationships) > len(b.Relationships) {
		return a, b
	}
	if len(b.Relationships) > len(a.Relationships) {
		return b, a
	}

	if a.ID <= b.ID {
		return a, b
	}
	return b, a
}
