// Package blocking generates candidate pairs without comparing every entity
// against every other entity.
package blocking

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
	"github.com/ronkoch2-code/avatar-builder/pkg/normalizers"
	"github.com/ronkoch2-code/avatar-builder/pkg/tracing"
)

// Index groups entities into blocks by cheap keys so only entities sharing a
// key are ever compared.
type Index struct {
	logger   ectologger.Logger
	maxPairs int
}

// NewIndex creates a blocking index. maxPairs caps the number of candidate
// pairs emitted in a single run.
func NewIndex(logger ectologger.Logger, maxPairs int) *Index {
	return &Index{
		logger:   logger,
		maxPairs: maxPairs,
	}
}

// GeneratePairs produces candidate pairs for the given entity set. Entities
// for which isMapped returns true are retired and excluded entirely. Each
// qualifying pair is emitted exactly once, identifiers sorted, so repeated
// runs over the same set yield identical output.
func (x *Index) GeneratePairs(ctx context.Context, entities []*models.Entity, isMapped func(id string) bool) []models.CandidatePair {
	ctx, span := tracing.StartSpan(ctx, "blocking.Index.GeneratePairs")
	defer span.End()

	log := x.logger.WithContext(ctx)

	active := make([]*models.Entity, 0, len(entities))
	for _, entity := range entities {
		if entity.ID == "" {
			log.WithFields(map[string]any{"entity_name": entity.Name}).Warn("Skipping entity without identifier")
			continue
		}
		if isMapped != nil && isMapped(entity.ID) {
			continue
		}
		active = append(active, entity)
	}

	// block key -> indexes into active
	blocks := make(map[string][]int)
	for i, entity := range active {
		for _, key := range blockKeys(entity) {
			blocks[key] = append(blocks[key], i)
		}
	}

	// Iterate blocks in sorted key order so the cap cuts off at the same
	// point on every run.
	keys := make([]string, 0, len(blocks))
	for key := range blocks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{})
	pairs := make([]models.CandidatePair, 0)
	truncated := false

outer:
	for _, key := range keys {
		members := blocks[key]
		for i := 0; i < len(members)-1; i++ {
			for j := i + 1; j < len(members); j++ {
				pair := models.NewCandidatePair(active[members[i]].ID, active[members[j]].ID)
				if _, ok := seen[pair.Key()]; ok {
					continue
				}
				seen[pair.Key()] = struct{}{}
				pairs = append(pairs, pair)
				if len(pairs) >= x.maxPairs {
					truncated = true
					break outer
				}
			}
		}
	}

	if truncated {
		log.WithFields(map[string]any{"max_pairs": x.maxPairs}).Warn("Candidate pair cap reached, remaining blocks skipped")
	}

	log.WithFields(map[string]any{
		"entity_count": len(active),
		"block_count":  len(blocks),
		"pair_count":   len(pairs),
	}).Debug("Generated candidate pairs")

	return pairs
}

// blockKeys derives the blocking keys for an entity: normalized first+last
// name initials, the normalized contact identifier, and each relationship
// partner.
func blockKeys(entity *models.Entity) []string {
	keys := make([]string, 0, 2+len(entity.Relationships))

	if initials := nameInitials(entity.Name); initials != "" {
		keys = append(keys, "name:"+initials)
	}

	if entity.HasContact() {
		keys = append(keys, "contact:"+normalizers.NormalizeContact(entity.ContactValue()))
	}

	for partner := range entity.PartnerIDs() {
		keys = append(keys, "partner:"+partner)
	}

	return keys
}

func nameInitials(name string) string {
	tokens := strings.Fields(normalizers.NormalizeName(name))
	if len(tokens) == 0 {
		return ""
	}
	return firstRune(tokens[0]) + firstRune(tokens[len(tokens)-1])
}

func firstRune(token string) string {
	r, _ := utf8.DecodeRuneInString(token)
	return string(r)
}
