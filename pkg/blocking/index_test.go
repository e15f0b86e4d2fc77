package blocking

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

func testIndex(maxPairs int) *Index {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewIndex(logger, maxPairs)
}

func strPtr(s string) *string { return &s }

func TestIndex_GeneratePairs(t *testing.T) {
	t.Run("shared name initials produce one pair", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Robert Smith"},
			{ID: "e2", Name: "Rachel Stevens"},
			{ID: "e3", Name: "Alice Young"},
		}

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Len(t, pairs, 1)
		assert.Equal(t, "e1", pairs[0].EntityA)
		assert.Equal(t, "e2", pairs[0].EntityB)
	})

	t.Run("multi byte initials block cleanly", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Éva Lakatos"},
			{ID: "e2", Name: "Évike Lantos"},
		}

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Len(t, pairs, 1)
		assert.Equal(t, "él", nameInitials("Éva Lakatos"))
	})

	t.Run("shared contact blocks across different names", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Robert Smith", Contact: strPtr("r.smith@x.com")},
			{ID: "e2", Name: "Johnny Walker", Contact: strPtr("R.Smith@X.com")},
		}

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Len(t, pairs, 1)
	})

	t.Run("shared relationship partner blocks", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Jane Doe", Relationships: []models.Relationship{{Type: "KNOWS", PartnerID: "org1"}}},
			{ID: "e2", Name: "Bill Murray", Relationships: []models.Relationship{{Type: "WORKS_FOR", PartnerID: "org1"}}},
		}

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Len(t, pairs, 1)
	})

	t.Run("pair emitted once despite multiple shared keys", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Robert Smith", Contact: strPtr("r.smith@x.com")},
			{ID: "e2", Name: "Rob Smith", Contact: strPtr("r.smith@x.com")},
		}

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Len(t, pairs, 1)
	})

	t.Run("identifiers emitted in sorted order", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "z9", Name: "Jane Doe"},
			{ID: "a1", Name: "Jane Doe"},
		}

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Len(t, pairs, 1)
		assert.Equal(t, "a1", pairs[0].EntityA)
		assert.Equal(t, "z9", pairs[0].EntityB)
	})

	t.Run("mapped entities are excluded", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Jane Doe"},
			{ID: "e2", Name: "Jane Doe"},
		}
		isMapped := func(id string) bool { return id == "e2" }

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, isMapped)

		assert.Empty(t, pairs)
	})

	t.Run("entities without identifiers are skipped", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "", Name: "Jane Doe"},
			{ID: "e2", Name: "Jane Doe"},
		}

		pairs := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Empty(t, pairs)
	})

	t.Run("cap bounds emitted pairs", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Jane Doe"},
			{ID: "e2", Name: "Jane Doe"},
			{ID: "e3", Name: "Jane Doe"},
			{ID: "e4", Name: "Jane Doe"},
		}

		pairs := testIndex(2).GeneratePairs(context.Background(), entities, nil)

		assert.Len(t, pairs, 2)
	})

	t.Run("re-run produces identical pairs", func(t *testing.T) {
		entities := []*models.Entity{
			{ID: "e1", Name: "Jane Doe", Relationships: []models.Relationship{{Type: "KNOWS", PartnerID: "p1"}}},
			{ID: "e2", Name: "Jane Doe", Relationships: []models.Relationship{{Type: "KNOWS", PartnerID: "p1"}}},
			{ID: "e3", Name: "John Dower"},
		}

		first := testIndex(100).GeneratePairs(context.Background(), entities, nil)
		second := testIndex(100).GeneratePairs(context.Background(), entities, nil)

		assert.Equal(t, first, second)
	})
}
