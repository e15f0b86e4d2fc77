package resolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronkoch2-code/avatar-builder/config"
	"github.com/ronkoch2-code/avatar-builder/pkg/fingerprint"
	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

func seedReviewPair(t *testing.T, queue *fakeQueue, entityA, entityB string, confidence float64) string {
	t.Helper()
	pair := models.NewCandidatePair(entityA, entityB)
	pair.Confidence = confidence
	pair.Disposition = models.DispositionManualReview
	pair.MatchReasons = []string{"name_similarity_0.75"}
	require.NoError(t, queue.Upsert(context.Background(), []*models.CandidatePair{&pair}))
	return pair.ID
}

func TestOrchestrator_ConfirmMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a reviewer approved merge", func(t *testing.T) {
		store := newFakeStore(
			&models.Entity{ID: "a1", Name: "Jon Smyth", Properties: map[string]any{"name": "Jon Smyth", "bio": "x"}},
			&models.Entity{ID: "b2", Name: "John Smith", Properties: map[string]any{"name": "John Smith"}},
		)
		queue := newFakeQueue()
		pairID := seedReviewPair(t, queue, "a1", "b2", 0.75)
		orch := newTestOrchestrator(t, store, queue, config.DefaultResolution())

		mapping, err := orch.ConfirmMerge(ctx, pairID, "reviewer@example.com")
		require.NoError(t, err)
		require.NotNil(t, mapping)

		assert.Equal(t, models.MappingSourceManualReview, mapping.Source)
		assert.Equal(t, 0.75, mapping.MergeConfidence)
		assert.Equal(t, "a1", mapping.CanonicalEntityID)
		assert.Equal(t, "b2", mapping.OriginalEntityID)

		resolved, found, err := store.Resolve(ctx, "b2")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "a1", resolved)

		queued, err := queue.Get(ctx, pairID)
		require.NoError(t, err)
		assert.Equal(t, models.DispositionMerged, queued.Disposition)
		require.NotNil(t, queued.ResolvedBy)
		assert.Equal(t, "reviewer@example.com", *queued.ResolvedBy)
	})

	t.Run("follows mappings when a pair member was merged earlier", func(t *testing.T) {
		store := newFakeStore(
			&models.Entity{ID: "c3", Name: "Jane Dough", Properties: map[string]any{"name": "Jane Dough", "bio": "x"}},
			&models.Entity{ID: "d4", Name: "Jane Dough", Properties: map[string]any{"name": "Jane Dough"}},
		)
		store.mappings["b2"] = &models.EntityMapping{OriginalEntityID: "b2", CanonicalEntityID: "c3"}
		queue := newFakeQueue()
		pairID := seedReviewPair(t, queue, "b2", "d4", 0.7)
		orch := newTestOrchestrator(t, store, queue, config.DefaultResolution())

		mapping, err := orch.ConfirmMerge(ctx, pairID, "reviewer@example.com")
		require.NoError(t, err)
		require.NotNil(t, mapping)
		assert.Equal(t, "c3", mapping.CanonicalEntityID)
		assert.Equal(t, "d4", mapping.OriginalEntityID)
	})

	t.Run("refuses a stale pair that no longer qualifies", func(t *testing.T) {
		jon := &models.Entity{ID: "a1", Name: "Jon Smyth", Properties: map[string]any{"name": "Jon Smyth"}}
		john := &models.Entity{ID: "b2", Name: "John Smith", Properties: map[string]any{"name": "John Smith"}}
		store := newFakeStore(jon, john)
		queue := newFakeQueue()

		pair := models.NewCandidatePair("a1", "b2")
		pair.Confidence = 0.75
		pair.Disposition = models.DispositionManualReview
		pair.FingerprintA = fingerprint.Entity(jon)
		pair.FingerprintB = fingerprint.Entity(john)
		require.NoError(t, queue.Upsert(ctx, []*models.CandidatePair{&pair}))

		// The ingest pipeline rewrote a1 into a different person.
		jon.Name = "Greta Larsen"
		jon.Properties["name"] = "Greta Larsen"

		orch := newTestOrchestrator(t, store, queue, config.DefaultResolution())
		_, err := orch.ConfirmMerge(ctx, pair.ID, "reviewer@example.com")
		assert.ErrorIs(t, err, ErrStaleReview)
		assert.Empty(t, store.applied)
	})

	t.Run("resolves without merging when both sides already collapsed", func(t *testing.T) {
		store := newFakeStore(
			&models.Entity{ID: "c3", Name: "Jane Doe", Properties: map[string]any{"name": "Jane Doe"}},
		)
		store.mappings["a1"] = &models.EntityMapping{OriginalEntityID: "a1", CanonicalEntityID: "c3"}
		store.mappings["b2"] = &models.EntityMapping{OriginalEntityID: "b2", CanonicalEntityID: "c3"}
		queue := newFakeQueue()
		pairID := seedReviewPair(t, queue, "a1", "b2", 0.7)
		orch := newTestOrchestrator(t, store, queue, config.DefaultResolution())

		mapping, err := orch.ConfirmMerge(ctx, pairID, "reviewer@example.com")
		require.NoError(t, err)
		assert.Nil(t, mapping)
		assert.Empty(t, store.applied)

		queued, err := queue.Get(ctx, pairID)
		require.NoError(t, err)
		assert.Equal(t, models.DispositionMerged, queued.Disposition)
	})

	t.Run("refuses pairs not pending review", func(t *testing.T) {
		store := newFakeStore()
		queue := newFakeQueue()
		pair := models.NewCandidatePair("a1", "b2")
		pair.Disposition = models.DispositionRejected
		require.NoError(t, queue.Upsert(ctx, []*models.CandidatePair{&pair}))
		orch := newTestOrchestrator(t, store, queue, config.DefaultResolution())

		_, err := orch.ConfirmMerge(ctx, pair.ID, "reviewer@example.com")
		assert.ErrorIs(t, err, ErrNotReviewable)
	})

	t.Run("requires a configured queue", func(t *testing.T) {
		orch := newTestOrchestrator(t, newFakeStore(), nil, config.DefaultResolution())
		_, err := orch.ConfirmMerge(ctx, "whatever", "reviewer@example.com")
		assert.Error(t, err)
	})
}

func TestOrchestrator_RejectPair(t *testing.T) {
	ctx := context.Background()

	t.Run("records the rejection", func(t *testing.T) {
		queue := newFakeQueue()
		pairID := seedReviewPair(t, queue, "a1", "b2", 0.7)
		orch := newTestOrchestrator(t, newFakeStore(), queue, config.DefaultResolution())

		require.NoError(t, orch.RejectPair(ctx, pairID, "reviewer@example.com"))

		queued, err := queue.Get(ctx, pairID)
		require.NoError(t, err)
		assert.Equal(t, models.DispositionRejected, queued.Disposition)
	})

	t.Run("refuses pairs not pending review", func(t *testing.T) {
		queue := newFakeQueue()
		pair := models.NewCandidatePair("a1", "b2")
		pair.Disposition = models.DispositionMerged
		require.NoError(t, queue.Upsert(ctx, []*models.CandidatePair{&pair}))
		orch := newTestOrchestrator(t, newFakeStore(), queue, config.DefaultResolution())

		assert.ErrorIs(t, orch.RejectPair(ctx, pair.ID, "reviewer@example.com"), ErrNotReviewable)
	})
}

func TestOrchestrator_LookupCanonical(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the input when no mapping exists", func(t *testing.T) {
		orch := newTestOrchestrator(t, newFakeStore(), nil, config.DefaultResolution())

		id, found, err := orch.LookupCanonical(ctx, "a1")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, "a1", id)
	})

	t.Run("resolves a retired entity in one hop", func(t *testing.T) {
		store := newFakeStore(
			&models.Entity{ID: "c3", Name: "Jane Doe"},
		)
		store.mappings["a1"] = &models.EntityMapping{OriginalEntityID: "a1", CanonicalEntityID: "c3"}
		store.mappings["b2"] = &models.EntityMapping{OriginalEntityID: "b2", CanonicalEntityID: "c3"}
		orch := newTestOrchestrator(t, store, nil, config.DefaultResolution())

		id, found, err := orch.LookupCanonical(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "c3", id)

		id, found, err = orch.LookupCanonical(ctx, "b2")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "c3", id)
	})
}

func TestOrchestrator_GetStatistics(t *testing.T) {
	store := newFakeStore(
		&models.Entity{ID: "a1", Name: "Jane Doe"},
		&models.Entity{ID: "b2", Name: "John Smith"},
	)
	store.mappings["x9"] = &models.EntityMapping{OriginalEntityID: "x9", CanonicalEntityID: "a1"}
	orch := newTestOrchestrator(t, store, nil, config.DefaultResolution())

	stats, err := orch.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMappings)
	assert.Equal(t, 2, stats.TotalEntities)
}
