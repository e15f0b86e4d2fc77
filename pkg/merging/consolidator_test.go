package merging

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestConsolidator_Consolidate(t *testing.T) {
	consolidator := NewConsolidator(nil)

	t.Run("third party edges from both sides survive", func(t *testing.T) {
		canonical := &models.Entity{ID: "e1", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1", Outgoing: true},
		}}
		retired := &models.Entity{ID: "e2", Relationships: []models.Relationship{
			{Type: "WORKS_FOR", PartnerID: "org1", Outgoing: true},
		}}

		merged := consolidator.Consolidate(canonical, retired)

		assert.Len(t, merged, 2)
	})

	t.Run("duplicate edge keeps latest timestamp", func(t *testing.T) {
		older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		canonical := &models.Entity{ID: "e1", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1", Outgoing: true, Timestamp: timePtr(older)},
		}}
		retired := &models.Entity{ID: "e2", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1", Outgoing: true, Timestamp: timePtr(newer)},
		}}

		merged := consolidator.Consolidate(canonical, retired)

		assert.Len(t, merged, 1)
		assert.Equal(t, newer, *merged[0].Timestamp)
	})

	t.Run("duplicate edge without timestamps keeps canonical side", func(t *testing.T) {
		canonical := &models.Entity{ID: "e1", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1", Outgoing: true, Data: map[string]any{"side": "canonical"}},
		}}
		retired := &models.Entity{ID: "e2", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1", Outgoing: true, Data: map[string]any{"side": "retired"}},
		}}

		merged := consolidator.Consolidate(canonical, retired)

		assert.Len(t, merged, 1)
		assert.Equal(t, "canonical", merged[0].Data["side"])
	})

	t.Run("preserve_all keeps duplicate family edges", func(t *testing.T) {
		canonical := &models.Entity{ID: "e1", Relationships: []models.Relationship{
			{Type: "FAMILY_OF", PartnerID: "p1", Outgoing: true},
		}}
		retired := &models.Entity{ID: "e2", Relationships: []models.Relationship{
			{Type: "FAMILY_OF", PartnerID: "p1", Outgoing: true},
		}}

		merged := consolidator.Consolidate(canonical, retired)

		assert.Len(t, merged, 2)
	})

	t.Run("edge between the merging pair is dropped as self loop", func(t *testing.T) {
		canonical := &models.Entity{ID: "e1", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "e2", Outgoing: true},
		}}
		retired := &models.Entity{ID: "e2", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "e1", Outgoing: false},
		}}

		merged := consolidator.Consolidate(canonical, retired)

		assert.Empty(t, merged)
	})

	t.Run("unknown type defaults to dedupe_keep_latest", func(t *testing.T) {
		canonical := &models.Entity{ID: "e1", Relationships: []models.Relationship{
			{Type: "COLLABORATES_WITH", PartnerID: "p1", Outgoing: true},
		}}
		retired := &models.Entity{ID: "e2", Relationships: []models.Relationship{
			{Type: "COLLABORATES_WITH", PartnerID: "p1", Outgoing: true},
		}}

		merged := consolidator.Consolidate(canonical, retired)

		assert.Len(t, merged, 1)
	})

	t.Run("opposite directions are distinct edges", func(t *testing.T) {
		canonical := &models.Entity{ID: "e1", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1", Outgoing: true},
		}}
		retired := &models.Entity{ID: "e2", Relationships: []models.Relationship{
			{Type: "KNOWS", PartnerID: "p1", Outgoing: false},
		}}

		merged := consolidator.Consolidate(canonical, retired)

		assert.Len(t, merged, 2)
	})
}

func TestEngine_BuildPlan(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := NewEngine(logger, nil, nil)

	a := &models.Entity{ID: "e1", Name: "Robert Smith", Contact: strPtr("r.smith@x.com"), Properties: map[string]any{"name": "Robert Smith", "city": "Austin"}}
	b := &models.Entity{ID: "e2", Name: "Bob Smith", Properties: map[string]any{"name": "Bob Smith", "phone": "555-0100"}}

	pair := models.NewCandidatePair("e1", "e2")
	pair.Confidence = 0.95
	pair.MatchReasons = []string{"name_similarity_1.00", "email_exact_match"}

	plan := engine.BuildPlan(context.Background(), &pair, a, b, models.MappingSourceAutoMerge)

	assert.Equal(t, "e1", plan.CanonicalID)
	assert.Equal(t, "e2", plan.RetiredID)
	assert.Equal(t, "Robert Smith", plan.Properties["name"])
	assert.Equal(t, "555-0100", plan.Properties["phone"])
	assert.Equal(t, "e2", plan.Mapping.OriginalEntityID)
	assert.Equal(t, "e1", plan.Mapping.CanonicalEntityID)
	assert.Equal(t, 0.95, plan.Mapping.MergeConfidence)
	assert.Equal(t, models.MappingSourceAutoMerge, plan.Mapping.Source)
	assert.NotEmpty(t, plan.Mapping.MappingID)
	assert.False(t, plan.Mapping.MergeTimestamp.IsZero())
}
