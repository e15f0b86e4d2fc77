package merging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

func TestPropertyMerger_Merge(t *testing.T) {
	merger := NewPropertyMerger(nil)

	entity := func(id string, props map[string]any) *models.Entity {
		return &models.Entity{ID: id, Properties: props}
	}

	t.Run("prefer_longer keeps longer name", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"name": "Bob Smith"})
		retired := entity("e2", map[string]any{"name": "Robert Smith"})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "Robert Smith", merged["name"])
	})

	t.Run("prefer_longer tie keeps canonical", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"name": "Bob Smith"})
		retired := entity("e2", map[string]any{"name": "Rob Smyth"})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "Bob Smith", merged["name"])
	})

	t.Run("prefer_non_null fills missing email", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"email": nil})
		retired := entity("e2", map[string]any{"email": "bob@x.com"})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "bob@x.com", merged["email"])
	})

	t.Run("prefer_non_null keeps canonical when both set", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"email": "canon@x.com"})
		retired := entity("e2", map[string]any{"email": "dup@x.com"})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "canon@x.com", merged["email"])
	})

	t.Run("prefer_non_null is commutative when one side is null", func(t *testing.T) {
		withVal := entity("e1", map[string]any{"phone": "555-0100"})
		withNil := entity("e2", map[string]any{"phone": nil})

		assert.Equal(t, "555-0100", merger.Merge(withVal, withNil)["phone"])
		assert.Equal(t, "555-0100", merger.Merge(withNil, withVal)["phone"])
	})

	t.Run("concatenate joins distinct bios", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"bio": "Engineer."})
		retired := entity("e2", map[string]any{"bio": "Climber."})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "Engineer. | Climber.", merged["bio"])
	})

	t.Run("concatenate collapses equal values", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"bio": "Engineer."})
		retired := entity("e2", map[string]any{"bio": "Engineer."})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "Engineer.", merged["bio"])
	})

	t.Run("prefer_earlier keeps older created_date", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"created_date": "2024-05-01"})
		retired := entity("e2", map[string]any{"created_date": "2023-01-15"})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "2023-01-15", merged["created_date"])
	})

	t.Run("prefer_later keeps newer last_updated", func(t *testing.T) {
		earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		later := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		canonical := entity("e1", map[string]any{"last_updated": earlier})
		retired := entity("e2", map[string]any{"last_updated": later})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, later, merged["last_updated"])
	})

	t.Run("unknown keys default to prefer_non_null", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"nickname": ""})
		retired := entity("e2", map[string]any{"nickname": "Bobby"})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "Bobby", merged["nickname"])
	})

	t.Run("union of keys from both sides", func(t *testing.T) {
		canonical := entity("e1", map[string]any{"city": "Austin"})
		retired := entity("e2", map[string]any{"phone": "555-0100"})

		merged := merger.Merge(canonical, retired)

		assert.Equal(t, "Austin", merged["city"])
		assert.Equal(t, "555-0100", merged["phone"])
	})
}
