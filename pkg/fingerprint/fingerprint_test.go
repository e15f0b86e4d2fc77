package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

func TestEntity(t *testing.T) {
	base := func() *models.Entity {
		email := "jane@example.com"
		return &models.Entity{
			ID:      "a1",
			Name:    "Jane Doe",
			Contact: &email,
			Properties: map[string]any{
				"name":  "Jane Doe",
				"email": "jane@example.com",
			},
			Relationships: []models.Relationship{
				{Type: "KNOWS", PartnerID: "b2", Outgoing: true},
				{Type: "WORKS_FOR", PartnerID: "acme", Outgoing: true},
			},
		}
	}

	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, Entity(base()), Entity(base()))
	})

	t.Run("relationship order does not matter", func(t *testing.T) {
		reordered := base()
		reordered.Relationships[0], reordered.Relationships[1] = reordered.Relationships[1], reordered.Relationships[0]
		assert.Equal(t, Entity(base()), Entity(reordered))
	})

	t.Run("property change changes the digest", func(t *testing.T) {
		changed := base()
		changed.Properties["bio"] = "engineer"
		assert.NotEqual(t, Entity(base()), Entity(changed))
	})

	t.Run("new edge changes the digest", func(t *testing.T) {
		changed := base()
		changed.Relationships = append(changed.Relationships, models.Relationship{Type: "KNOWS", PartnerID: "c3", Outgoing: true})
		assert.NotEqual(t, Entity(base()), Entity(changed))
	})

	t.Run("nil entity digests empty", func(t *testing.T) {
		assert.Empty(t, Entity(nil))
	})
}

func TestGenerate(t *testing.T) {
	t.Run("key order does not matter", func(t *testing.T) {
		a := Generate(map[string]any{"x": 1, "y": "two"})
		b := Generate(map[string]any{"y": "two", "x": 1})
		assert.Equal(t, a, b)
	})

	t.Run("nested values are canonicalized", func(t *testing.T) {
		a := Generate(map[string]any{"outer": map[string]any{"a": 1, "b": 2}})
		b := Generate(map[string]any{"outer": map[string]any{"b": 2, "a": 1}})
		assert.Equal(t, a, b)
	})
}
