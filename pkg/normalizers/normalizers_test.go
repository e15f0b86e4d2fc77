package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase and trim", "  Robert Smith ", "robert smith"},
		{"collapse whitespace", "robert   smith", "robert smith"},
		{"punctuation stripped", "O'Brien, J.R.", "o brien j r"},
		{"hyphen splits", "Mary-Jane Watson", "mary jane watson"},
		{"generational suffix stripped", "Robert Smith Jr.", "robert smith"},
		{"professional suffix stripped", "Jane Doe PhD", "jane doe"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"email lowercased", " Bob@Example.COM ", "bob@example.com"},
		{"phone keeps digits only", "+1 (555) 123-4567", "15551234567"},
		{"short digit runs are not phones", "a1b2", "a1b2"},
		{"plain handle lowercased", "BobSmith", "bobsmith"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeContact(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551234567", NormalizePhone("(555) 123-4567"))
	assert.Equal(t, "", NormalizePhone("no digits"))
}
