// Package fingerprint produces deterministic digests of entity state so that
// stale review decisions can be detected before they are applied.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

// Entity digests the resolution-relevant state of an entity: its name,
// contact, properties and relationship set. Two snapshots compare equal iff
// nothing that affects scoring or merging changed between them.
func Entity(e *models.Entity) string {
	if e == nil {
		return ""
	}

	edges := make([]any, 0, len(e.Relationships))
	for i := range e.Relationships {
		edges = append(edges, e.Relationships[i].EdgeKey())
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].(string) < edges[j].(string) })

	return Generate(map[string]any{
		"name":          e.Name,
		"contact":       e.ContactValue(),
		"properties":    e.Properties,
		"relationships": edges,
	})
}

// Generate returns the SHA256 hex digest of the canonicalized map.
func Generate(data map[string]any) string {
	hash := sha256.Sum256([]byte(canonicalize(data)))
	return hex.EncodeToString(hash[:])
}

// canonicalize builds a deterministic string representation by sorting map
// keys and recursing into nested structures.
func canonicalize(data any) string {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		result := "{"
		for i, k := range keys {
			if i > 0 {
				result += ","
			}
			keyJSON, _ := json.Marshal(k)
			result += string(keyJSON) + ":" + canonicalize(v[k])
		}
		return result + "}"
	case []any:
		result := "["
		for i, elem := range v {
			if i > 0 {
				result += ","
			}
			result += canonicalize(elem)
		}
		return result + "]"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
