package models

// PropertyPolicy defines how a property key is combined when two entities merge.
type PropertyPolicy string

const (
	// PropertyPolicyPreferLonger keeps the value with the greater string length.
	PropertyPolicyPreferLonger PropertyPolicy = "prefer_longer"
	// PropertyPolicyPreferNonNull keeps whichever side is non-null; canonical wins ties.
	PropertyPolicyPreferNonNull PropertyPolicy = "prefer_non_null"
	// PropertyPolicyConcatenate joins both values with a separator, deduplicating equals.
	PropertyPolicyConcatenate PropertyPolicy = "concatenate"
	// PropertyPolicyPreferEarlier keeps the earlier timestamp value.
	PropertyPolicyPreferEarlier PropertyPolicy = "prefer_earlier"
	// PropertyPolicyPreferLater keeps the later timestamp value.
	PropertyPolicyPreferLater PropertyPolicy = "prefer_later"
)

// DefaultPropertyPolicies mirrors the merge rules the graph builder has always
// applied to person records. Unknown keys fall back to prefer_non_null.
func DefaultPropertyPolicies() map[string]PropertyPolicy {
	return map[string]PropertyPolicy{
		"name":         PropertyPolicyPreferLonger,
		"email":        PropertyPolicyPreferNonNull,
		"phone":        PropertyPolicyPreferNonNull,
		"address":      PropertyPolicyPreferNonNull,
		"bio":          PropertyPolicyConcatenate,
		"created_date": PropertyPolicyPreferEarlier,
		"last_updated": PropertyPolicyPreferLater,
	}
}

// RelationshipPolicy defines how edges of a type are consolidated during merge.
type RelationshipPolicy string

const (
	// RelationshipPolicyDedupeKeepLatest unions both sides' edges and keeps the
	// most recent edge per partner.
	RelationshipPolicyDedupeKeepLatest RelationshipPolicy = "dedupe_keep_latest"
	// RelationshipPolicyPreserveAll unions without deduplication; distinct
	// historical edges carry independent meaning.
	RelationshipPolicyPreserveAll RelationshipPolicy = "preserve_all"
)

// DefaultRelationshipPolicies returns the per-type consolidation defaults.
func DefaultRelationshipPolicies() map[string]RelationshipPolicy {
	return map[string]RelationshipPolicy{
		"WORKS_FOR": RelationshipPolicyDedupeKeepLatest,
		"KNOWS":     RelationshipPolicyDedupeKeepLatest,
		"FRIEND_OF": RelationshipPolicyDedupeKeepLatest,
		"FAMILY_OF": RelationshipPolicyPreserveAll,
		"MENTOR_OF": RelationshipPolicyPreserveAll,
	}
}
