package merging

import (
	"fmt"
	"time"

	"github.com/ronkoch2-code/avatar-builder/pkg/models"
)

// concatSeparator joins concatenated property values.
const concatSeparator = " | "

// PropertyMerger combines two entities' property sets under a per-key policy
// table.
type PropertyMerger struct {
	policies map[string]models.PropertyPolicy
}

// NewPropertyMerger creates a PropertyMerger. A nil policy table falls back
// to the defaults.
func NewPropertyMerger(policies map[string]models.PropertyPolicy) *PropertyMerger {
	if policies == nil {
		policies = models.DefaultPropertyPolicies()
	}
	return &PropertyMerger{policies: policies}
}

// Merge returns the property set the canonical entity should carry after
// absorbing the retired entity. Keys present on either side appear in the
// result; unknown keys use prefer_non_null.
func (m *PropertyMerger) Merge(canonical, retired *models.Entity) map[string]any {
	keys := make(map[string]struct{}, len(canonical.Properties)+len(retired.Properties))
	for k := range canonical.Properties {
		keys[k] = struct{}{}
	}
	for k := range retired.Properties {
		keys[k] = struct{}{}
	}

	merged := make(map[string]any, len(keys))
	for key := range keys {
		value := m.mergeKey(key, canonical.Properties[key], retired.Properties[key])
		if value != nil {
			merged[key] = value
		}
	}
	return merged
}

func (m *PropertyMerger) mergeKey(key string, canonicalVal, retiredVal any) any {
	policy, ok := m.policies[key]
	if !ok {
		policy = models.PropertyPolicyPreferNonNull
	}

	switch policy {
	case models.PropertyPolicyPreferLonger:
		return preferLonger(canonicalVal, retiredVal)
	case models.PropertyPolicyConcatenate:
		return concatenate(canonicalVal, retiredVal)
	case models.PropertyPolicyPreferEarlier:
		return preferByTime(canonicalVal, retiredVal, true)
	case models.PropertyPolicyPreferLater:
		return preferByTime(canonicalVal, retiredVal, false)
	default:
		return preferNonNull(canonicalVal, retiredVal)
	}
}

// preferNonNull keeps whichever side is non-null; canonical wins when both
// are.
func preferNonNull(canonicalVal, retiredVal any) any {
	if isNull(canonicalVal) {
		return retiredVal
	}
	return canonicalVal
}

// preferLonger keeps the value with the greater string length; canonical
// wins ties.
func preferLonger(canonicalVal, retiredVal any) any {
	if isNull(canonicalVal) {
		return retiredVal
	}
	if isNull(retiredVal) {
		return canonicalVal
	}
	if len(asString(retiredVal)) > len(asString(canonicalVal)) {
		return retiredVal
	}
	return canonicalVal
}

// concatenate joins both values with the separator; equal values collapse to
// one.
func concatenate(canonicalVal, retiredVal any) any {
	if isNull(canonicalVal) {
		return retiredVal
	}
	if isNull(retiredVal) {
		return canonicalVal
	}
	a := asString(canonicalVal)
	b := asString(retiredVal)
	if a == b {
		return canonicalVal
	}
	return a + concatSeparator + b
}

// preferByTime keeps the earlier or later of two timestamp values. Values
// that cannot be read as timestamps lose to ones that can; when neither
// parses, canonical wins.
func preferByTime(canonicalVal, retiredVal any, earlier bool) any {
	if isNull(canonicalVal) {
		return retiredVal
	}
	if isNull(retiredVal) {
		return canonicalVal
	}

	ca, okA := asTime(canonicalVal)
	cb, okB := asTime(retiredVal)
	if !okA && !okB {
		return canonicalVal
	}
	if !okA {
		return retiredVal
	}
	if !okB {
		return canonicalVal
	}

	if earlier {
		if cb.Before(ca) {
			return retiredVal
		}
		return canonicalVal
	}
	if cb.After(ca) {
		return retiredVal
	}
	return canonicalVal
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
