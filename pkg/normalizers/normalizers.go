// Package normalizers provides field normalization for contact identifiers
// and names so that equivalent values compare equal across sources.
package normalizers

import (
	"strings"
	"unicode"
)

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone removes all non-digit characters from a phone number
func NormalizePhone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeContact normalizes a contact identifier. Values containing an @
// are treated as email addresses; values that are mostly digits are treated
// as phone numbers; anything else is lowercased and trimmed.
func NormalizeContact(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "@") {
		return NormalizeEmail(trimmed)
	}
	if digits := NormalizePhone(trimmed); len(digits) >= 7 && len(digits) >= len(trimmed)/2 {
		return digits
	}
	return strings.ToLower(trimmed)
}

// NormalizeName normalizes a person's name for matching: lowercase, common
// generational and professional suffixes stripped, punctuation removed and
// whitespace collapsed.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	suffixes := []string{" jr.", " jr", " sr.", " sr", " iii", " ii", " iv", " phd", " md", " dds"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			s = s[:len(s)-len(suffix)]
		}
	}

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '\'' || r == '.':
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}
