package scoring

import (
	"strings"

	"github.com/ronkoch2-code/avatar-builder/pkg/normalizers"
)

// phoneticFloor is the minimum similarity granted when every aligned name
// token shares a phonetic code with its counterpart.
const phoneticFloor = 0.85

// NameScorer scores full person names. It layers nickname expansion and
// phonetic equivalence on top of edit-distance similarity.
type NameScorer struct {
	scorer       *Scorer
	usePhonetic  bool
	useNicknames bool
}

// NewNameScorer creates a NameScorer with the given toggles.
func NewNameScorer(usePhonetic, useNicknames bool) *NameScorer {
	return &NameScorer{
		scorer:       NewScorer(),
		usePhonetic:  usePhonetic,
		useNicknames: useNicknames,
	}
}

// Similarity returns a [0,1] score for two display names. The raw score is
// edit-distance similarity on the normalized names; nickname expansion may
// only raise it, never lower it, and phonetic equivalence across all tokens
// lifts the score to a floor. Empty names score 0.0.
func (n *NameScorer) Similarity(a, b string) float64 {
	a = normalizers.NormalizeName(a)
	b = normalizers.NormalizeName(b)
	if a == "" || b == "" {
		return 0.0
	}

	score := n.scorer.Levenshtein(a, b)

	if n.useNicknames {
		expanded := n.scorer.Levenshtein(ExpandNicknames(a), ExpandNicknames(b))
		if expanded > score {
			score = expanded
		}
	}

	if n.usePhonetic && score < phoneticFloor && n.tokensPhoneticEqual(a, b) {
		score = phoneticFloor
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// tokensPhoneticEqual reports whether the two names have the same token count
// and every token pair shares a phonetic code, Soundex or Metaphone. Soundex
// keys on the first letter, so Metaphone catches spellings like dyer/tier
// that diverge only there.
func (n *NameScorer) tokensPhoneticEqual(a, b string) bool {
	aTokens := strings.Fields(a)
	bTokens := strings.Fields(b)
	if len(aTokens) != len(bTokens) {
		return false
	}
	for i := range aTokens {
		if n.scorer.Soundex(aTokens[i]) != n.scorer.Soundex(bTokens[i]) &&
			n.scorer.MetaphoneMatch(aTokens[i], bTokens[i]) != 1.0 {
			return false
		}
	}
	return true
}
