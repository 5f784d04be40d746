package classifier

import (
	"fmt"
	"strings"

	"github.com/Ranjiththeeti/harass/internal/models"
)

// DefaultKeywords are checked, in order, against every message the model did not flag
var DefaultKeywords = []string{
	"idiot",
	"stupid",
	"shut up",
	"loser",
	"annoying",
	"dumb",
	"hate you",
	"go away",
}

// keywordOverrideScore is the safety score given to keyword matches
const keywordOverrideScore = 0.3

// KeywordOverride force-flags messages containing a known harassment term
type KeywordOverride struct {
	keywords []string
}

// NewKeywordOverride builds an override from keywords; DefaultKeywords are
// used when none are given.
func NewKeywordOverride(keywords []string) *KeywordOverride {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			normalized = append(normalized, kw)
		}
	}

	return &KeywordOverride{keywords: normalized}
}

// Match returns the first keyword contained in text
func (k *KeywordOverride) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// Apply replaces an unflagged verdict when text contains a keyword. Flagged
// verdicts are returned untouched.
func (k *KeywordOverride) Apply(v models.Verdict, text string) (models.Verdict, bool) {
	if v.IsFlagged {
		return v, false
	}

	kw, ok := k.Match(text)
	if !ok {
		return v, false
	}

	t := models.Bullying
	reason := fmt.Sprintf("Contains harassment language: '%s'", kw)

	return models.Verdict{
		IsFlagged:      true,
		SafetyScore:    keywordOverrideScore,
		HarassmentType: &t,
		FlaggedReason:  &reason,
	}, true
}
