package classify

import "strings"

// DefaultKeywords is the fixed, ordered list of first-person
// achievement/career phrases the keyword rule matches against.
var DefaultKeywords = []string{
	"I achieved", "my success", "I'm excited to announce", "I'm proud",
	"thrilled to share", "I've been", "my journey", "my experience",
	"I learned", "my accomplishment", "I created", "I built", "my promotion",
	"I was featured", "I was recognized", "my book", "my podcast",
	"personal brand", "personal growth", "I started", "my startup",
}

// KeywordRule is a pure predicate over an item's content text.
type KeywordRule struct {
	Keywords []string
}

// NewKeywordRule creates a KeywordRule with the default keyword list.
func NewKeywordRule() *KeywordRule {
	return &KeywordRule{Keywords: DefaultKeywords}
}

// Matches checks the content against every keyword independently and
// returns the matched terms in keyword-list order. Matching is
// case-insensitive substring containment: no stemming, no word-boundary
// requirement (the highlighting step applies a stricter boundary re-check
// and may therefore highlight fewer instances than counted here).
// Empty or whitespace-only content never matches.
func (r *KeywordRule) Matches(content string) (bool, []string) {
	if strings.TrimSpace(content) == "" {
		return false, nil
	}

	normalized := strings.ToLower(content)

	var matched []string
	for _, kw := range r.Keywords {
		if strings.Contains(normalized, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return len(matched) > 0, matched
}
