package classify

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// highlightClass is the CSS class wrapped around matched keywords when a
// flagged item's content is re-rendered for the operator console.
const highlightClass = "feedsift-keyword-highlight"

var (
	sanitizerOnce sync.Once
	sanitizer     *bluemonday.Policy
)

// contentSanitizer allows the basic formatting the feed uses in post
// bodies plus our highlight spans, and strips everything else before the
// fragment is re-rendered.
func contentSanitizer() *bluemonday.Policy {
	sanitizerOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)).OnElements("span")
		sanitizer = p
	})
	return sanitizer
}

// HighlightKeywords wraps word-boundary occurrences of the given keywords
// in highlight spans, after sanitising the fragment. This is a stricter,
// independent re-check of the containment match: a keyword counted by
// Matches may not be highlighted here when it only occurs mid-word.
func HighlightKeywords(fragment string, keywords []string) (string, int) {
	out := contentSanitizer().Sanitize(fragment)

	total := 0
	for _, kw := range keywords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			continue
		}
		out = re.ReplaceAllStringFunc(out, func(m string) string {
			total++
			return fmt.Sprintf(`<span class=%q>%s</span>`, highlightClass, m)
		})
	}
	return out, total
}

// StripTags reduces a sanitised fragment to plain text, used for content
// previews in reports.
func StripTags(fragment string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(fragment))
}
