package classify

import (
	"fmt"
	"strings"

	"github.com/feedsift/feedsift/feed"
	"golang.org/x/net/html"
)

// Engine combines the extracted signals into a single verdict using
// strictly ordered, short-circuiting rules:
//
//  1. Identity override: author name contains the override token → flagged.
//  2. Keyword gate: no keyword match → not flagged.
//  3. Image corroboration: keywords matched → flagged iff a non-avatar
//     image is present.
//
// Rule 3 is never evaluated unless rule 2 matched, and rule 1 alone is
// sufficient regardless of the others. The full reason trail is retained
// on the verdict: it is the evidence operators audit, not a log side
// effect.
type Engine struct {
	Extractor *Extractor
	Keywords  *KeywordRule
	Images    *ImageHeuristic

	// Override is an author-name denylist token checked case-insensitively.
	// Empty disables the rule.
	Override string
}

// NewEngine creates an Engine with default extractor, keyword rule, and
// image heuristic. The override rule starts disabled.
func NewEngine() *Engine {
	return &Engine{
		Extractor: NewExtractor(),
		Keywords:  NewKeywordRule(),
		Images:    NewImageHeuristic(),
	}
}

// Classify extracts signals from the item element and produces a verdict.
// ok=false means the item had no resolvable content text and must be
// skipped entirely — not flagged, not counted.
func (e *Engine) Classify(item *html.Node) (feed.Verdict, Signals, bool) {
	sig, ok := e.Extractor.Extract(item)
	if !ok {
		return feed.Verdict{}, Signals{}, false
	}
	hasImage := func() bool { return e.Images.HasContentImage(item) }
	return e.Decide(sig, hasImage), sig, true
}

// Decide runs the rule chain over already-extracted signals. The image
// probe is a function so it is only evaluated when rule 3 is reached.
// Deterministic: the same signals and image outcome always yield the same
// verdict and the same ordered reason trail.
func (e *Engine) Decide(sig Signals, hasImage func() bool) feed.Verdict {
	var v feed.Verdict

	if e.Override != "" && sig.AuthorName != "" &&
		strings.Contains(strings.ToLower(sig.AuthorName), strings.ToLower(e.Override)) {
		v.Flagged = true
		v.ReasonTrail = append(v.ReasonTrail,
			fmt.Sprintf("Author name contains %q", e.Override))
		return v
	}

	hit, matched := e.Keywords.Matches(sig.ContentText)
	if !hit {
		v.ReasonTrail = append(v.ReasonTrail, "No self-centered keywords found")
		return v
	}

	v.MatchedKeywords = matched
	v.ReasonTrail = append(v.ReasonTrail,
		"Matched keywords: "+strings.Join(matched, ", "))

	if hasImage() {
		v.Flagged = true
		v.ReasonTrail = append(v.ReasonTrail, "Post contains author image")
	} else {
		v.ReasonTrail = append(v.ReasonTrail, "No author image found")
	}
	return v
}
