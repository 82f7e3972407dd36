package classify

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Signals are the derived, typed values extracted from one item's markup.
// The image-presence signal is not part of this struct: the decision
// engine probes it lazily, only when the keyword gate has matched.
type Signals struct {
	ContentText string
	AuthorName  string
	AuthorHref  string // href of the author link, "" when unresolvable
}

// Default selector chains for the observed feed markup. Each chain is
// ordered by priority; the variants cover markup generations the host has
// shipped at different times.
var (
	DefaultContentSelectors = []string{
		".feed-shared-update-v2__description-wrapper",
		".feed-shared-text",
		".update-components-text",
		"span[dir=ltr]",
		"div[data-test-id=main-feed-activity-card__commentary]",
	}

	DefaultActorSelectors = []string{
		".update-components-actor__title",
		".feed-shared-actor__title",
		".update-components-actor__name",
		"a[data-test-id=actor-name]",
		".feed-shared-actor__name",
		"span[dir=auto]",
		"a.update-components-actor__meta-link span[dir=ltr]",
	}

	DefaultMetaLinkSelectors = []string{
		"a.update-components-actor__meta-link",
	}

	DefaultAuthorLinkSelectors = []string{
		".update-components-actor__title a",
		".feed-shared-actor__title a",
		"a[data-test-id=actor-name]",
		"a.update-components-actor__meta-link",
	}
)

// Extractor resolves an item's content-text, author-identity, and
// image-presence signals, tolerating markup variance through ordered
// selector-fallback chains.
type Extractor struct {
	ContentSelectors    []string
	ActorSelectors      []string
	MetaLinkSelectors   []string
	AuthorLinkSelectors []string
}

// NewExtractor creates an Extractor with the default selector chains.
func NewExtractor() *Extractor {
	return &Extractor{
		ContentSelectors:    DefaultContentSelectors,
		ActorSelectors:      DefaultActorSelectors,
		MetaLinkSelectors:   DefaultMetaLinkSelectors,
		AuthorLinkSelectors: DefaultAuthorLinkSelectors,
	}
}

// Extract derives the signals for one item element. It never fails:
// ok=false means no content-text selector resolved, and the item must be
// skipped entirely — not flagged, not counted.
func (e *Extractor) Extract(item *html.Node) (Signals, bool) {
	content := ResolveFirst(e.ContentSelectors, item)
	if content == nil {
		return Signals{}, false
	}

	sig := Signals{
		ContentText: Text(content),
		AuthorName:  e.extractAuthor(item),
	}

	if link := ResolveFirst(e.AuthorLinkSelectors, item); link != nil {
		sig.AuthorHref = Attr(link, "href")
	}

	return sig, true
}

// extractAuthor resolves the author name: first-match among the actor
// chain, preferring an inner span[dir=ltr] when present; falling back to
// the meta-link chain with the same inner-span preference.
func (e *Extractor) extractAuthor(item *html.Node) string {
	var name string
	if actor := ResolveFirst(e.ActorSelectors, item); actor != nil {
		name = innerSpanText(actor)
	} else if meta := ResolveFirst(e.MetaLinkSelectors, item); meta != nil {
		name = innerSpanText(meta)
	}
	return NormalizeAuthorName(name)
}

// innerSpanText returns the text of a span[dir=ltr] child when one exists
// (the host renders the clean name there), otherwise the block's full text.
func innerSpanText(block *html.Node) string {
	if span := querySelector(block, "span[dir=ltr]"); span != nil {
		return strings.TrimSpace(Text(span))
	}
	return strings.TrimSpace(Text(block))
}

// badgeCluster matches a trailing run of bullet-separated platform badges
// (Premium, ordinal connection-degree markers) after the author name.
// Everything from the first cluster to end of string is stripped.
var badgeCluster = regexp.MustCompile(`(?i)(?:\s+•\s+(?:Premium|\d+(?:er|nd|rd|th)|1er))+.*$`)

// NormalizeAuthorName cleans a raw author name: strips the trailing badge
// cluster, then collapses exact self-duplication ("Ana LimaAna Lima" →
// "Ana Lima", an artifact of the host rendering the name twice in nested
// spans). The badge must go first: "Ana LimaAna Lima • Premium" is not an
// even-split duplicate until the badge is gone.
func NormalizeAuthorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.TrimSpace(badgeCluster.ReplaceAllString(name, ""))

	if half := len(name) / 2; len(name)%2 == 0 && half > 0 && name[:half] == name[half:] {
		name = name[:half]
	}

	return strings.TrimSpace(name)
}
