// Package classify implements the per-item classification pipeline:
// signal extraction from an item's markup, keyword matching, the image
// presence heuristic, and the ordered decision engine that combines them.
//
// The host markup is unversioned and variant, so every lookup in this
// package uses the same fallback policy: selector candidates are tried in
// fixed priority order, the first success wins, and exhaustion falls back
// to a broader default (or to "not found"). Candidates are never merged.
package classify

import (
	"strings"

	"golang.org/x/net/html"
)

// ResolveFirst walks the candidate selectors in priority order and returns
// the first matching element under root, or nil when no candidate matches.
func ResolveFirst(candidates []string, root *html.Node) *html.Node {
	for _, sel := range candidates {
		if n := querySelector(root, sel); n != nil {
			return n
		}
	}
	return nil
}

// ResolveAllFirst returns all elements matched by the first candidate that
// yields any match at all. Candidates after the first success are never
// consulted — a deliberate precedence, not an oversight.
func ResolveAllFirst(candidates []string, root *html.Node) []*html.Node {
	for _, sel := range candidates {
		if matches := QuerySelectorAll(root, sel); len(matches) > 0 {
			return matches
		}
	}
	return nil
}

// MatchesAny reports whether the element itself matches one of the
// candidate selectors (no descendant search).
func MatchesAny(n *html.Node, candidates []string) bool {
	for _, sel := range candidates {
		if matchesSelector(n, parseSimpleSelector(lastPart(sel))) {
			return true
		}
	}
	return false
}

// QuerySelectorAll returns all nodes under root matching a simple CSS
// selector. Supported subset: tag, .class, #id, tag.class, tag[attr],
// tag[attr=val], and space-separated descendant combinators.
func QuerySelectorAll(root *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(root, parts[0])
	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchSimple(parent, parts[i])...)
		}
		matches = next
	}
	return matches
}

// querySelector returns the first node matching the selector, or nil.
func querySelector(root *html.Node, selector string) *html.Node {
	if all := QuerySelectorAll(root, selector); len(all) > 0 {
		return all[0]
	}
	return nil
}

// matchSimple finds all descendants of root matching a single selector part.
// The root itself is not a candidate, mirroring querySelectorAll semantics.
func matchSimple(root *html.Node, sel string) []*html.Node {
	m := parseSimpleSelector(sel)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n != root && matchesSelector(n, m) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

// matchesSelector checks if a node matches a parsed simple selector.
func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}

	if s.tag != "" && n.Data != s.tag {
		return false
	}

	if s.id != "" && Attr(n, "id") != s.id {
		return false
	}

	if s.class != "" {
		found := false
		for _, c := range strings.Fields(Attr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.attrKey != "" {
		if s.attrVal != "" {
			if Attr(n, s.attrKey) != s.attrVal {
				return false
			}
		} else if !hasAttr(n, s.attrKey) {
			return false
		}
	}

	return true
}

// lastPart returns the final simple-selector segment of a descendant chain,
// which is what the element itself must match for a direct-match check.
func lastPart(sel string) string {
	parts := strings.Fields(sel)
	if len(parts) == 0 {
		return sel
	}
	return parts[len(parts)-1]
}

// Attr returns the value of an attribute on a node, or "".
func Attr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// Text collects the concatenated text content of a node subtree, the
// equivalent of DOM textContent.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
