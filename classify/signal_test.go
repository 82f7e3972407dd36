package classify

import (
	"strings"
	"testing"
)

func TestNormalizeAuthorName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Ana Lima", "Ana Lima"},
		{"self_duplicated", "Ana LimaAna Lima", "Ana Lima"},
		{"duplicated_with_badge", "Ana LimaAna Lima • Premium", "Ana Lima"},
		{"premium_badge", "John Doe • Premium", "John Doe"},
		{"degree_badge", "John Doe • 3rd", "John Doe"},
		{"degree_badge_fr", "Jean Dupont • 1er", "Jean Dupont"},
		{"badge_cluster_with_trailer", "John Doe • Premium • 2nd degree connection", "John Doe"},
		{"odd_length_untouched", "Bob BobBob", "Bob BobBob"},
		{"whitespace", "  Ana Lima  ", "Ana Lima"},
		{"empty", "", ""},
		{"blank", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeAuthorName(tc.in); got != tc.want {
				t.Errorf("NormalizeAuthorName(%q): got %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtract_FullItem(t *testing.T) {
	doc := parseFragment(t, `
		<div class="feed-item">
			<div class="update-components-actor__title">
				<a href="https://www.linkedin.com/in/ana-lima/">
					<span dir="ltr">Ana Lima</span>
					<span class="visually-hidden">Ana Lima</span>
				</a>
			</div>
			<div class="feed-shared-text">I built a thing today</div>
		</div>`)

	sig, ok := NewExtractor().Extract(doc)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if got := strings.TrimSpace(sig.ContentText); got != "I built a thing today" {
		t.Errorf("ContentText: got %q", got)
	}
	if sig.AuthorName != "Ana Lima" {
		t.Errorf("AuthorName: got %q, want Ana Lima", sig.AuthorName)
	}
	if sig.AuthorHref != "https://www.linkedin.com/in/ana-lima/" {
		t.Errorf("AuthorHref: got %q", sig.AuthorHref)
	}
}

func TestExtract_NoContentSelector(t *testing.T) {
	doc := parseFragment(t, `<div class="feed-item"><div class="unrelated">text</div></div>`)

	if _, ok := NewExtractor().Extract(doc); ok {
		t.Fatal("expected ok=false when no content selector resolves")
	}
}

func TestExtract_ContentSelectorPriority(t *testing.T) {
	// Both a high- and a low-priority content selector resolve; the
	// chain must take the first, never merge.
	doc := parseFragment(t, `
		<div>
			<div class="feed-shared-update-v2__description-wrapper">primary</div>
			<div class="feed-shared-text">secondary</div>
		</div>`)

	sig, ok := NewExtractor().Extract(doc)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if got := strings.TrimSpace(sig.ContentText); got != "primary" {
		t.Errorf("ContentText: got %q, want the higher-priority block", got)
	}
}

func TestExtract_AuthorMetaLinkFallback(t *testing.T) {
	// No actor-chain selector resolves (not even the meta-link span
	// variant); the meta-link chain supplies the name from the block text.
	doc := parseFragment(t, `
		<div>
			<a class="update-components-actor__meta-link" href="/in/bob">Bob BarkerBob Barker</a>
			<div class="feed-shared-text">hello</div>
		</div>`)

	sig, ok := NewExtractor().Extract(doc)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if sig.AuthorName != "Bob Barker" {
		t.Errorf("AuthorName: got %q, want Bob Barker (deduplicated)", sig.AuthorName)
	}
	if sig.AuthorHref != "/in/bob" {
		t.Errorf("AuthorHref: got %q, want the meta-link href", sig.AuthorHref)
	}
}

func TestExtract_AuthorLinkPrefersTitleOverMetaLink(t *testing.T) {
	doc := parseFragment(t, `
		<div>
			<div class="update-components-actor__title"><a href="/in/title">T</a></div>
			<a class="update-components-actor__meta-link" href="/in/meta">M</a>
			<div class="feed-shared-text">hello</div>
		</div>`)

	sig, ok := NewExtractor().Extract(doc)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if sig.AuthorHref != "/in/title" {
		t.Errorf("AuthorHref: got %q, want the title-chain href", sig.AuthorHref)
	}
}

func TestExtract_AuthorInnerSpanPreferred(t *testing.T) {
	// Without an inner span[dir=ltr], the full block text (duplicated
	// accessible name) is taken and normalized.
	doc := parseFragment(t, `
		<div>
			<div class="update-components-actor__title">Ana LimaAna Lima • Premium</div>
			<div class="feed-shared-text">hello</div>
		</div>`)

	sig, ok := NewExtractor().Extract(doc)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if sig.AuthorName != "Ana Lima" {
		t.Errorf("AuthorName: got %q, want Ana Lima", sig.AuthorName)
	}
}

func TestExtract_MissingAuthorIsEmpty(t *testing.T) {
	doc := parseFragment(t, `<div><div class="feed-shared-text">orphan post</div></div>`)

	sig, ok := NewExtractor().Extract(doc)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if sig.AuthorName != "" {
		t.Errorf("AuthorName: got %q, want empty", sig.AuthorName)
	}
	if sig.AuthorHref != "" {
		t.Errorf("AuthorHref: got %q, want empty", sig.AuthorHref)
	}
}
