package classify

import (
	"reflect"
	"testing"
)

func noImageProbe(t *testing.T) func() bool {
	t.Helper()
	return func() bool {
		t.Fatal("image heuristic consulted before the keyword gate matched")
		return false
	}
}

func TestDecide_KeywordsAndImage(t *testing.T) {
	e := NewEngine()
	sig := Signals{ContentText: "I'm excited to announce my promotion!", AuthorName: "Ana Lima"}

	v := e.Decide(sig, func() bool { return true })
	if !v.Flagged {
		t.Fatal("expected flagged verdict")
	}
	wantKw := []string{"I'm excited to announce", "my promotion"}
	if !reflect.DeepEqual(v.MatchedKeywords, wantKw) {
		t.Errorf("MatchedKeywords: got %v, want %v", v.MatchedKeywords, wantKw)
	}
	wantTrail := []string{
		"Matched keywords: I'm excited to announce, my promotion",
		"Post contains author image",
	}
	if !reflect.DeepEqual(v.ReasonTrail, wantTrail) {
		t.Errorf("ReasonTrail: got %v, want %v", v.ReasonTrail, wantTrail)
	}
}

func TestDecide_KeywordsNoImage(t *testing.T) {
	e := NewEngine()
	sig := Signals{ContentText: "I'm excited to announce my promotion!", AuthorName: "Ana Lima"}

	v := e.Decide(sig, func() bool { return false })
	if v.Flagged {
		t.Fatal("keywords without image corroboration must not flag")
	}
	wantTrail := []string{
		"Matched keywords: I'm excited to announce, my promotion",
		"No author image found",
	}
	if !reflect.DeepEqual(v.ReasonTrail, wantTrail) {
		t.Errorf("ReasonTrail: got %v, want %v", v.ReasonTrail, wantTrail)
	}
}

func TestDecide_NoKeywords_ImageNeverProbed(t *testing.T) {
	e := NewEngine()
	sig := Signals{ContentText: "Happy to share our team's quarterly results.", AuthorName: "Ana Lima"}

	v := e.Decide(sig, noImageProbe(t))
	if v.Flagged {
		t.Fatal("keyword-free content must not flag")
	}
	wantTrail := []string{"No self-centered keywords found"}
	if !reflect.DeepEqual(v.ReasonTrail, wantTrail) {
		t.Errorf("ReasonTrail: got %v, want %v", v.ReasonTrail, wantTrail)
	}
	if v.MatchedKeywords != nil {
		t.Errorf("MatchedKeywords: got %v, want nil", v.MatchedKeywords)
	}
}

func TestDecide_OverridePrecedence(t *testing.T) {
	e := NewEngine()
	e.Override = "spamlord"

	// Keyword-free content and a fatal image probe: the override alone
	// must carry the verdict without consulting the later rules.
	sig := Signals{ContentText: "nothing interesting here", AuthorName: "The SpamLord Blog"}
	v := e.Decide(sig, noImageProbe(t))
	if !v.Flagged {
		t.Fatal("override token in author name must flag")
	}
	wantTrail := []string{`Author name contains "spamlord"`}
	if !reflect.DeepEqual(v.ReasonTrail, wantTrail) {
		t.Errorf("ReasonTrail: got %v, want %v", v.ReasonTrail, wantTrail)
	}
	if v.MatchedKeywords != nil {
		t.Errorf("MatchedKeywords: got %v, want nil", v.MatchedKeywords)
	}
}

func TestDecide_OverrideDisabledWhenEmpty(t *testing.T) {
	e := NewEngine()

	sig := Signals{ContentText: "nothing interesting here", AuthorName: "Anyone At All"}
	v := e.Decide(sig, noImageProbe(t))
	if v.Flagged {
		t.Fatal("empty override token must disable the rule")
	}
}

func TestDecide_OverrideIgnoresUnknownAuthor(t *testing.T) {
	e := NewEngine()
	e.Override = "spamlord"

	sig := Signals{ContentText: "plain content", AuthorName: ""}
	v := e.Decide(sig, noImageProbe(t))
	if v.Flagged {
		t.Fatal("missing author name must not trip the override")
	}
}

func TestDecide_Deterministic(t *testing.T) {
	e := NewEngine()
	sig := Signals{ContentText: "my journey so far, and what I learned", AuthorName: "Ana Lima"}

	first := e.Decide(sig, func() bool { return true })
	for i := 0; i < 5; i++ {
		again := e.Decide(sig, func() bool { return true })
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, first, again)
		}
	}
}

func TestClassify_EndToEnd(t *testing.T) {
	e := NewEngine()

	cases := []struct {
		name      string
		markup    string
		flagged   bool
		lastTrail string
	}{
		{
			name: "keywords_and_image",
			markup: `<div>
				<div class="update-components-actor__title"><span dir="ltr">Ana Lima</span></div>
				<div class="feed-shared-text">I'm excited to announce my promotion!</div>
				<img class="feed-shared-image-img" width="600" src="p.jpg">
			</div>`,
			flagged:   true,
			lastTrail: "Post contains author image",
		},
		{
			name: "keywords_only_avatar",
			markup: `<div>
				<div class="update-components-actor__title"><span dir="ltr">Ana Lima</span></div>
				<div class="feed-shared-text">I'm excited to announce my promotion!</div>
				<img class="presence-entity__image" width="48" src="a.jpg">
			</div>`,
			flagged:   false,
			lastTrail: "No author image found",
		},
		{
			name: "no_keywords",
			markup: `<div>
				<div class="update-components-actor__title"><span dir="ltr">Ana Lima</span></div>
				<div class="feed-shared-text">Happy to share our team's quarterly results.</div>
				<img class="feed-shared-image-img" width="600" src="p.jpg">
			</div>`,
			flagged:   false,
			lastTrail: "No self-centered keywords found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, sig, ok := e.Classify(parseFragment(t, tc.markup))
			if !ok {
				t.Fatal("expected classifiable item")
			}
			if v.Flagged != tc.flagged {
				t.Errorf("Flagged: got %v, want %v", v.Flagged, tc.flagged)
			}
			if len(v.ReasonTrail) == 0 || v.ReasonTrail[len(v.ReasonTrail)-1] != tc.lastTrail {
				t.Errorf("ReasonTrail: got %v, want last entry %q", v.ReasonTrail, tc.lastTrail)
			}
			if sig.AuthorName != "Ana Lima" {
				t.Errorf("AuthorName: got %q", sig.AuthorName)
			}
		})
	}
}

func TestClassify_UnextractableItem(t *testing.T) {
	e := NewEngine()
	if _, _, ok := e.Classify(parseFragment(t, `<div class="opaque">???</div>`)); ok {
		t.Fatal("item without content text must be skipped, not classified")
	}
}
