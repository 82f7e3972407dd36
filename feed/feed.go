// Package feed defines the structured types flowing through feedsift.
// These are the public API contract: any consumer (sinks, the control
// surface, custom pipelines) imports this package to receive and process
// classified feed items.
package feed

// Item is one rendered feed entry as shipped from the observed page.
// The HTML is the raw outer markup of the entry element; all derived
// signals (content text, author, images) are extracted from it later.
type Item struct {
	ID        string `json:"id"`       // UUIDv7, assigned on arrival
	PageURL   string `json:"page_url"`
	Seq       uint64 `json:"seq"`      // monotonically increasing per page
	HTML      string `json:"html"`     // serialised entry element
	Timestamp int64  `json:"timestamp"` // epoch milliseconds at arrival
}

// Verdict is the classifier's decision for one item. Produced once,
// immutable afterward. The reason trail is the primary operator-visible
// artifact for auditing false positives, not just the boolean.
type Verdict struct {
	Flagged         bool     `json:"flagged"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	ReasonTrail     []string `json:"reason_trail"`
}

// AuthorRef identifies the author of an item. ProfileID may be empty when
// no resolvable profile link exists, in which case no unfollow is possible.
type AuthorRef struct {
	DisplayName string `json:"display_name"`
	ProfileID   string `json:"profile_id,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
}

// Report is the atomic unit emitted to sinks: one classified item with its
// verdict, author reference, and audit-trail content rendering.
type Report struct {
	ID              string    `json:"id"`
	PageURL         string    `json:"page_url"`
	Seq             uint64    `json:"seq"`
	ItemKey         string    `json:"item_key"` // stable content+author hash
	Author          AuthorRef `json:"author"`
	ContentPreview  string    `json:"content_preview"`
	ContentMarkdown string    `json:"content_markdown,omitempty"`

	// ContentHighlighted is a sanitised HTML rendering of the item with
	// matched keywords wrapped in highlight spans. Only set on flagged
	// items.
	ContentHighlighted string `json:"content_highlighted,omitempty"`
	Verdict         Verdict   `json:"verdict"`
	Timestamp       int64     `json:"timestamp"`
}

// ActionRequest is the message sent from the observer side to the
// privileged handler to unfollow an author.
type ActionRequest struct {
	Action   string `json:"action"`
	AuthorID string `json:"authorId"`
}

// ActionResult is the privileged handler's reply.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
