package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"github.com/feedsift/feedsift/feed"
	"github.com/feedsift/feedsift/store"
)

// PageEvaluator runs JavaScript inside the observed page. *browser.Tab
// satisfies this interface.
type PageEvaluator interface {
	Eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error)
}

// unfollowJS issues the platform unfollow request from inside the page
// so it rides the session's cookies. The csrf token is read from the
// page's meta element; without it the request is never sent. The header
// set and body shape are what the platform's own client sends.
const unfollowJS = `async (authorID) => {
	const meta = document.querySelector('meta[name="csrf-token"]');
	if (!meta || !meta.content) {
		return { error: "no-csrf-token" };
	}
	const resp = await fetch('https://www.linkedin.com/in/' + authorID + '/unfollow', {
		method: 'POST',
		headers: {
			'Content-Type': 'application/json',
			'csrf-token': meta.content,
			'x-li-track': JSON.stringify({ clientVersion: '1.12.6741' }),
		},
		credentials: 'include',
		body: JSON.stringify({
			memberIdentity: authorID,
			unfollowMemberAction: { unfollowMember: true },
		}),
	});
	return { ok: resp.ok, status: resp.status };
}`

// UnfollowHandler executes unfollow requests inside the page session.
// One attempt per request; any failure is terminal and surfaced to the
// caller, never retried.
type UnfollowHandler struct {
	page   PageEvaluator
	stats  *store.Store // optional, counts successful unfollows
	logger *slog.Logger
}

// NewUnfollowHandler creates the handler. stats may be nil.
func NewUnfollowHandler(page PageEvaluator, stats *store.Store, logger *slog.Logger) *UnfollowHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnfollowHandler{page: page, stats: stats, logger: logger}
}

// Handle implements connectivity.Handler. The payload is a tagged
// ActionRequest; the reply is an ActionResult.
func (h *UnfollowHandler) Handle(ctx context.Context, payload []byte) ([]byte, error) {
	var req feed.ActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("action: parse unfollow request: %w", err)
	}
	if req.AuthorID == "" {
		return nil, fmt.Errorf("action: unfollow request missing authorId")
	}

	// The identifier lands in a URL path segment. Reject anything that
	// would escape it.
	id := req.AuthorID
	if strings.ContainsAny(id, "/?#") || url.PathEscape(id) != id {
		return nil, fmt.Errorf("action: refusing author id %q", id)
	}

	res, err := h.page.Eval(ctx, unfollowJS, id)
	if err != nil {
		return nil, fmt.Errorf("action: unfollow eval: %w", err)
	}

	out, _ := res.Value.Val().(map[string]interface{})
	if out == nil {
		return nil, fmt.Errorf("action: unexpected eval result %v", res.Value.Val())
	}
	if errVal, _ := out["error"].(string); errVal == "no-csrf-token" {
		return nil, ErrNoCSRFToken
	}
	status := 0
	if n, isNum := out["status"].(float64); isNum {
		status = int(n)
	}
	if ok, _ := out["ok"].(bool); !ok {
		return nil, &ErrUnfollowRejected{AuthorID: id, Status: status}
	}

	h.logger.InfoContext(ctx, "unfollowed author", "author_id", id, "status", status)

	if h.stats != nil {
		if _, err := h.stats.Increment(ctx, store.KeyUnfollowedAuthors, 1); err != nil {
			h.logger.WarnContext(ctx, "unfollow counter update failed", "error", err)
		}
	}

	return json.Marshal(feed.ActionResult{Success: true})
}
