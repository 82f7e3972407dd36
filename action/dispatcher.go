// Package action implements the privileged side of feedsift: resolving a
// flagged author to a platform identifier and executing the unfollow
// request inside the observed page's session. Everything here is
// single-shot. A failed unfollow is reported, never retried.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/feedsift/feedsift/feed"
)

// Caller dispatches a service call. Satisfied by *connectivity.Router
// and by *connectivity.Channel-backed adapters.
type Caller interface {
	Call(ctx context.Context, service string, payload []byte) ([]byte, error)
}

// Dispatcher turns a flagged author into an unfollow message. The
// profile pattern must contain exactly one capture group; the group's
// match is the author identifier sent to the privileged handler.
type Dispatcher struct {
	pattern *regexp.Regexp
	caller  Caller
	logger  *slog.Logger
}

// NewDispatcher compiles the profile pattern and wires the dispatcher to
// a caller. Pass an empty pattern to use the default.
func NewDispatcher(pattern string, caller Caller, logger *slog.Logger) (*Dispatcher, error) {
	if pattern == "" {
		pattern = `linkedin\.com/in/([^/]+)`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("action: compile profile pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("action: profile pattern needs exactly one capture group, has %d", re.NumSubexp())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{pattern: re, caller: caller, logger: logger}, nil
}

// ResolveProfileID extracts the author identifier from the author's
// profile link. A missing link or a non-matching link is terminal.
func (d *Dispatcher) ResolveProfileID(author feed.AuthorRef) (string, error) {
	if author.ProfileID != "" {
		return author.ProfileID, nil
	}
	if author.ProfileURL == "" {
		return "", ErrNoAuthorLink
	}
	m := d.pattern.FindStringSubmatch(author.ProfileURL)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%w: %s", ErrNoProfileID, author.ProfileURL)
	}
	return m[1], nil
}

// Dispatch resolves the author and sends exactly one unfollow message.
// When the author cannot be resolved, no message is sent at all.
func (d *Dispatcher) Dispatch(ctx context.Context, author feed.AuthorRef) error {
	id, err := d.ResolveProfileID(author)
	if err != nil {
		d.logger.WarnContext(ctx, "unfollow skipped, author unresolvable",
			"author", author.DisplayName, "error", err)
		return err
	}

	req := feed.ActionRequest{Action: "unfollow", AuthorID: id}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("action: marshal request: %w", err)
	}

	d.logger.InfoContext(ctx, "dispatching unfollow",
		"author", author.DisplayName, "author_id", id)

	resp, err := d.caller.Call(ctx, "unfollow", payload)
	if err != nil {
		return fmt.Errorf("action: unfollow call: %w", err)
	}
	if resp == nil {
		// Noop route: the action side is disabled.
		return nil
	}

	var result feed.ActionResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("action: parse result: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("action: unfollow %s failed: %s", id, result.Error)
	}
	return nil
}
