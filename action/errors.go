package action

import (
	"errors"
	"fmt"
)

// ErrNoAuthorLink means the classified item carried no profile link at
// all. Terminal: no action message is sent.
var ErrNoAuthorLink = errors.New("action: author has no profile link")

// ErrNoProfileID means a profile link existed but the configured pattern
// could not extract an identifier from it. Terminal: no action message
// is sent.
var ErrNoProfileID = errors.New("action: profile link did not yield an identifier")

// ErrNoCSRFToken means the page carried no csrf-token meta element, so
// the platform request cannot be authenticated. Terminal: no request is
// issued and nothing is retried.
var ErrNoCSRFToken = errors.New("action: csrf token not present on page")

// ErrUnfollowRejected means the platform responded with a non-2xx
// status. The request is never retried.
type ErrUnfollowRejected struct {
	AuthorID string
	Status   int
}

func (e *ErrUnfollowRejected) Error() string {
	return fmt.Sprintf("action: unfollow %s rejected with status %d", e.AuthorID, e.Status)
}
