// Package sink defines output backends for classified feed reports.
package sink

import (
	"context"

	"github.com/feedsift/feedsift/feed"
)

// Sink is the output interface. Implementations deliver reports to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, report feed.Report) error
	Close() error
}
