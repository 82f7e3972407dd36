package sink

import (
	"context"

	"github.com/feedsift/feedsift/feed"
)

// ReportFunc is called for each report (in-process, zero serialisation).
type ReportFunc func(ctx context.Context, report feed.Report) error

// Callback delivers reports via Go function calls, for consumers living
// in the same binary (the control surface's console, custom pipelines).
type Callback struct {
	onReport ReportFunc
}

// NewCallback creates a Callback sink. The handler may be nil.
func NewCallback(onReport ReportFunc) *Callback {
	return &Callback{onReport: onReport}
}

func (c *Callback) Send(ctx context.Context, report feed.Report) error {
	if c.onReport != nil {
		return c.onReport(ctx, report)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
