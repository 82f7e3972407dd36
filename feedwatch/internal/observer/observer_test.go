package observer

import (
	"testing"
	"time"

	"github.com/feedsift/feedsift/feed"
	"github.com/feedsift/feedsift/feedwatch/internal/browser"
)

func TestStop_FlushesBufferedThroughLoop(t *testing.T) {
	var batches [][]feed.Item
	o := New(Config{
		Tab:            &browser.Tab{PageURL: "https://example.com/feed"},
		DebounceWindow: time.Hour,
		DebounceMax:    100,
		OnBatch: func(items []feed.Item) {
			batches = append(batches, items)
		},
	})

	o.loopDone = make(chan struct{})
	go o.loop()

	o.rawCh <- "<div>one</div>"
	o.rawCh <- "<div>two</div>"

	// Stop waits for the loop to drain and flush before returning, so
	// batches is safe to read here without further synchronization.
	o.Stop()

	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1 final flush", len(batches))
	}
	if len(batches[0]) != 2 {
		t.Fatalf("got %d items in final batch, want 2", len(batches[0]))
	}
}

func TestStop_WithoutStartReturns(t *testing.T) {
	o := New(Config{Tab: &browser.Tab{}})

	done := make(chan struct{})
	go func() {
		o.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked with no running loop")
	}
}
