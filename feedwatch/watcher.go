// Package feedwatch orchestrates the observation pipeline: a managed
// Chrome tab on the feed page, a mutation observer shipping rendered
// items into Go, the classifier, dedupe, counters, sinks, and the
// auto-unfollow dispatch for flagged authors.
package feedwatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-rod/rod"
	"golang.org/x/net/html"

	"github.com/feedsift/feedsift/action"
	"github.com/feedsift/feedsift/classify"
	"github.com/feedsift/feedsift/feed"
	"github.com/feedsift/feedsift/feedwatch/internal/browser"
	"github.com/feedsift/feedsift/feedwatch/internal/config"
	"github.com/feedsift/feedsift/feedwatch/internal/observer"
	"github.com/feedsift/feedsift/feedwatch/internal/sink"
	"github.com/feedsift/feedsift/store"
)

const previewLength = 200

// Options wires a Watcher to its collaborators. Stats and Sinks are
// required; Dispatcher may be nil when auto-unfollow is never used.
type Options struct {
	Config     *config.Config
	Stats      *store.Store
	Dispatcher *action.Dispatcher
	Sinks      sink.Sink
	Logger     *slog.Logger
}

// Watcher runs the end-to-end pipeline for one feed page.
type Watcher struct {
	cfg        *config.Config
	engine     *classify.Engine
	stats      *store.Store
	dispatcher *action.Dispatcher
	sinks      sink.Sink
	logger     *slog.Logger

	manager   *browser.Manager
	processed *observer.ProcessedSet

	mu  sync.Mutex // guards tab and obs across browser recycles
	tab *browser.Tab
	obs *observer.Observer

	ctx context.Context
}

// NewWatcher builds a Watcher from options. The classifier is configured
// from the config's override token.
func NewWatcher(opts Options) (*Watcher, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("feedwatch: config is required")
	}
	if opts.Stats == nil {
		return nil, fmt.Errorf("feedwatch: stats store is required")
	}
	if opts.Sinks == nil {
		return nil, fmt.Errorf("feedwatch: at least one sink is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	engine := classify.NewEngine()
	engine.Override = opts.Config.Classify.Override

	return &Watcher{
		cfg:        opts.Config,
		engine:     engine,
		stats:      opts.Stats,
		dispatcher: opts.Dispatcher,
		sinks:      opts.Sinks,
		logger:     opts.Logger,
		processed:  observer.NewProcessedSet(),
	}, nil
}

// Start launches Chrome, opens the feed tab, attaches the observer, and
// schedules the initial sweep after the configured settle delay. It
// returns once the pipeline is attached; items flow in on the observer's
// goroutines until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx = ctx

	w.manager = browser.NewManager(browser.Config{
		RemoteURL:       w.cfg.Browser.Remote,
		MemoryLimit:     w.cfg.Browser.MemoryLimit,
		RecycleInterval: w.cfg.Browser.RecycleInterval,
		BlockResources:  w.cfg.Browser.BlockResources,
		Headful:         w.cfg.Browser.Headful,
		XvfbDisplay:     w.cfg.Browser.XvfbDisplay,
		Logger:          w.logger,
	})
	w.manager.SetRecycleCallback(&browser.RecycleCallback{
		BeforeRecycle: w.detach,
		AfterRecycle:  w.reattach,
	})

	if _, err := w.manager.Start(ctx); err != nil {
		return fmt.Errorf("feedwatch: start browser: %w", err)
	}

	if err := w.attach(ctx); err != nil {
		w.manager.Close()
		return err
	}

	// The host renders the initial feed asynchronously. Sweep once the
	// page has had time to settle; the mutation observer covers
	// everything after that.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.Feed.SweepDelay):
		}
		n, err := w.Analyze(ctx)
		if err != nil {
			w.logger.Warn("initial sweep failed", "error", err)
			return
		}
		w.logger.Info("initial sweep complete", "items", n)
	}()

	return nil
}

func (w *Watcher) attach(ctx context.Context) error {
	tab, err := browser.OpenTab(ctx, w.manager, w.cfg.Feed.URL)
	if err != nil {
		return fmt.Errorf("feedwatch: open feed tab: %w", err)
	}

	obs := observer.New(observer.Config{
		Tab:                tab,
		ContainerSelectors: w.cfg.Feed.ContainerSelectors,
		ItemSelectors:      w.cfg.Feed.ItemSelectors,
		DebounceWindow:     w.cfg.Debounce.Window,
		DebounceMax:        w.cfg.Debounce.MaxBuffer,
		OnBatch:            w.processBatch,
		Logger:             w.logger,
	})
	obs.SetContext(ctx)
	if err := obs.Start(); err != nil {
		tab.Close()
		return fmt.Errorf("feedwatch: attach observer: %w", err)
	}

	w.mu.Lock()
	w.tab = tab
	w.obs = obs
	w.mu.Unlock()

	w.logger.Info("feed observation attached", "url", w.cfg.Feed.URL)
	return nil
}

func (w *Watcher) detach() {
	w.mu.Lock()
	obs, tab := w.obs, w.tab
	w.obs, w.tab = nil, nil
	w.mu.Unlock()

	if obs != nil {
		obs.Stop()
	}
	if tab != nil {
		tab.Close()
	}
}

func (w *Watcher) reattach(_ *rod.Browser) {
	if err := w.attach(w.ctx); err != nil {
		w.logger.Error("reattach after browser recycle failed", "error", err)
	}
}

// Tab returns the current feed tab, or nil before Start. The action
// handler evaluates its unfollow request in this tab's session.
func (w *Watcher) Tab() *browser.Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tab
}

// Analyze forces a full sweep of the items currently rendered on the
// page and returns how many were collected. Items already processed are
// still deduplicated downstream.
func (w *Watcher) Analyze(ctx context.Context) (int, error) {
	w.mu.Lock()
	obs := w.obs
	w.mu.Unlock()
	if obs == nil {
		return 0, fmt.Errorf("feedwatch: not attached")
	}
	return obs.Sweep(ctx)
}

// Stop tears down the observer, the tab, and Chrome.
func (w *Watcher) Stop() {
	w.detach()
	if w.manager != nil {
		w.manager.Close()
	}
}

// processBatch classifies one debounced batch. Each item is isolated: a
// panic or error on one item never loses the rest of the batch.
func (w *Watcher) processBatch(items []feed.Item) {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	enabled, err := w.stats.GetBool(ctx, store.KeyEnableDetection)
	if err != nil {
		w.logger.Warn("detection toggle read failed, assuming enabled", "error", err)
		enabled = true
	}
	if !enabled {
		w.logger.Debug("detection disabled, dropping batch", "items", len(items))
		return
	}

	for i := range items {
		w.processItem(ctx, items[i])
	}
}

func (w *Watcher) processItem(ctx context.Context, item feed.Item) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("item processing panicked", "item_id", item.ID, "panic", r)
		}
	}()

	doc, err := html.Parse(strings.NewReader(item.HTML))
	if err != nil {
		w.logger.Warn("item markup unparseable", "item_id", item.ID, "error", err)
		return
	}

	verdict, sig, ok := w.engine.Classify(doc)
	if !ok {
		w.logger.Debug("item has no content text, skipped", "item_id", item.ID)
		return
	}

	key := feed.Key(sig.ContentText, sig.AuthorName)
	if w.processed.MarkSeen(key) {
		return
	}

	if _, err := w.stats.Increment(ctx, store.KeyPostsAnalyzed, 1); err != nil {
		w.logger.Warn("analyzed counter update failed", "error", err)
	}

	report := w.buildReport(item, sig, verdict, key)
	if err := w.sinks.Send(ctx, report); err != nil {
		w.logger.Warn("sink delivery failed", "item_id", item.ID, "error", err)
	}

	if !verdict.Flagged {
		return
	}

	w.logger.Info("item flagged",
		"item_id", item.ID,
		"author", sig.AuthorName,
		"reasons", verdict.ReasonTrail)

	if _, err := w.stats.Increment(ctx, store.KeyFlaggedPosts, 1); err != nil {
		w.logger.Warn("flagged counter update failed", "error", err)
	}

	if w.autoUnfollowEnabled(ctx) {
		w.unfollowAuthor(ctx, report.Author)
	}
}

func (w *Watcher) autoUnfollowEnabled(ctx context.Context) bool {
	if w.dispatcher == nil {
		return false
	}
	if w.cfg.Classify.AutoUnfollow {
		return true
	}
	on, err := w.stats.GetBool(ctx, store.KeyAutoUnfollow)
	if err != nil {
		w.logger.Warn("auto-unfollow toggle read failed, assuming off", "error", err)
		return false
	}
	return on
}

func (w *Watcher) unfollowAuthor(ctx context.Context, author feed.AuthorRef) {
	if err := w.dispatcher.Dispatch(ctx, author); err != nil {
		w.logger.Warn("auto-unfollow failed",
			"author", author.DisplayName, "error", err)
	}
}

func (w *Watcher) buildReport(item feed.Item, sig classify.Signals, verdict feed.Verdict, key string) feed.Report {
	markdown, err := htmltomarkdown.ConvertString(item.HTML)
	if err != nil {
		w.logger.Debug("markdown conversion failed", "item_id", item.ID, "error", err)
		markdown = ""
	}

	var highlighted string
	if verdict.Flagged && len(verdict.MatchedKeywords) > 0 {
		highlighted, _ = classify.HighlightKeywords(item.HTML, verdict.MatchedKeywords)
	}

	return feed.Report{
		ID:      item.ID,
		PageURL: item.PageURL,
		Seq:     item.Seq,
		ItemKey: key,
		Author: feed.AuthorRef{
			DisplayName: sig.AuthorName,
			ProfileURL:  absoluteHref(item.PageURL, sig.AuthorHref),
		},
		ContentPreview:     feed.Preview(classify.StripTags(sig.ContentText), previewLength),
		ContentMarkdown:    markdown,
		ContentHighlighted: highlighted,
		Verdict:            verdict,
		Timestamp:          item.Timestamp,
	}
}

// absoluteHref resolves a possibly relative author href against the feed
// page URL, so profile-pattern matching sees a full URL.
func absoluteHref(pageURL, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
