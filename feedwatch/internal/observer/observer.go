// Package observer runs the in-page side of feed observation: an
// injected MutationObserver ships newly rendered feed items to Go over a
// CDP binding, where they are debounced into batches for the watcher.
package observer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/feedsift/feedsift/feed"
	"github.com/feedsift/feedsift/feedwatch/internal/browser"
	"github.com/feedsift/feedsift/internal/idgen"
)

//go:embed observer.js
var observerJS []byte

const bindingName = "__feedsift_binding"

// BatchFunc receives one debounced batch of feed items, in arrival order.
type BatchFunc func(items []feed.Item)

// Config for creating an Observer.
type Config struct {
	Tab                *browser.Tab
	ContainerSelectors []string
	ItemSelectors      []string
	DebounceWindow     time.Duration
	DebounceMax        int
	OnBatch            BatchFunc
	Logger             *slog.Logger
}

// Observer manages observation of a single feed page.
type Observer struct {
	tab     *browser.Tab
	cfg     Config
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	onBatch BatchFunc

	rawCh     chan string
	debouncer *debouncer
	loopDone  chan struct{}

	// Item sequence, monotonically increasing per page.
	seq atomic.Uint64
}

// New creates an Observer for the given tab.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	o := &Observer{
		tab:     cfg.Tab,
		cfg:     cfg,
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		onBatch: cfg.OnBatch,
		rawCh:   make(chan string, 4096),
	}

	o.debouncer = newDebouncer(debounceConfig{
		Window:    cfg.DebounceWindow,
		MaxBuffer: cfg.DebounceMax,
	}, o.onFlush)

	return o
}

// SetContext ties the observer's lifetime to the parent watcher.
func (o *Observer) SetContext(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)
}

// Start attaches the in-page observer: registers the CDP binding,
// injects the selector chains and the MutationObserver script, then runs
// the debounce loop.
func (o *Observer) Start() error {
	err := proto.RuntimeAddBinding{Name: bindingName}.Call(o.tab.Page)
	if err != nil {
		o.logger.Warn("observer: add binding failed (may already exist)", "error", err)
	}

	go o.listenBinding()

	if err := o.inject(); err != nil {
		return err
	}

	o.loopDone = make(chan struct{})
	go o.loop()

	return nil
}

// Stop detaches and flushes anything still buffered. The final flush
// runs on the debounce loop, never concurrently with its adds.
func (o *Observer) Stop() {
	o.cancel()
	if o.loopDone != nil {
		<-o.loopDone
	}
}

func (o *Observer) inject() error {
	containers, _ := json.Marshal(o.cfg.ContainerSelectors)
	items, _ := json.Marshal(o.cfg.ItemSelectors)
	setup := fmt.Sprintf(
		"window.__feedsift_container_selectors = %s; window.__feedsift_item_selectors = %s;",
		containers, items)
	if _, err := o.tab.Eval(o.ctx, setup); err != nil {
		return fmt.Errorf("observer: set selectors: %w", err)
	}

	if _, err := o.tab.Eval(o.ctx, string(observerJS)); err != nil {
		return fmt.Errorf("observer: inject script: %w", err)
	}

	res, err := o.tab.Eval(o.ctx, "() => window.__feedsift_container_found")
	if err == nil && !res.Value.Bool() {
		o.logger.Warn("observer: no container selector matched, observing body",
			"url", o.tab.PageURL)
	}

	o.logger.Info("observer: attached", "url", o.tab.PageURL)
	return nil
}

// Sweep collects the items already rendered on the page and delivers
// them as one batch, bypassing the debouncer. Returns the item count.
func (o *Observer) Sweep(ctx context.Context) (int, error) {
	res, err := o.tab.Eval(ctx, "() => window.__feedsift_sweep()")
	if err != nil {
		return 0, fmt.Errorf("observer: sweep: %w", err)
	}

	var htmls []string
	for _, v := range res.Value.Arr() {
		htmls = append(htmls, v.Str())
	}
	if len(htmls) == 0 {
		return 0, nil
	}

	o.deliver(htmls)
	return len(htmls), nil
}

// listenBinding receives records from the injected MutationObserver.
func (o *Observer) listenBinding() {
	page := o.tab.Page
	page.Context(o.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var records []struct {
			HTML string `json:"html"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &records); err != nil {
			o.logger.Warn("observer: parse binding payload", "error", err)
			return
		}

		for _, rec := range records {
			if rec.HTML == "" {
				continue
			}
			select {
			case o.rawCh <- rec.HTML:
			default:
				o.logger.Warn("observer: raw channel full, dropping record")
			}
		}
	})()
}

// loop drains raw records into the debouncer and flushes on the window.
// The debouncer is only ever touched from this goroutine.
func (o *Observer) loop() {
	defer close(o.loopDone)
	for {
		select {
		case <-o.ctx.Done():
			o.drainRaw()
			o.debouncer.flush()
			return
		case html := <-o.rawCh:
			o.debouncer.add(html)
		case <-o.debouncer.timerC():
			o.debouncer.flush()
		}
	}
}

// drainRaw empties whatever is still queued on the raw channel.
func (o *Observer) drainRaw() {
	for {
		select {
		case html := <-o.rawCh:
			o.debouncer.add(html)
		default:
			return
		}
	}
}

func (o *Observer) onFlush(htmls []string) {
	o.deliver(htmls)
}

func (o *Observer) deliver(htmls []string) {
	if o.onBatch == nil || len(htmls) == 0 {
		return
	}

	now := time.Now().UnixMilli()
	items := make([]feed.Item, 0, len(htmls))
	for _, h := range htmls {
		items = append(items, feed.Item{
			ID:        idgen.New(),
			PageURL:   o.tab.PageURL,
			Seq:       o.seq.Add(1),
			HTML:      h,
			Timestamp: now,
		})
	}

	o.onBatch(items)
}
