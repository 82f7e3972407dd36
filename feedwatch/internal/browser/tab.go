package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps the Rod page feedsift observes: stealth applied, resource
// blocking configured, navigated to the feed URL.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

// OpenTab creates a stealth tab and navigates to the feed URL. The host
// fingerprints automation, so every tab goes through the stealth patch
// regardless of headless or headful mode.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.BlockResources) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.BlockResources); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, manager: mgr}, nil
}

// Eval evaluates JS in the tab's page context.
func (t *Tab) Eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	res, err := t.Page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return res, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
