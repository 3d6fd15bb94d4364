// Package renderer drives headless Chromium (via chromedp) for the handful
// of job boards whose listings only materialize after client-side
// JavaScript runs. One exec allocator is shared; each Render or NewTab call
// launches its own Chromium process on it.
package renderer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// blockedURLPatterns approximates blocking the image/media/font resource
// types (chromedp has no per-resource-type block short of full Fetch-domain
// interception) by glob-matching the extensions those resource types use.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.mp4", "*.webm", "*.mp3", "*.ogg",
	"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot",
}

var consentSelectors = []string{
	`#onetrust-accept-btn-handler`,
	`button[aria-label="Accept"]`,
	`#mscc-accept-all`,
}

// Renderer owns a lazily-created, process-wide chromedp exec allocator. No
// browser instance is shared between calls.
type Renderer struct {
	log *logrus.Logger

	mu        sync.Mutex
	allocCtx  context.Context
	allocStop context.CancelFunc
}

// New returns a Renderer that creates its allocator on first use.
func New(log *logrus.Logger) *Renderer {
	if log == nil {
		log = logrus.New()
	}
	return &Renderer{log: log}
}

// browserContext returns the shared allocator context, creating a new
// allocator if none exists yet or the previous one was cancelled. Chromium
// itself is launched by each chromedp context created on it.
func (r *Renderer) browserContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.allocCtx != nil && r.allocCtx.Err() == nil {
		return r.allocCtx
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)
	r.allocCtx = allocCtx
	r.allocStop = allocStop
	return r.allocCtx
}

// Render navigates to url in a fresh tab, blocks heavy assets, dismisses
// cookie-consent overlays, waits for waitFor (a CSS selector) to become
// visible, and returns the final page HTML. There is no network-idle wait. A
// missing waitFor selector is tolerated: the selector wait stops short of
// the tab deadline, a fixed 500ms pause follows, and the page content is
// still returned, since some apps render data without ever matching the
// selector.
func (r *Renderer) Render(ctx context.Context, url string, waitFor string, timeout time.Duration) (string, error) {
	tabCtx, cancel := chromedp.NewContext(r.browserContext())
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		blockHeavyAssets(),
		chromedp.Navigate(url),
		dismissConsent(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return waitForSelectorTolerant(ctx, waitFor, timeout)
		}),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

func blockHeavyAssets() chromedp.Action {
	return network.SetBlockedURLs(blockedURLPatterns)
}

func dismissConsent() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, sel := range consentSelectors {
			clickCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
			_ = chromedp.Run(clickCtx, chromedp.Click(sel, chromedp.ByQuery))
			cancel()
		}
		return nil
	})
}

func waitForSelectorTolerant(ctx context.Context, selector string, timeout time.Duration) error {
	if selector == "" {
		return nil
	}
	// Stop waiting early enough that the tab's own deadline still leaves
	// room to capture the page when the selector never shows up.
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl) - 2*time.Second; left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err == nil {
		return nil
	}
	// one more chance: give the app a moment to finish a late render.
	time.Sleep(500 * time.Millisecond)
	return nil
}

// NewTab opens a fresh chromedp context (its own Chromium process) on the
// shared allocator and applies
// timeout to it, for adapters that need to drive navigation/clicks/scrolls
// themselves rather than go through Render's fixed navigate-wait-capture
// sequence.
func (r *Renderer) NewTab(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tabCtx, cancel := chromedp.NewContext(r.browserContext())
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	return tabCtx, func() {
		timeoutCancel()
		cancel()
	}
}

// Close releases the shared browser allocator, if one was started.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocStop != nil {
		r.allocStop()
		r.allocCtx = nil
		r.allocStop = nil
	}
}
