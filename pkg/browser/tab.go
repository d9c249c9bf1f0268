// pkg/browser/tab.go
package browser

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosspost-cli/pkg/webview"
)

// Tab drives a single browser tab over CDP and implements webview.Surface.
var _ webview.Surface = (*Tab)(nil)

// Tab is one browsing surface inside an account's session.
type Tab struct {
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
}

func newTab(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, logger *zap.Logger) *Tab {
	return &Tab{
		logger: logger.Named("tab"),
		ctx:    ctx,
		cancel: cancel,
		wg:     wg,
	}
}

// runCtx derives a context for chromedp.Run that respects the caller's
// deadline while staying rooted in the tab's own context.
func (t *Tab) runCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(t.ctx, deadline)
	}
	return context.WithCancel(t.ctx)
}

// Navigate loads url and returns once the document body is ready.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := t.runCtx(ctx)
	defer cancel()

	t.logger.Debug("Navigating", zap.String("url", url))
	return chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Evaluate runs a JS expression in the page. A nil out discards the result.
func (t *Tab) Evaluate(ctx context.Context, expr string, out any) error {
	runCtx, cancel := t.runCtx(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(expr, out))
}

// OnNavigate registers fn for every top-frame navigation, including SPA
// same-document URL changes. Events arriving after Close are dropped.
func (t *Tab) OnNavigate(fn func(url string)) {
	chromedp.ListenTarget(t.ctx, func(ev any) {
		if t.closed.Load() {
			return
		}
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				fn(e.Frame.URL)
			}
		case *page.EventNavigatedWithinDocument:
			fn(e.URL)
		}
	})
}

// HasCookie reports whether the session currently holds a cookie by name for
// the given domain.
func (t *Tab) HasCookie(ctx context.Context, domain, name string) (bool, error) {
	runCtx, cancel := t.runCtx(ctx)
	defer cancel()

	var cookies []*network.Cookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return false, err
	}
	for _, c := range cookies {
		if c.Name == name && cookieDomainMatches(c.Domain, domain) {
			return true, nil
		}
	}
	return false, nil
}

// cookieDomainMatches reports whether a cookie's domain covers the given
// site. Subdomain matches must sit on a label boundary so that a lookalike
// registration like "evil-fetlife.com" never matches "fetlife.com".
func cookieDomainMatches(cookieDomain, domain string) bool {
	d := strings.TrimPrefix(cookieDomain, ".")
	return d == domain || strings.HasSuffix(d, "."+domain)
}

// Close tears the tab down and signals the store. Idempotent.
func (t *Tab) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.cancel()

		select {
		case <-t.ctx.Done():
		case <-ctx.Done():
			t.logger.Warn("Deadline exceeded waiting for tab to close", zap.Error(ctx.Err()))
		}
		t.wg.Done()
	})
	return nil
}
