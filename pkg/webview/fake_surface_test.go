// pkg/webview/fake_surface_test.go
package webview_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/json-iterator/go"
)

// fakeSurface is a scripted in-memory stand-in for a browser tab. Poll
// responses come from pollFn; injected scripts are recorded for inspection.
type fakeSurface struct {
	mu        sync.Mutex
	navigated []string
	scripts   []string
	navFn     func(url string)
	closed    bool

	navErr    error
	hasCookie bool
	cookieErr error

	// navigateHook runs inside Navigate, after registering the URL. Used to
	// simulate an instant redirect to the permalink during the initial load.
	navigateHook func(url string)

	// pollFn supplies the detection flags for each poll tick.
	pollFn func() (success bool, url *string, err error)
}

func (f *fakeSurface) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	f.navigated = append(f.navigated, url)
	hook := f.navigateHook
	err := f.navErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(url)
	}
	return nil
}

func (f *fakeSurface) Evaluate(_ context.Context, expr string, out any) error {
	if strings.HasPrefix(strings.TrimSpace(expr), "({success") {
		f.mu.Lock()
		pollFn := f.pollFn
		f.mu.Unlock()

		var success bool
		var url *string
		if pollFn != nil {
			var err error
			success, url, err = pollFn()
			if err != nil {
				return err
			}
		}
		if out == nil {
			return nil
		}
		b, err := json.Marshal(map[string]any{"success": success, "url": url})
		if err != nil {
			return err
		}
		return json.Unmarshal(b, out)
	}

	f.mu.Lock()
	f.scripts = append(f.scripts, expr)
	f.mu.Unlock()
	if b, ok := out.(*bool); ok && b != nil {
		*b = true
	}
	return nil
}

func (f *fakeSurface) OnNavigate(fn func(url string)) {
	f.mu.Lock()
	f.navFn = fn
	f.mu.Unlock()
}

// FireNavigation simulates a top-frame navigation observed by the tab.
func (f *fakeSurface) FireNavigation(url string) {
	f.mu.Lock()
	fn := f.navFn
	f.mu.Unlock()
	if fn != nil {
		fn(url)
	}
}

func (f *fakeSurface) HasCookie(_ context.Context, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasCookie, f.cookieErr
}

func (f *fakeSurface) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSurface) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSurface) Scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

func (f *fakeSurface) Navigated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigated...)
}

// waitClosed fails the test if ch is not closed within two seconds.
func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
