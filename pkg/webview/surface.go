// pkg/webview/surface.go
package webview

import "context"

// Surface abstracts the one browsing surface a job owns. The production
// implementation drives a Chrome tab over CDP (pkg/browser); tests substitute
// a scripted fake so the whole confirmation engine runs without a browser.
//
// Evaluate is the request/response channel for page-side state: the detector
// "asks the page" for its current flags and never reaches into the evaluation
// mechanism directly.
type Surface interface {
	// Navigate loads url and returns once the document body is ready.
	Navigate(ctx context.Context, url string) error

	// Evaluate runs a JS expression in the page and unmarshals its result
	// into out. A nil out discards the result.
	Evaluate(ctx context.Context, expr string, out any) error

	// OnNavigate registers fn for every subsequent top-frame navigation.
	OnNavigate(fn func(url string))

	// HasCookie reports whether the session holds a cookie by name for the
	// given domain.
	HasCookie(ctx context.Context, domain, name string) (bool, error)

	// Close releases the browsing surface. Late events after Close must not
	// invoke registered callbacks.
	Close(ctx context.Context) error
}
