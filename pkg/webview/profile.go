// pkg/webview/profile.go
package webview

import (
	"regexp"
	"time"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// Profile is the static per-platform configuration for the composer
// automation. The supported platforms differ only in URL, selectors and
// timing, so this stays a data table rather than one type per platform.
type Profile struct {
	Platform     schemas.PlatformID
	ComposerURL  string
	TextSelector string

	// SuccessURLRe, when set, confirms submission the moment a top-frame
	// navigation matches it; the matched URL doubles as the permalink.
	SuccessURLRe *regexp.Regexp

	// SuccessSelector, when set, is watched for by an injected
	// MutationObserver; PermalinkSelector optionally names an anchor whose
	// href becomes the permalink.
	SuccessSelector   string
	PermalinkSelector string

	// SessionCookieName/Domain enable the pre-flight logged-in check.
	SessionCookieName   string
	SessionCookieDomain string

	// PrefillDelay is the settle time between load completion and text
	// injection. Near zero for server-rendered pages, seconds for
	// Cloudflare-protected single-page apps.
	PrefillDelay time.Duration
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// AutoDetectable reports whether at least one detection channel is
// configured. Without one, only manual override or the poll timeout can
// resolve a job.
func (p Profile) AutoDetectable() bool {
	return p.SuccessURLRe != nil || p.SuccessSelector != ""
}

// MatchSuccessURL reports whether url matches the platform's permalink
// pattern.
func (p Profile) MatchSuccessURL(url string) bool {
	return p.SuccessURLRe != nil && p.SuccessURLRe.MatchString(url)
}

var profiles = map[schemas.PlatformID]Profile{
	// Traditional server-rendered site: submission redirects straight to the
	// new status permalink.
	schemas.PlatformFetLife: {
		Platform:            schemas.PlatformFetLife,
		ComposerURL:         "https://fetlife.com/statuses/new",
		TextSelector:        "textarea#status_body",
		SuccessURLRe:        regexp.MustCompile(`fetlife\.com/users/\d+/statuses/\d+`),
		SessionCookieName:   "_fl_sessionid",
		SessionCookieDomain: "fetlife.com",
		PrefillDelay:        200 * time.Millisecond,
		PollInterval:        500 * time.Millisecond,
		PollTimeout:         30 * time.Second,
	},
	// Cloudflare-protected SPA. No URL change on submit and no stable
	// success marker; the user resolves these by hand.
	schemas.PlatformOnlyFans: {
		Platform:            schemas.PlatformOnlyFans,
		ComposerURL:         "https://onlyfans.com/",
		TextSelector:        `div[contenteditable="true"].b-make-post__text`,
		SessionCookieName:   "sess",
		SessionCookieDomain: "onlyfans.com",
		PrefillDelay:        1500 * time.Millisecond,
		PollInterval:        time.Second,
		PollTimeout:         30 * time.Second,
	},
	schemas.PlatformFansly: {
		Platform:            schemas.PlatformFansly,
		ComposerURL:         "https://fansly.com/",
		TextSelector:        "textarea",
		SessionCookieName:   "fansly_session",
		SessionCookieDomain: "fansly.com",
		PrefillDelay:        1500 * time.Millisecond,
		PollInterval:        time.Second,
		PollTimeout:         30 * time.Second,
	},
	// SPA that shows a transient toast on success; no permalink exists.
	schemas.PlatformSnapchat: {
		Platform:        schemas.PlatformSnapchat,
		ComposerURL:     "https://web.snapchat.com/",
		TextSelector:    `div[contenteditable="true"]`,
		SuccessSelector: `div[data-test="post-success-toast"]`,
		PrefillDelay:    500 * time.Millisecond,
		PollInterval:    time.Second,
		PollTimeout:     30 * time.Second,
	},
}

// ProfileFor returns the composer profile for a platform. The boolean is
// false for platforms that post through an API instead of a webview.
func ProfileFor(id schemas.PlatformID) (Profile, bool) {
	p, ok := profiles[id]
	return p, ok
}
