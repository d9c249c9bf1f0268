// File: internal/platforms/platform.go
package platforms

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
	"github.com/xkilldash9x/crosspost-cli/internal/config"
	"github.com/xkilldash9x/crosspost-cli/internal/platforms/bluesky"
	"github.com/xkilldash9x/crosspost-cli/internal/platforms/instagram"
	"github.com/xkilldash9x/crosspost-cli/internal/platforms/twitter"
)

// Platform is one configured account's posting surface. API platforms post
// programmatically; webview platforms reject Post and are routed through the
// browser confirmation engine instead.
type Platform interface {
	Account() schemas.Account
	Specs() schemas.PlatformSpecs
	// Post publishes text (and optionally an image) and returns a result
	// record. Post never returns an error; failures are recovered into the
	// result per the application-wide policy.
	Post(ctx context.Context, text, imagePath string) schemas.PostResult
	// PostsViaBrowser reports whether this platform needs the webview panel.
	PostsViaBrowser() bool
}

// New builds the Platform for a configured account.
func New(logger *zap.Logger, cfg *config.Config, account schemas.Account) (Platform, error) {
	specs, ok := schemas.SpecsFor(account.Platform)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q for account %q", account.Platform, account.AccountID)
	}
	if specs.PostedViaBrowser {
		return &webviewPlatform{account: account, specs: specs}, nil
	}

	switch account.Platform {
	case schemas.PlatformBluesky:
		return bluesky.NewClient(logger, account, bluesky.Options{
			Timeout:         cfg.Network.Timeout,
			RateLimitPerMin: cfg.Network.RateLimitPerMin,
		}), nil
	case schemas.PlatformTwitter:
		return twitter.NewClient(logger, account, twitter.Options{
			Timeout:         cfg.Network.Timeout,
			RateLimitPerMin: cfg.Network.RateLimitPerMin,
		}), nil
	case schemas.PlatformInstagram:
		return instagram.NewClient(logger, account, instagram.Options{
			Timeout:         cfg.Network.Timeout,
			RateLimitPerMin: cfg.Network.RateLimitPerMin,
		}), nil
	}
	return nil, fmt.Errorf("no client implemented for platform %q", account.Platform)
}

// webviewPlatform represents an account whose platform exposes no usable
// API. Calling Post directly is a programming error path, reported as
// WV-PREFILL-FAILED rather than a crash.
type webviewPlatform struct {
	account schemas.Account
	specs   schemas.PlatformSpecs
}

func (w *webviewPlatform) Account() schemas.Account     { return w.account }
func (w *webviewPlatform) Specs() schemas.PlatformSpecs { return w.specs }
func (w *webviewPlatform) PostsViaBrowser() bool        { return true }

func (w *webviewPlatform) Post(_ context.Context, _ string, _ string) schemas.PostResult {
	res := schemas.NewErrorResult(
		w.specs.PlatformName, w.account.AccountID, w.account.ProfileName,
		schemas.ErrWVPrefillFailed, "")
	res.Timestamp = time.Now()
	return res
}
