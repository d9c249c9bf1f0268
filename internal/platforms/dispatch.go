// File: internal/platforms/dispatch.go
package platforms

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
	"github.com/xkilldash9x/crosspost-cli/internal/config"
)

// Dispatcher splits a post action across the two platform classes: API
// platforms post concurrently on worker goroutines, webview platforms are
// handed back to the caller for the browser confirmation panel.
type Dispatcher struct {
	logger *zap.Logger
	cfg    *config.Config
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(logger *zap.Logger, cfg *config.Config) *Dispatcher {
	return &Dispatcher{logger: logger.Named("dispatcher"), cfg: cfg}
}

// Split partitions accounts into API-backed platforms and webview accounts.
// Accounts that cannot be built (unknown platform) produce an AUTH-MISSING
// style error result immediately instead of aborting the others.
func (d *Dispatcher) Split(accounts []schemas.Account) (api []Platform, web []schemas.Account, errs []schemas.PostResult) {
	for _, acct := range accounts {
		p, err := New(d.logger, d.cfg, acct)
		if err != nil {
			d.logger.Warn("Skipping account", zap.String("account", acct.AccountID), zap.Error(err))
			errs = append(errs, schemas.NewErrorResult(
				string(acct.Platform), acct.AccountID, acct.ProfileName,
				schemas.ErrAuthMissing, err.Error()))
			continue
		}
		if p.PostsViaBrowser() {
			web = append(web, acct)
		} else {
			api = append(api, p)
		}
	}
	return api, web, errs
}

// PostAll runs every API platform's Post concurrently with bounded
// parallelism and returns one result per platform, in input order. Posts are
// blocking network calls, unlike the webview jobs, so they get their own
// goroutines regardless of how the webview panel is scheduled.
func (d *Dispatcher) PostAll(ctx context.Context, targets []Platform, text, imagePath string) []schemas.PostResult {
	results := make([]schemas.PostResult, len(targets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Network.APIConcurrency)

	for i, p := range targets {
		g.Go(func() error {
			res := p.Post(gctx, text, imagePath)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures live inside the results.
	_ = g.Wait()
	return results
}
