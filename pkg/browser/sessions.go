// pkg/browser/sessions.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosspost-cli/internal/config"
)

// Store maps account identifiers to isolated, disk-persisted browser
// sessions. Each account gets its own Chrome process with its own
// user-data-dir, so cookies and login state survive restarts and are never
// shared between accounts, even on the same platform. Sessions have no
// eviction; logging out is the user's operation inside the browser.
type Store struct {
	logger  *zap.Logger
	cfg     *config.Config
	baseDir string
	baseCtx context.Context

	mu       sync.Mutex
	sessions map[string]*Session

	// wg tracks open tabs across all sessions for a graceful shutdown.
	wg sync.WaitGroup
}

// Session is the isolated browsing context bound to one account.
type Session struct {
	AccountID  string
	StorageDir string

	store       *Store
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewStore creates a session store rooted at cfg.WebProfilesDir(). baseCtx
// bounds the lifetime of every browser process the store launches.
func NewStore(baseCtx context.Context, logger *zap.Logger, cfg *config.Config) *Store {
	return &Store{
		logger:   logger.Named("session_store"),
		cfg:      cfg,
		baseDir:  cfg.WebProfilesDir(),
		baseCtx:  baseCtx,
		sessions: make(map[string]*Session),
	}
}

// StorageDirFor resolves the stable on-disk location for an account's
// browsing state. Distinct account IDs always resolve to distinct
// directories; IDs that would escape the profile root are rejected.
func StorageDirFor(baseDir, accountID string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("account id must not be empty")
	}
	if strings.ContainsAny(accountID, `/\`) || accountID == "." || accountID == ".." {
		return "", fmt.Errorf("account id %q is not a valid profile directory name", accountID)
	}
	return filepath.Join(baseDir, accountID), nil
}

// GetOrCreate returns the session for an account, creating its allocator and
// storage directory on first use. The browser process itself launches lazily
// with the first tab.
func (s *Store) GetOrCreate(accountID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[accountID]; ok {
		return sess, nil
	}

	dir, err := StorageDirFor(s.baseDir, accountID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session storage for %q: %w", accountID, err)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(s.baseCtx, s.allocatorOptions(dir)...)
	sess := &Session{
		AccountID:   accountID,
		StorageDir:  dir,
		store:       s,
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}
	s.sessions[accountID] = sess

	s.logger.Info("Browser session ready",
		zap.String("account", accountID), zap.String("storage", dir))
	return sess, nil
}

// allocatorOptions assembles the Chrome flags for one account's browser.
// The automation banner flags are stripped: composer pages run bot checks,
// and the session should look like the user's ordinary browser.
func (s *Store) allocatorOptions(userDataDir string) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	// Options are opaque funcs and cannot be inspected; Headless and
	// enable-automation live at fixed positions in
	// chromedp.DefaultExecAllocatorOptions (indices 2 and 22 in v0.14.2).
	for i, opt := range chromedp.DefaultExecAllocatorOptions[:] {
		switch i {
		case 2, 22:
			continue
		}
		opts = append(opts, opt)
	}

	opts = append(opts,
		chromedp.UserDataDir(userDataDir),
		chromedp.Flag("headless", s.cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", s.cfg.Browser.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(s.cfg.Browser.WindowWidth, s.cfg.Browser.WindowHeight),
	)

	// Custom arguments from config.yaml.
	for _, arg := range s.cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers (e.g. Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// NewTab opens a tab in this session's browser and wraps it as a webview
// surface. The store tracks the tab until its Close.
func (sess *Session) NewTab() *Tab {
	tabCtx, cancel := chromedp.NewContext(sess.allocCtx)
	sess.store.wg.Add(1)
	return newTab(tabCtx, cancel, &sess.store.wg, sess.store.logger.With(zap.String("account", sess.AccountID)))
}

// Shutdown waits for open tabs to close, then terminates every browser
// process. Respects the caller's deadline.
func (s *Store) Shutdown(ctx context.Context) error {
	s.logger.Info("Session store shutdown initiated; waiting for open tabs")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Shutdown deadline exceeded; forcing browser termination", zap.Error(ctx.Err()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.allocCancel()
	}
	s.sessions = make(map[string]*Session)
	return nil
}
