// pkg/webview/controller.go
package webview

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// Job is one ephemeral posting attempt: the account, the prepared content and
// nothing else. It is discarded once its machine reaches a terminal state.
type Job struct {
	ID        string
	Account   schemas.Account
	Text      string
	ImagePath string
	CreatedAt time.Time
}

// NewJob builds a Job for an account with prepared content.
func NewJob(account schemas.Account, text, imagePath string) Job {
	return Job{
		ID:        uuid.New().String(),
		Account:   account,
		Text:      text,
		ImagePath: imagePath,
		CreatedAt: time.Now(),
	}
}

// Controller owns one browsing surface and walks it through
// load -> settle -> inject. It never submits anything: submission belongs to
// the human, detection to the Detector.
type Controller struct {
	logger     *zap.Logger
	surface    Surface
	profile    Profile
	machine    *Machine
	navTimeout time.Duration
}

// NewController wires a controller to its surface and state machine.
func NewController(logger *zap.Logger, surface Surface, profile Profile, machine *Machine, navTimeout time.Duration) *Controller {
	return &Controller{
		logger:     logger.Named("controller"),
		surface:    surface,
		profile:    profile,
		machine:    machine,
		navTimeout: navTimeout,
	}
}

// Run performs the pre-submission half of the job: pre-flight session check,
// navigation, settle delay, text injection and observer installation. On
// return the machine is either in AwaitingSubmission or a terminal failure
// state. Run never returns an error; every failure is recovered into the
// state machine so unrelated accounts keep going.
func (c *Controller) Run(ctx context.Context, job Job) {
	log := c.logger.With(zap.String("account", job.Account.AccountID), zap.String("job", job.ID[:8]))

	c.preflight(ctx, log)

	if !c.machine.ToLoading() {
		return
	}

	navCtx, cancel := context.WithTimeout(ctx, c.navTimeout)
	err := c.surface.Navigate(navCtx, c.profile.ComposerURL)
	cancel()
	if err != nil {
		// No retry: hammering a protected composer with reloads is how
		// automation gets flagged. Surface the failure instead.
		log.Warn("Composer page failed to load", zap.String("url", c.profile.ComposerURL), zap.Error(err))
		c.machine.FailLoad()
		return
	}

	if !c.machine.ToPreFilling() {
		// The URL listener may already have confirmed (instant redirect).
		return
	}

	// Settle before touching the DOM. Bot-challenge interstitials and SPA
	// hydration both run right after load.
	select {
	case <-time.After(c.profile.PrefillDelay):
	case <-ctx.Done():
		return
	case <-c.machine.Done():
		return
	}

	c.inject(ctx, job, log)
	c.machine.ToAwaitingSubmission()
}

// preflight checks for the platform's session cookie when the profile names
// one. A missing cookie does not stop the job - the page still loads so the
// user can log in - it only recolors a later timeout as WV-SESSION-EXPIRED.
func (c *Controller) preflight(ctx context.Context, log *zap.Logger) {
	if c.profile.SessionCookieName == "" {
		return
	}
	found, err := c.surface.HasCookie(ctx, c.profile.SessionCookieDomain, c.profile.SessionCookieName)
	if err != nil {
		log.Debug("Session cookie pre-flight check failed", zap.Error(err))
		return
	}
	if !found {
		log.Warn("No stored session cookie; user will need to log in",
			zap.String("domain", c.profile.SessionCookieDomain))
		c.machine.NoteSessionExpired()
	}
}

// inject fills the composer text input and installs the success observer.
// Injection is fire-and-forget; whether the page accepted the text is the
// detector's problem.
func (c *Controller) inject(ctx context.Context, job Job, log *zap.Logger) {
	if job.Text != "" && c.profile.TextSelector != "" {
		var filled bool
		if err := c.surface.Evaluate(ctx, injectTextScript(c.profile.TextSelector, job.Text), &filled); err != nil {
			log.Warn("Text injection failed", zap.Error(err))
		} else if !filled {
			log.Warn("Text input not found; user must type the post themselves",
				zap.String("selector", c.profile.TextSelector))
		}
	}

	if c.profile.SuccessSelector != "" {
		if err := c.surface.Evaluate(ctx, observerScript(c.profile.SuccessSelector, c.profile.PermalinkSelector), nil); err != nil {
			log.Warn("Success observer injection failed", zap.Error(err))
		}
	}

	if job.ImagePath != "" {
		// File pickers cannot be driven by script; attaching the image stays
		// a manual step inside the page.
		log.Info("Image must be attached manually in the browser window",
			zap.String("image", job.ImagePath))
	}
}
