// pkg/webview/detector.go
package webview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Detector runs the two submission detection channels against one job's
// surface. Channel one matches every top-frame navigation against the
// platform's permalink pattern; channel two polls the page-scoped flags set
// by the injected MutationObserver. Both feed the same machine, whose
// terminal transition is idempotent, so whichever fires first wins.
type Detector struct {
	logger  *zap.Logger
	surface Surface
	profile Profile
	machine *Machine

	stopOnce sync.Once
	stop     chan struct{}
	finished chan struct{}
}

// NewDetector builds a detector for one job.
func NewDetector(logger *zap.Logger, surface Surface, profile Profile, machine *Machine) *Detector {
	return &Detector{
		logger:   logger.Named("detector"),
		surface:  surface,
		profile:  profile,
		machine:  machine,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// HandleNavigation is the URL-change channel. A permalink match is
// authoritative: it confirms success and captures the permalink in one step.
// Registered with the surface before navigation so an instant redirect is
// never missed.
func (d *Detector) HandleNavigation(url string) {
	if !d.profile.MatchSuccessURL(url) {
		return
	}
	if d.machine.Confirm(url) {
		d.logger.Info("Post confirmed via URL change", zap.String("permalink", url))
	}
}

// StartPolling launches the DOM-observation poll loop. The loop owns its
// ticker and exits on the first of: success flag set, poll budget exhausted,
// machine terminal (manual confirm or URL match), Stop, or context cancel.
// On budget exhaustion the job is finalized as TimedOut, which guarantees
// every account eventually resolves.
func (d *Detector) StartPolling(ctx context.Context) {
	go d.pollLoop(ctx)
}

func (d *Detector) pollLoop(ctx context.Context) {
	defer close(d.finished)

	d.machine.ToPolling()

	ticker := time.NewTicker(d.profile.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(d.profile.PollTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			if d.pollOnce(ctx) {
				return
			}
		case <-deadline.C:
			if d.machine.TimeOut() {
				d.logger.Info("No success signal before timeout",
					zap.Duration("timeout", d.profile.PollTimeout))
			}
			return
		case <-d.machine.Done():
			return
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pollOnce asks the page for its detection flags. It returns true once the
// loop should stop. Evaluation errors are tolerated: a mid-navigation page
// simply has nothing to report yet.
func (d *Detector) pollOnce(ctx context.Context) bool {
	evalCtx, cancel := context.WithTimeout(ctx, d.profile.PollInterval)
	defer cancel()

	var flags pollFlags
	if err := d.surface.Evaluate(evalCtx, pollExpr, &flags); err != nil {
		d.logger.Debug("Detection flag poll failed", zap.Error(err))
		return false
	}
	if !flags.Success {
		return false
	}

	permalink := ""
	if flags.URL != nil {
		permalink = *flags.URL
	}
	if d.machine.Confirm(permalink) {
		if permalink == "" {
			// WV-URL-CAPTURE-FAILED territory: confirmed, nothing to link to.
			d.logger.Info("Post confirmed via DOM observer; no permalink available")
		} else {
			d.logger.Info("Post confirmed via DOM observer", zap.String("permalink", permalink))
		}
	}
	return true
}

// Stop halts the poll loop without finalizing the machine. Used on panel
// teardown, where the panel decides how unresolved jobs are finalized.
func (d *Detector) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// Finished is closed once the poll loop has fully exited; after that no
// detector callback will touch the machine.
func (d *Detector) Finished() <-chan struct{} {
	return d.finished
}
