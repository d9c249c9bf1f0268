// pkg/webview/panel.go
package webview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// AccountStatus is a live snapshot of one job for presentation.
type AccountStatus struct {
	AccountID   string
	DisplayName string
	Platform    schemas.PlatformID
	State       State
	Permalink   string
}

// jobRuntime bundles the per-account triple the panel owns.
type jobRuntime struct {
	job        Job
	surface    Surface
	controller *Controller
	detector   *Detector
	machine    *Machine
}

// Panel owns one controller + detector + machine triple per account taking
// part in a single logical post action. Jobs proceed independently; the panel
// only aggregates their terminal states and fans the user's manual override
// to the right job.
type Panel struct {
	logger     *zap.Logger
	navTimeout time.Duration

	mu      sync.Mutex
	jobs    map[string]*jobRuntime
	order   []string
	started bool

	wg          sync.WaitGroup
	resolveOnce sync.Once
	allResolved chan struct{}
	closeOnce   sync.Once
}

// NewPanel creates an empty panel. navTimeout bounds each job's initial page
// load.
func NewPanel(logger *zap.Logger, navTimeout time.Duration) *Panel {
	return &Panel{
		logger:      logger.Named("panel"),
		navTimeout:  navTimeout,
		jobs:        make(map[string]*jobRuntime),
		allResolved: make(chan struct{}),
	}
}

// Add registers a job and the surface it will run on. Must be called before
// Start. The navigation listener is attached immediately so even a redirect
// during the initial load feeds the URL channel.
func (p *Panel) Add(job Job, surface Surface, profile Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("panel already started")
	}
	if _, exists := p.jobs[job.Account.AccountID]; exists {
		return fmt.Errorf("account %q already on the panel", job.Account.AccountID)
	}

	machine := NewMachine()
	log := p.logger.With(zap.String("account", job.Account.AccountID))
	rt := &jobRuntime{
		job:        job,
		surface:    surface,
		controller: NewController(log, surface, profile, machine, p.navTimeout),
		detector:   NewDetector(log, surface, profile, machine),
		machine:    machine,
	}
	surface.OnNavigate(rt.detector.HandleNavigation)

	p.jobs[job.Account.AccountID] = rt
	p.order = append(p.order, job.Account.AccountID)
	return nil
}

// Start launches every job. Each runs on its own goroutine: navigate, settle,
// inject, then poll until a terminal state. The aggregate "all resolved"
// signal fires exactly once, after the last machine terminates, regardless of
// resolution order.
func (p *Panel) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	runtimes := make([]*jobRuntime, 0, len(p.order))
	for _, id := range p.order {
		runtimes = append(runtimes, p.jobs[id])
	}
	p.mu.Unlock()

	for _, rt := range runtimes {
		p.wg.Add(1)
		go p.runJob(ctx, rt)
	}

	go func() {
		p.wg.Wait()
		p.resolveOnce.Do(func() { close(p.allResolved) })
	}()
}

func (p *Panel) runJob(ctx context.Context, rt *jobRuntime) {
	defer p.wg.Done()

	rt.controller.Run(ctx, rt.job)
	if rt.machine.State().Terminal() {
		return
	}

	rt.detector.StartPolling(ctx)
	select {
	case <-rt.machine.Done():
	case <-ctx.Done():
		// Caller abandoned the post action; finalize so Wait can't hang.
		rt.machine.TimeOut()
	}
}

// AllResolved is closed once every job has reached a terminal state. Checking
// it redundantly is harmless.
func (p *Panel) AllResolved() <-chan struct{} {
	return p.allResolved
}

// Wait blocks until every job is terminal or ctx is cancelled.
func (p *Panel) Wait(ctx context.Context) error {
	select {
	case <-p.allResolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MarkManuallyConfirmed applies the user's "I already posted this" override
// to one account. Reports whether the override landed (false for unknown
// accounts or already-terminal jobs). The detector's poll loop observes the
// terminal transition and stops on its own.
func (p *Panel) MarkManuallyConfirmed(accountID string) bool {
	p.mu.Lock()
	rt, ok := p.jobs[accountID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	if rt.machine.MarkManuallyConfirmed() {
		p.logger.Info("Post manually confirmed by user", zap.String("account", accountID))
		return true
	}
	return false
}

// Status returns a live snapshot per account, in the order jobs were added.
func (p *Panel) Status() []AccountStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]AccountStatus, 0, len(p.order))
	for _, id := range p.order {
		rt := p.jobs[id]
		statuses = append(statuses, AccountStatus{
			AccountID:   id,
			DisplayName: rt.job.Account.DisplayName(),
			Platform:    rt.job.Account.Platform,
			State:       rt.machine.State(),
			Permalink:   rt.machine.Permalink(),
		})
	}
	return statuses
}

// Results builds one result record per account, in the order jobs were
// added. Jobs still unresolved at this point are reported as timed out.
func (p *Panel) Results() []schemas.PostResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]schemas.PostResult, 0, len(p.order))
	for _, id := range p.order {
		rt := p.jobs[id]
		results = append(results, BuildResult(rt.job, rt.machine))
	}
	return results
}

// Close tears the panel down: stops every poll loop, finalizes unresolved
// machines as timed out and releases the browsing surfaces. Idempotent. No
// timer survives Close, and no late callback can mutate a job afterwards.
func (p *Panel) Close(ctx context.Context) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		runtimes := make([]*jobRuntime, 0, len(p.order))
		for _, id := range p.order {
			runtimes = append(runtimes, p.jobs[id])
		}
		p.mu.Unlock()

		for _, rt := range runtimes {
			rt.detector.Stop()
			rt.machine.TimeOut()
			if err := rt.surface.Close(ctx); err != nil {
				p.logger.Debug("Surface close failed",
					zap.String("account", rt.job.Account.AccountID), zap.Error(err))
			}
		}

		// A panel that never started has no goroutine to close the
		// aggregate signal, so release any Wait callers here.
		p.resolveOnce.Do(func() { close(p.allResolved) })
	})
}
