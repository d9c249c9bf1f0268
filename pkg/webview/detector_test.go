// pkg/webview/detector_test.go
package webview_test

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
	"github.com/xkilldash9x/crosspost-cli/pkg/webview"
)

// fastProfile is a composer profile with timings shrunk for tests.
func fastProfile(t *testing.T) webview.Profile {
	t.Helper()
	return webview.Profile{
		Platform:     schemas.PlatformFetLife,
		ComposerURL:  "https://fetlife.com/statuses/new",
		TextSelector: "textarea#status_body",
		SuccessURLRe: regexp.MustCompile(`fetlife\.com/users/\d+/statuses/\d+`),
		PrefillDelay: time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  time.Second,
	}
}

func advanceToAwaiting(t *testing.T, m *webview.Machine) {
	t.Helper()
	require.True(t, m.ToLoading())
	require.True(t, m.ToPreFilling())
	require.True(t, m.ToAwaitingSubmission())
}

func TestDetector_URLChannel(t *testing.T) {
	machine := webview.NewMachine()
	surface := &fakeSurface{}
	d := webview.NewDetector(zaptest.NewLogger(t), surface, fastProfile(t), machine)

	// Ordinary in-site navigation is ignored.
	d.HandleNavigation("https://fetlife.com/home")
	assert.Equal(t, webview.StateIdle, machine.State())

	// The permalink redirect confirms and captures the URL in one step.
	d.HandleNavigation("https://fetlife.com/users/12345/statuses/67890")
	assert.Equal(t, webview.StateConfirmed, machine.State())
	assert.Equal(t, "https://fetlife.com/users/12345/statuses/67890", machine.Permalink())

	// A second match cannot overwrite the captured permalink.
	d.HandleNavigation("https://fetlife.com/users/12345/statuses/99999")
	assert.Equal(t, "https://fetlife.com/users/12345/statuses/67890", machine.Permalink())
}

func TestDetector_PollChannelConfirms(t *testing.T) {
	machine := webview.NewMachine()
	advanceToAwaiting(t, machine)

	permalink := "https://fetlife.com/users/1/statuses/2"
	var ticks atomic.Int32
	surface := &fakeSurface{
		pollFn: func() (bool, *string, error) {
			// Nothing for the first couple of ticks, then success.
			if ticks.Add(1) < 3 {
				return false, nil, nil
			}
			return true, &permalink, nil
		},
	}
	d := webview.NewDetector(zaptest.NewLogger(t), surface, fastProfile(t), machine)

	d.StartPolling(context.Background())
	waitClosed(t, d.Finished(), "poll loop exit")

	assert.Equal(t, webview.StateConfirmed, machine.State())
	assert.Equal(t, permalink, machine.Permalink())
}

func TestDetector_PollSuccessWithoutPermalink(t *testing.T) {
	machine := webview.NewMachine()
	advanceToAwaiting(t, machine)

	surface := &fakeSurface{
		pollFn: func() (bool, *string, error) { return true, nil, nil },
	}
	d := webview.NewDetector(zaptest.NewLogger(t), surface, fastProfile(t), machine)

	d.StartPolling(context.Background())
	waitClosed(t, d.Finished(), "poll loop exit")

	// Confirmed even though the page never exposed a permalink.
	assert.Equal(t, webview.StateConfirmed, machine.State())
	assert.Empty(t, machine.Permalink())
}

func TestDetector_PollTimeout(t *testing.T) {
	machine := webview.NewMachine()
	advanceToAwaiting(t, machine)

	profile := fastProfile(t)
	profile.PollTimeout = 30 * time.Millisecond

	surface := &fakeSurface{} // no pollFn: flags never set
	d := webview.NewDetector(zaptest.NewLogger(t), surface, profile, machine)

	d.StartPolling(context.Background())
	waitClosed(t, d.Finished(), "poll loop exit")

	assert.Equal(t, webview.StateTimedOut, machine.State())
}

func TestDetector_PollErrorsTolerated(t *testing.T) {
	machine := webview.NewMachine()
	advanceToAwaiting(t, machine)

	var ticks atomic.Int32
	surface := &fakeSurface{
		pollFn: func() (bool, *string, error) {
			// The page is mid-navigation for the first ticks.
			if ticks.Add(1) < 3 {
				return false, nil, errors.New("execution context destroyed")
			}
			return true, nil, nil
		},
	}
	d := webview.NewDetector(zaptest.NewLogger(t), surface, fastProfile(t), machine)

	d.StartPolling(context.Background())
	waitClosed(t, d.Finished(), "poll loop exit")

	assert.Equal(t, webview.StateConfirmed, machine.State())
}

func TestDetector_StopLeavesMachineUnresolved(t *testing.T) {
	machine := webview.NewMachine()
	advanceToAwaiting(t, machine)

	surface := &fakeSurface{}
	d := webview.NewDetector(zaptest.NewLogger(t), surface, fastProfile(t), machine)

	d.StartPolling(context.Background())
	d.Stop()
	d.Stop() // idempotent
	waitClosed(t, d.Finished(), "poll loop exit")

	// Stop halts detection without deciding the outcome.
	assert.False(t, machine.State().Terminal())
}

func TestDetector_ExitsOnManualConfirm(t *testing.T) {
	machine := webview.NewMachine()
	advanceToAwaiting(t, machine)

	surface := &fakeSurface{}
	d := webview.NewDetector(zaptest.NewLogger(t), surface, fastProfile(t), machine)

	d.StartPolling(context.Background())
	require.True(t, machine.MarkManuallyConfirmed())
	waitClosed(t, d.Finished(), "poll loop exit")

	assert.Equal(t, webview.StateManuallyConfirmed, machine.State())
}

func TestDetector_ExitsOnContextCancel(t *testing.T) {
	machine := webview.NewMachine()
	advanceToAwaiting(t, machine)

	ctx, cancel := context.WithCancel(context.Background())
	surface := &fakeSurface{}
	d := webview.NewDetector(zaptest.NewLogger(t), surface, fastProfile(t), machine)

	d.StartPolling(ctx)
	cancel()
	waitClosed(t, d.Finished(), "poll loop exit")
	assert.False(t, machine.State().Terminal())
}
