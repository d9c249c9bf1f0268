// pkg/webview/state_test.go
package webview_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crosspost-cli/pkg/webview"
)

func TestMachine_OrderedLifecycle(t *testing.T) {
	m := webview.NewMachine()
	assert.Equal(t, webview.StateIdle, m.State())

	assert.True(t, m.ToLoading())
	assert.True(t, m.ToPreFilling())
	assert.True(t, m.ToAwaitingSubmission())
	assert.True(t, m.ToPolling())
	assert.Equal(t, webview.StatePolling, m.State())

	assert.True(t, m.Confirm("https://example.com/post/1"))
	assert.Equal(t, webview.StateConfirmed, m.State())
	assert.Equal(t, "https://example.com/post/1", m.Permalink())
}

func TestMachine_ForwardTransitionsRequireExactPredecessor(t *testing.T) {
	m := webview.NewMachine()

	// Skipping ahead is not possible.
	assert.False(t, m.ToPreFilling())
	assert.False(t, m.ToAwaitingSubmission())
	assert.False(t, m.ToPolling())
	assert.Equal(t, webview.StateIdle, m.State())

	require.True(t, m.ToLoading())
	require.True(t, m.ToPreFilling())

	// A late "load finished" style callback cannot re-enter Loading.
	assert.False(t, m.ToLoading())
	assert.Equal(t, webview.StatePreFilling, m.State())
}

func TestMachine_TerminalIsFinal(t *testing.T) {
	m := webview.NewMachine()
	require.True(t, m.ToLoading())
	require.True(t, m.Confirm("https://example.com/p/1"))

	// Every further signal is ignored.
	assert.False(t, m.Confirm("https://example.com/p/2"))
	assert.False(t, m.MarkManuallyConfirmed())
	assert.False(t, m.TimeOut())
	assert.False(t, m.FailLoad())
	assert.False(t, m.ToPreFilling())

	assert.Equal(t, webview.StateConfirmed, m.State())
	assert.Equal(t, "https://example.com/p/1", m.Permalink())

	select {
	case <-m.Done():
	default:
		t.Fatal("Done must be closed after a terminal transition")
	}
}

func TestMachine_ManualConfirmFromAnyNonTerminal(t *testing.T) {
	states := []func(m *webview.Machine){
		func(m *webview.Machine) {}, // Idle
		func(m *webview.Machine) { m.ToLoading() },
		func(m *webview.Machine) { m.ToLoading(); m.ToPreFilling() },
		func(m *webview.Machine) { m.ToLoading(); m.ToPreFilling(); m.ToAwaitingSubmission() },
		func(m *webview.Machine) {
			m.ToLoading()
			m.ToPreFilling()
			m.ToAwaitingSubmission()
			m.ToPolling()
		},
	}
	for i, setup := range states {
		m := webview.NewMachine()
		setup(m)
		assert.True(t, m.MarkManuallyConfirmed(), "case %d", i)
		assert.Equal(t, webview.StateManuallyConfirmed, m.State(), "case %d", i)
		// Idempotence: a second override has no further effect.
		assert.False(t, m.MarkManuallyConfirmed(), "case %d", i)
	}
}

func TestMachine_ConfirmWithoutPermalink(t *testing.T) {
	m := webview.NewMachine()
	require.True(t, m.ToLoading())
	assert.True(t, m.Confirm(""))
	assert.Equal(t, webview.StateConfirmed, m.State())
	assert.Empty(t, m.Permalink())
}

func TestState_Terminal(t *testing.T) {
	terminal := []webview.State{
		webview.StateConfirmed, webview.StateManuallyConfirmed,
		webview.StateTimedOut, webview.StateLoadFailed,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), s.String())
	}
	nonTerminal := []webview.State{
		webview.StateIdle, webview.StateLoading, webview.StatePreFilling,
		webview.StateAwaitingSubmission, webview.StatePolling,
	}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), s.String())
	}
}
