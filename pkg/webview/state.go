// pkg/webview/state.go
package webview

import "sync"

// State enumerates the lifecycle of one webview posting job. Forward
// transitions are strictly ordered; the terminal states are Confirmed,
// ManuallyConfirmed, TimedOut and LoadFailed.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePreFilling
	StateAwaitingSubmission
	StatePolling
	StateConfirmed
	StateManuallyConfirmed
	StateTimedOut
	StateLoadFailed
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateManuallyConfirmed, StateTimedOut, StateLoadFailed:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePreFilling:
		return "prefilling"
	case StateAwaitingSubmission:
		return "awaiting_submission"
	case StatePolling:
		return "polling"
	case StateConfirmed:
		return "confirmed"
	case StateManuallyConfirmed:
		return "manually_confirmed"
	case StateTimedOut:
		return "timed_out"
	case StateLoadFailed:
		return "load_failed"
	}
	return "unknown"
}

// Machine is the per-job confirmation state machine. All transitions are
// serialized behind a mutex so signals from the navigation listener, the poll
// loop and the user's manual override can race safely; whichever terminal
// signal arrives first wins and later ones are ignored. Reaching a terminal
// state closes Done exactly once.
type Machine struct {
	mu             sync.Mutex
	state          State
	permalink      string
	sessionExpired bool
	done           chan struct{}
}

// NewMachine returns a machine in StateIdle.
func NewMachine() *Machine {
	return &Machine{state: StateIdle, done: make(chan struct{})}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Permalink returns the captured post URL, empty if none was captured.
func (m *Machine) Permalink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permalink
}

// Done is closed when the machine reaches a terminal state.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// advance moves from an exact predecessor state to next. Any other current
// state, including terminal ones, leaves the machine untouched. Late
// callbacks therefore can never re-enter an earlier lifecycle phase.
func (m *Machine) advance(from, next State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return false
	}
	m.state = next
	return true
}

// ToLoading transitions Idle -> Loading.
func (m *Machine) ToLoading() bool { return m.advance(StateIdle, StateLoading) }

// ToPreFilling transitions Loading -> PreFilling.
func (m *Machine) ToPreFilling() bool { return m.advance(StateLoading, StatePreFilling) }

// ToAwaitingSubmission transitions PreFilling -> AwaitingSubmission.
func (m *Machine) ToAwaitingSubmission() bool {
	return m.advance(StatePreFilling, StateAwaitingSubmission)
}

// ToPolling transitions AwaitingSubmission -> Polling.
func (m *Machine) ToPolling() bool { return m.advance(StateAwaitingSubmission, StatePolling) }

// terminate moves to a terminal state from any non-terminal state.
func (m *Machine) terminate(next State, permalink string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return false
	}
	m.state = next
	if permalink != "" {
		m.permalink = permalink
	}
	close(m.done)
	return true
}

// Confirm records an automatic success signal. The permalink may be empty:
// some platforms never expose one.
func (m *Machine) Confirm(permalink string) bool {
	return m.terminate(StateConfirmed, permalink)
}

// MarkManuallyConfirmed records the user's assertion that the post went
// through. Callable from any non-terminal state; a no-op afterwards.
func (m *Machine) MarkManuallyConfirmed() bool {
	return m.terminate(StateManuallyConfirmed, "")
}

// TimeOut finalizes the job after detection exhausted its budget, or when the
// panel is torn down with the job still unresolved.
func (m *Machine) TimeOut() bool {
	return m.terminate(StateTimedOut, "")
}

// FailLoad finalizes the job after the composer page failed to load.
func (m *Machine) FailLoad() bool {
	return m.terminate(StateLoadFailed, "")
}

// NoteSessionExpired records that the pre-flight cookie check found no stored
// credential. The job keeps running so the user can log in by hand; the note
// only changes which error code a later timeout maps to.
func (m *Machine) NoteSessionExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionExpired = true
}

// SessionExpired reports whether the pre-flight check flagged this job.
func (m *Machine) SessionExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionExpired
}
