package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/peai/internal/shared"
)

// State is the load state of the embedded player frame.
type State int

const (
	Loading State = iota
	Loaded
	Errored
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event drives a [Machine].
type Event int

const (
	EventLoaded Event = iota // the frame fired load
	EventFailed              // the frame fired error
	EventRetry               // the user asked to reload after an error
)

func (e Event) String() string {
	switch e {
	case EventLoaded:
		return "loaded"
	case EventFailed:
		return "failed"
	case EventRetry:
		return "retry"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// ParseEvent maps the wire names "loaded", "failed" and "retry" to events.
func ParseEvent(s string) (Event, error) {
	switch s {
	case "loaded":
		return EventLoaded, nil
	case "failed", "error":
		return EventFailed, nil
	case "retry":
		return EventRetry, nil
	default:
		return 0, fmt.Errorf("%w: unknown player event %q", shared.ErrInvalidInput, s)
	}
}

// ErrAbandoned is returned by [Load.Wait] when the player was rebound before the frame settled.
var ErrAbandoned = errors.New("player load abandoned")

// Identity is what the player is showing. A change of identity restarts loading.
type Identity struct {
	Bvid string
	Page int
}

// Load is the two-outcome future of one loading period. It settles exactly once with
// Loaded or Errored, or is abandoned. A frame that never reports simply never settles.
type Load struct {
	once      sync.Once
	done      chan struct{}
	outcome   State
	abandoned bool
}

func newLoad() *Load {
	return &Load{done: make(chan struct{})}
}

func (l *Load) settle(outcome State, abandoned bool) bool {
	settled := false
	l.once.Do(func() {
		l.outcome = outcome
		l.abandoned = abandoned
		close(l.done)
		settled = true
	})
	return settled
}

// Done is closed once the load settles or is abandoned.
func (l *Load) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the load settles, is abandoned, or ctx ends.
func (l *Load) Wait(ctx context.Context) (State, error) {
	select {
	case <-l.done:
		if l.abandoned {
			return Loading, ErrAbandoned
		}
		return l.outcome, nil
	case <-ctx.Done():
		return Loading, ctx.Err()
	}
}

// Machine is the Loading/Loaded/Errored state machine for one embedded player.
//
//	Loading --loaded--> Loaded
//	Loading --failed--> Errored
//	Errored --retry---> Loading
//	any     --bind(new identity)--> Loading
//
// Every other event is rejected with [shared.ErrInvalidTransition] and leaves the state alone.
type Machine struct {
	mu       sync.Mutex
	state    State
	identity Identity
	load     *Load
	cause    error
}

// NewMachine starts a machine in Loading for identity.
func NewMachine(identity Identity) *Machine {
	return &Machine{state: Loading, identity: identity, load: newLoad()}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns what the machine is bound to.
func (m *Machine) Identity() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Current returns the future of the current loading period. Once settled it keeps
// reporting that outcome until the next retry or rebind.
func (m *Machine) Current() *Load {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load
}

// Cause returns the error that moved the machine to Errored, if any.
func (m *Machine) Cause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cause
}

// Fire applies ev and returns the resulting state.
func (m *Machine) Fire(ev Event) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case ev == EventLoaded && m.state == Loading:
		m.state = Loaded
		m.load.settle(Loaded, false)
	case ev == EventFailed && m.state == Loading:
		m.state = Errored
		m.cause = fmt.Errorf("%w: frame reported an error", shared.ErrLoad)
		m.load.settle(Errored, false)
	case ev == EventRetry && m.state == Errored:
		m.state = Loading
		m.cause = nil
		m.load = newLoad()
	default:
		return m.state, fmt.Errorf("%w: %s while %s", shared.ErrInvalidTransition, ev, m.state)
	}
	return m.state, nil
}

// Bind points the machine at identity. A new identity abandons the pending load and
// restarts in Loading. Binding the current identity changes nothing.
func (m *Machine) Bind(identity Identity) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if identity == m.identity {
		return m.state
	}

	m.load.settle(Loading, true)
	m.identity = identity
	m.state = Loading
	m.cause = nil
	m.load = newLoad()
	return m.state
}

// Remount restarts the machine in Loading for identity even when identity is unchanged.
// A page view that renders a fresh frame starts a new loading period.
func (m *Machine) Remount(identity Identity) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.load.settle(Loading, true)
	m.identity = identity
	m.state = Loading
	m.cause = nil
	m.load = newLoad()
	return m.state
}

// fail forces Errored from any state. Used by [Guard] when rendering the player panics.
func (m *Machine) fail(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = Errored
	m.cause = cause
	m.load.settle(Errored, false)
}
