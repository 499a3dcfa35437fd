package player

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/shared"
)

// Guard supervises rendering of a player subtree. A panic or error inside [Guard.Render]
// moves the bound [Machine] to Errored and comes back as an error wrapping [shared.ErrLoad],
// so the page around the player keeps rendering.
type Guard struct {
	machine *Machine
	logger  *log.Logger
}

// NewGuard creates a [Guard] for m. A nil logger discards output.
func NewGuard(m *Machine, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Guard{machine: m, logger: logger}
}

// Render runs fn and converts a panic or returned error into the Errored state.
func (g *Guard) Render(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("%w: player render panicked: %v", shared.ErrLoad, r)
			g.logger.Error("player render panicked", "identity", g.machine.Identity(), "panic", r)
			g.machine.fail(cause)
			err = cause
		}
	}()

	if ferr := fn(); ferr != nil {
		cause := fmt.Errorf("%w: %v", shared.ErrLoad, ferr)
		g.logger.Warn("player render failed", "identity", g.machine.Identity(), "error", ferr)
		g.machine.fail(cause)
		return cause
	}
	return nil
}

// Reset leaves the Errored state for a fresh loading period.
func (g *Guard) Reset() error {
	_, err := g.machine.Fire(EventRetry)
	return err
}

// Machine returns the supervised machine.
func (g *Guard) Machine() *Machine {
	return g.machine
}
