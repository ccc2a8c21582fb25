package interpret

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
)

type state string

const (
	stateStart             state = "START"
	stateLocalAttempted    state = "LOCAL_ATTEMPTED"
	stateDoneLocal         state = "DONE_LOCAL"
	stateFallbackAttempted state = "FALLBACK_ATTEMPTED"
	stateDone              state = "DONE"
)

var errInvalidTransition = goerr.New("invalid state transition")

var transitions = map[state][]state{
	stateStart:             {stateLocalAttempted},
	stateLocalAttempted:    {stateDoneLocal, stateFallbackAttempted},
	stateFallbackAttempted: {stateDone},
}

// machine tracks one query cycle. Terminal states have no outgoing transitions.
type machine struct {
	current state
	logger  *slog.Logger
}

func newMachine(logger *slog.Logger) *machine {
	return &machine{current: stateStart, logger: logger}
}

func (m *machine) to(next state) error {
	for _, s := range transitions[m.current] {
		if s == next {
			m.logger.Debug("state transition", "from", m.current, "to", next)
			m.current = next
			return nil
		}
	}
	return goerr.Wrap(errInvalidTransition, "cannot move to state",
		goerr.V("from", m.current),
		goerr.V("to", next))
}
