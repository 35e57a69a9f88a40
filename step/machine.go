package step

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Per-run states.
const (
	StateInit      = "init"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StatePreempted = "preempted"
	StateAborted   = "aborted"
)

const (
	eventStart   = "start"
	eventSucceed = "succeed"
	eventPreempt = "preempt"
	eventAbort   = "abort"
)

// ErrResultAfterTerminal is returned by Machine.Observe for any result that
// follows a terminal one.
var ErrResultAfterTerminal = errors.New("result yielded after a terminal result")

// Machine tracks one run through INIT -> RUNNING* -> {SUCCEEDED | PREEMPTED |
// ABORTED}. INIT may go straight to a terminal state. No transition leaves a
// terminal state.
type Machine struct {
	mu     sync.Mutex
	fsm    *fsm.FSM
	action string
	logger logging.Logger
}

// NewMachine creates a machine in StateInit for one run of action.
func NewMachine(action string, logger logging.Logger) *Machine {
	m := &Machine{action: action, logger: logging.OrNoOp(logger)}
	live := []string{StateInit, StateRunning}
	m.fsm = fsm.NewFSM(
		StateInit,
		fsm.Events{
			{Name: eventStart, Src: []string{StateInit}, Dst: StateRunning},
			{Name: eventSucceed, Src: live, Dst: StateSucceeded},
			{Name: eventPreempt, Src: live, Dst: StatePreempted},
			{Name: eventAbort, Src: live, Dst: StateAborted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.logger.Debug("step.state", "action", m.action, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return m
}

// Observe feeds the next result of the run into the machine.
func (m *Machine) Observe(ctx context.Context, r core.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isTerminalState(m.fsm.Current()) {
		return fmt.Errorf("action %s: %w: got %s after %s", m.action, ErrResultAfterTerminal, r.Status(), m.fsm.Current())
	}

	var event string
	switch r.Status() {
	case core.StatusRunning:
		if m.fsm.Is(StateRunning) {
			return nil
		}
		event = eventStart
	case core.StatusSucceeded:
		event = eventSucceed
	case core.StatusPreempted:
		event = eventPreempt
	case core.StatusAborted:
		event = eventAbort
	default:
		return fmt.Errorf("action %s: unknown result status %d", m.action, r.Status())
	}

	// Transitions are bookkeeping only; the caller's cancellation must not
	// interrupt them.
	return m.fsm.Event(context.WithoutCancel(ctx), event)
}

// State returns the current state name.
func (m *Machine) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fsm.Current()
}

// Done reports whether the run reached a terminal state.
func (m *Machine) Done() bool {
	return isTerminalState(m.State())
}

func isTerminalState(s string) bool {
	switch s {
	case StateSucceeded, StatePreempted, StateAborted:
		return true
	default:
		return false
	}
}
