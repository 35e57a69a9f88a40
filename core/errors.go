package core

import (
	"errors"
	"fmt"
)

var (
	// ErrActionNotFound is returned for a name that was never registered.
	ErrActionNotFound = errors.New("action not found")
	// ErrActionNotInitialized is returned for a registered action whose Init
	// has not completed successfully.
	ErrActionNotInitialized = errors.New("action not initialized")
	// ErrAlreadyInitialized is returned by a second Init call.
	ErrAlreadyInitialized = errors.New("action already initialized")
	// ErrDuplicateAction is returned when two registry entries share a name.
	ErrDuplicateAction = errors.New("duplicate action name")
	// ErrInvalidArgument is matched by every *ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoTerminalResult reports a sequence that ended without a terminal
	// result.
	ErrNoTerminalResult = errors.New("sequence ended without a terminal result")
	// ErrCollaboratorUnreachable is matched by every *UnreachableError.
	ErrCollaboratorUnreachable = errors.New("collaborator unreachable")
	// ErrUnknownGoal is returned by goal clients for handles they did not
	// issue.
	ErrUnknownGoal = errors.New("unknown goal")
	// ErrExecutionNotFound is returned when stopping an unknown execution.
	ErrExecutionNotFound = errors.New("execution not found")
	// ErrActionBusy is returned when a run is requested for an action that
	// still has an unfinished execution.
	ErrActionBusy = errors.New("action has an execution in flight")
)

// ArgumentError reports a malformed or out-of-domain run argument. It is
// returned before any collaborator is contacted.
type ArgumentError struct {
	Action string
	Arg    string
	Value  any
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("invalid argument %q (%v): %s", e.Arg, e.Value, e.Reason)
	}
	return fmt.Sprintf("action %s: invalid argument %q (%v): %s", e.Action, e.Arg, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidArgument) succeed.
func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// InitError reports a startup-fatal failure of one action's Init.
type InitError struct {
	Action string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init action %s: %v", e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error { return e.Err }

// ContractError reports a registry entry whose instance does not satisfy
// the action contract. It is a programming error.
type ContractError struct {
	Action string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("action %s violates the action contract: %s", e.Action, e.Reason)
}

// UnreachableError reports a collaborator that never became reachable.
type UnreachableError struct {
	Collaborator string
	Err          error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("collaborator %s unreachable: %v", e.Collaborator, e.Err)
}

// Unwrap returns the last connection error.
func (e *UnreachableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCollaboratorUnreachable) succeed.
func (e *UnreachableError) Is(target error) bool { return target == ErrCollaboratorUnreachable }
