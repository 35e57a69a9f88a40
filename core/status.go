package core

import (
	"fmt"
	"strings"
)

// Status is the outcome vocabulary shared by every action. Exactly one
// terminal status (Succeeded, Preempted, Aborted) ends a run; any number of
// Running results may precede it.
type Status int

const (
	// StatusRunning reports progress; more results will follow.
	StatusRunning Status = iota
	// StatusSucceeded reports that the action reached its goal.
	StatusSucceeded
	// StatusPreempted reports that the run was cancelled through Stop.
	StatusPreempted
	// StatusAborted reports a failure (invalid precondition, collaborator
	// failure, lost goal).
	StatusAborted
)

// String returns the upper-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusPreempted:
		return "PREEMPTED"
	case StatusAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsTerminal reports whether s ends a run.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusPreempted || s == StatusAborted
}

// ParseStatus converts a case-insensitive status name into a Status.
func ParseStatus(name string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "RUNNING":
		return StatusRunning, nil
	case "SUCCEEDED":
		return StatusSucceeded, nil
	case "PREEMPTED":
		return StatusPreempted, nil
	case "ABORTED":
		return StatusAborted, nil
	default:
		return 0, fmt.Errorf("unknown status %q", name)
	}
}
