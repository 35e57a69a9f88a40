package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Canonical context keys used by Preempted and Aborted results. Actions may
// add further keys through Failure.Extra; the canonical ones are always
// spelled the same way so callers can log or escalate without inspecting the
// action's internals.
const (
	KeyAction       = "action"
	KeyCollaborator = "collaborator"
	KeyGoal         = "goal"
	KeyGoalID       = "goal_id"
	KeyGoalStatus   = "goal_status"
	KeyReason       = "reason"
	KeyPartial      = "partial"
)

// Result is the immutable record yielded by a running action. The context
// map is copied on construction and on access.
type Result struct {
	status  Status
	context map[string]any
}

// NewResult creates a Result with a private copy of fields.
func NewResult(status Status, fields map[string]any) Result {
	return Result{status: status, context: maps.Clone(fields)}
}

// Running creates a progress result.
func Running(fields map[string]any) Result { return NewResult(StatusRunning, fields) }

// Succeeded creates a success result carrying the action's payload.
func Succeeded(fields map[string]any) Result { return NewResult(StatusSucceeded, fields) }

// Preempted creates a cancellation result with the canonical failure context.
func Preempted(f Failure) Result { return NewResult(StatusPreempted, f.Fields()) }

// Aborted creates a failure result with the canonical failure context.
func Aborted(f Failure) Result { return NewResult(StatusAborted, f.Fields()) }

// Status returns the result status.
func (r Result) Status() Status { return r.status }

// IsTerminal reports whether the result ends its run.
func (r Result) IsTerminal() bool { return r.status.IsTerminal() }

// Context returns a copy of the context fields.
func (r Result) Context() map[string]any { return maps.Clone(r.context) }

// Value returns a single context value.
func (r Result) Value(key string) (any, bool) {
	v, ok := r.context[key]
	return v, ok
}

// Failure decodes the canonical failure context. It is meaningful for
// Preempted and Aborted results; for other results the zero Failure plus any
// non-canonical keys in Extra is returned.
func (r Result) Failure() Failure {
	var f Failure
	extra := map[string]any{}
	for k, v := range r.context {
		switch k {
		case KeyAction:
			f.Action, _ = v.(string)
		case KeyCollaborator:
			f.Collaborator, _ = v.(string)
		case KeyGoal:
			f.Goal = v
		case KeyGoalID:
			f.GoalID, _ = v.(string)
		case KeyGoalStatus:
			if gs, ok := v.(GoalStatus); ok {
				f.GoalStatus = gs
			}
		case KeyReason:
			f.Reason, _ = v.(string)
		case KeyPartial:
			f.Partial = v
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		f.Extra = extra
	}
	return f
}

// String renders the result as STATUS(k=v, ...) with keys sorted.
func (r Result) String() string {
	if len(r.context) == 0 {
		return r.status.String()
	}
	keys := make([]string, 0, len(r.context))
	for k := range r.context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.context[k]))
	}
	return fmt.Sprintf("%s(%s)", r.status, strings.Join(parts, ", "))
}

// MarshalJSON encodes the result as {"status": "...", "context": {...}}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status  string         `json:"status"`
		Context map[string]any `json:"context,omitempty"`
	}{Status: r.status.String(), Context: r.context})
}

// Failure is the structured context attached to Preempted and Aborted
// results. Empty fields are omitted from the encoded context.
type Failure struct {
	// Action is the registered name of the action that produced the result.
	Action string
	// Collaborator identifies the goal server or service that was in flight.
	Collaborator string
	// Goal is the request that was sent (or would have been sent).
	Goal any
	// GoalID identifies the in-flight goal, when one existed.
	GoalID string
	// GoalStatus is the last status observed for GoalID.
	GoalStatus GoalStatus
	// Reason is a short human readable explanation.
	Reason string
	// Partial carries any partial result available at the time.
	Partial any
	// Extra holds action specific keys.
	Extra map[string]any
}

// Fields encodes the failure into context fields.
func (f Failure) Fields() map[string]any {
	fields := make(map[string]any, 7+len(f.Extra))
	for k, v := range f.Extra {
		fields[k] = v
	}
	if f.Action != "" {
		fields[KeyAction] = f.Action
	}
	if f.Collaborator != "" {
		fields[KeyCollaborator] = f.Collaborator
	}
	if f.Goal != nil {
		fields[KeyGoal] = f.Goal
	}
	if f.GoalID != "" {
		fields[KeyGoalID] = f.GoalID
		fields[KeyGoalStatus] = f.GoalStatus
	}
	if f.Reason != "" {
		fields[KeyReason] = f.Reason
	}
	if f.Partial != nil {
		fields[KeyPartial] = f.Partial
	}
	return fields
}
