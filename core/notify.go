package core

import "time"

// NotificationKind enumerates the observable collaborator interactions.
type NotificationKind string

const (
	// NotifyGoalSent is reported after a goal was sent to a goal server.
	NotifyGoalSent NotificationKind = "goal_sent"
	// NotifyResultReceived is reported after a goal reached a terminal status
	// and its result was fetched.
	NotifyResultReceived NotificationKind = "result_received"
	// NotifyServiceCalled is reported after a request/response call.
	NotifyServiceCalled NotificationKind = "service_called"
	// NotifyGoalCanceled is reported after a cancel request was issued.
	NotifyGoalCanceled NotificationKind = "goal_canceled"
)

// Notification describes one collaborator interaction. It is purely
// observational.
type Notification struct {
	Kind         NotificationKind `json:"kind"`
	Action       string           `json:"action"`
	Collaborator string           `json:"collaborator"`
	GoalID       string           `json:"goal_id,omitempty"`
	GoalStatus   *GoalStatus      `json:"goal_status,omitempty"`
	Payload      any              `json:"payload,omitempty"`
	Time         time.Time        `json:"time"`
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use and must not block for long; they run on the goroutine
// driving the action.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// NoOpNotifier discards all notifications.
type NoOpNotifier struct{}

// Notify does nothing.
func (NoOpNotifier) Notify(Notification) {}
