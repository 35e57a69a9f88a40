package notify

import (
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Multi fans a notification out to several notifiers in order.
type Multi []core.Notifier

var _ core.Notifier = Multi(nil)

// Notify forwards n to every non-nil notifier.
func (m Multi) Notify(n core.Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(n)
		}
	}
}

// Log writes every notification to a logger at debug level.
type Log struct {
	logger logging.Logger
}

// NewLog creates a logging notifier; a nil logger discards everything.
func NewLog(logger logging.Logger) *Log {
	return &Log{logger: logging.OrNoOp(logger)}
}

// Notify logs n.
func (l *Log) Notify(n core.Notification) {
	args := []any{"kind", string(n.Kind), "action", n.Action, "collaborator", n.Collaborator}
	if n.GoalID != "" {
		args = append(args, "goal_id", n.GoalID)
	}
	if n.GoalStatus != nil {
		args = append(args, "goal_status", n.GoalStatus.String())
	}
	l.logger.Debug("notify."+string(n.Kind), args...)
}

// Recorder keeps every notification in memory. It is meant for tests and
// for inspecting a short task after the fact.
type Recorder struct {
	mu sync.Mutex
	ns []core.Notification
}

// Notify records n.
func (r *Recorder) Notify(n core.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ns = append(r.ns, n)
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Notification(nil), r.ns...)
}

// Kinds returns the recorded kinds in order.
func (r *Recorder) Kinds() []core.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.NotificationKind, len(r.ns))
	for i, n := range r.ns {
		out[i] = n.Kind
	}
	return out
}

// Reset drops the recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ns = nil
}
