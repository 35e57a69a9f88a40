package step

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// DefaultCancelTimeout bounds the cancel request Stop issues for an
// in-flight goal.
const DefaultCancelTimeout = 5 * time.Second

// BaseStep bundles the lifecycle plumbing shared by every action: the
// registered name, the init-once guard, the cancellation flag, the in-flight
// goal slot and the notification helpers. Embed a *BaseStep in concrete
// actions and supply Init and Run to satisfy core.Action.
//
// Only the cancellation flag and the in-flight goal slot are touched by Stop;
// everything else belongs to the goroutine driving the run.
type BaseStep struct {
	logger        logging.Logger
	notifier      core.Notifier
	cancelTimeout time.Duration

	mu          sync.Mutex // Protects name, initialized, initRunning and inflight
	name        string
	initialized bool
	initRunning bool
	inflight    *inflightGoal

	stopped atomic.Bool
}

type inflightGoal struct {
	client   core.GoalClient
	handle   core.GoalHandle
	canceled bool
}

// Options configures a BaseStep.
type Options struct {
	Logger        logging.Logger
	Notifier      core.Notifier
	CancelTimeout time.Duration
}

// NewBaseStep constructs a BaseStep. Unset options fall back to no-op
// implementations.
func NewBaseStep(optFns ...func(o *Options)) *BaseStep {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		Notifier:      core.NoOpNotifier{},
		CancelTimeout: DefaultCancelTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Notifier == nil {
		opts.Notifier = core.NoOpNotifier{}
	}
	return &BaseStep{logger: opts.Logger, notifier: opts.Notifier, cancelTimeout: opts.CancelTimeout}
}

// Name returns the registered name, empty before Init.
func (b *BaseStep) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// Logger returns the step logger.
func (b *BaseStep) Logger() logging.Logger { return b.logger }

// Initialized reports whether InitOnce completed successfully.
func (b *BaseStep) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// InitOnce records the registered name and runs setup exactly once. A second
// call, or a call while setup is running, returns core.ErrAlreadyInitialized.
// A failed setup leaves the step uninitialized.
func (b *BaseStep) InitOnce(ctx context.Context, name string, setup func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.initialized || b.initRunning {
		b.mu.Unlock()
		return core.ErrAlreadyInitialized
	}
	b.initRunning = true
	b.name = name
	b.mu.Unlock()

	b.logger.Info("step.init.start", "action", name)

	var err error
	if setup != nil {
		err = setup(ctx)
	}

	b.mu.Lock()
	b.initRunning = false
	b.initialized = err == nil
	b.mu.Unlock()

	if err != nil {
		b.logger.Error("step.init.failed", "action", name, "error", err.Error())
		return err
	}
	b.logger.Info("step.init.done", "action", name)
	return nil
}

// BeginRun checks that the step is initialized and clears the cancellation
// flag left over from a previous run. Call it from Run after validating the
// arguments and before returning the sequence.
func (b *BaseStep) BeginRun() error {
	if !b.Initialized() {
		return core.ErrActionNotInitialized
	}
	b.stopped.Store(false)
	b.mu.Lock()
	b.inflight = nil
	b.mu.Unlock()
	return nil
}

// Stop sets the cancellation flag and asks the collaborator to cancel the
// in-flight goal, if any. It never blocks on the goal's progress and is a
// no-op when nothing is in flight.
func (b *BaseStep) Stop() {
	b.stopped.Store(true)
	b.logger.Debug("step.stop.requested", "action", b.Name())
	b.cancelInflight()
}

// Stopped reports whether Stop was called since the current run began.
func (b *BaseStep) Stopped() bool { return b.stopped.Load() }

// InvalidArg builds an ArgumentError attributed to this step.
func (b *BaseStep) InvalidArg(arg string, value any, reason string) error {
	return &core.ArgumentError{Action: b.Name(), Arg: arg, Value: value, Reason: reason}
}

// ArgError attributes an ArgumentError produced by core.Args to this step.
// Other errors are returned unchanged.
func (b *BaseStep) ArgError(err error) error {
	if ae, ok := err.(*core.ArgumentError); ok && ae.Action == "" {
		cp := *ae
		cp.Action = b.Name()
		return &cp
	}
	return err
}

// Failure returns a Failure pre-filled with the action name.
func (b *BaseStep) Failure(collaborator string) core.Failure {
	return core.Failure{Action: b.Name(), Collaborator: collaborator}
}

func (b *BaseStep) setInflight(client core.GoalClient, h core.GoalHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight = &inflightGoal{client: client, handle: h}
}

func (b *BaseStep) clearInflight() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight = nil
}

// cancelInflight issues at most one cancel request per goal.
func (b *BaseStep) cancelInflight() {
	b.mu.Lock()
	g := b.inflight
	if g == nil || g.canceled {
		b.mu.Unlock()
		return
	}
	g.canceled = true
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.cancelTimeout)
	defer cancel()
	if err := g.client.Cancel(ctx, g.handle); err != nil {
		b.logger.Warn("step.goal.cancel_failed", "action", b.Name(), "collaborator", g.client.Name(), "goal_id", g.handle.ID, "error", err.Error())
	}
	b.notify(core.Notification{Kind: core.NotifyGoalCanceled, Collaborator: g.client.Name(), GoalID: g.handle.ID})
}

func (b *BaseStep) notify(n core.Notification) {
	n.Action = b.Name()
	if n.Time.IsZero() {
		n.Time = time.Now().UTC()
	}
	b.notifier.Notify(n)
}

// NotifyServiceCalled reports a request/response call.
func (b *BaseStep) NotifyServiceCalled(service string, payload any) {
	b.notify(core.Notification{Kind: core.NotifyServiceCalled, Collaborator: service, Payload: payload})
}
