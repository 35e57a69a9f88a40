// Package taskmesh wires the action registry, the runner and the default
// robot actions into one executor. Most applications:
//  1. Create a TaskMesh via New (or FromConfig) with the collaborators of
//     their robot
//  2. Call Init once at startup; a failure names the action and is fatal
//  3. Run actions by name, either pulling the result sequence themselves
//     (Run) or through the runner (Start, RunSync)
//
// Defaults are safe for local development: in-memory history, no-op
// logging and notifications.
package taskmesh

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/hupe1980/taskmesh/actions"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/history"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/registry"
	"github.com/hupe1980/taskmesh/runner"
	"github.com/hupe1980/taskmesh/step"
)

// Options configures the TaskMesh instance.
type Options struct {
	// Entries replaces the default actions when set.
	Entries []registry.Entry
	// Deps are the collaborators of the default actions.
	Deps actions.Deps
	// ActionConfig tunes the default actions.
	ActionConfig actions.Config

	// PollInterval is the minimum time between two pulls of one execution.
	PollInterval time.Duration
	// History records executions; in-memory when nil.
	History history.Store
	// Observers receive every result the runner delivers.
	Observers []runner.ResultObserver

	// Notifier receives collaborator notifications of the default actions.
	Notifier core.Notifier
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TaskMesh is the high-level façade aggregating the registry and the runner.
type TaskMesh struct {
	registry *registry.Registry
	runner   *runner.Runner
	logger   logging.Logger
	closers  []func() error
}

// New creates a TaskMesh. It fails when the action entries are malformed or
// an enabled default action lacks a collaborator.
func New(optFns ...func(o *Options)) (*TaskMesh, error) {
	opts := Options{
		ActionConfig: actions.DefaultConfig(),
		History:      history.NewInMemoryStore(1000),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	entries := opts.Entries
	if entries == nil {
		deps := opts.Deps
		if deps.Logger == nil {
			deps.Logger = opts.Logger
		}
		if deps.Notifier == nil {
			deps.Notifier = opts.Notifier
		}
		var err error
		if entries, err = actions.Default(deps, opts.ActionConfig); err != nil {
			return nil, err
		}
	}

	reg, err := registry.New(opts.Logger, entries...)
	if err != nil {
		return nil, err
	}
	r := runner.New(reg, func(o *runner.Options) {
		o.PollInterval = opts.PollInterval
		o.History = opts.History
		o.Observers = opts.Observers
		o.Logger = opts.Logger
	})
	return &TaskMesh{registry: reg, runner: r, logger: opts.Logger}, nil
}

// Init initializes every action in registration order.
func (m *TaskMesh) Init(ctx context.Context) error { return m.registry.InitAll(ctx) }

// Action returns the initialized action registered under name.
func (m *TaskMesh) Action(name string) (core.Action, error) { return m.registry.Get(name) }

// Run starts the named action and returns its result sequence for the caller
// to pull. The sequence always ends with exactly one terminal result.
func (m *TaskMesh) Run(ctx context.Context, name string, args core.Args) (iter.Seq[core.Result], error) {
	a, err := m.registry.Get(name)
	if err != nil {
		return nil, err
	}
	seq, err := a.Run(ctx, args)
	if err != nil {
		return nil, err
	}
	return step.Guard(name, seq), nil
}

// Start runs the named action through the runner; see runner.Runner.Start.
func (m *TaskMesh) Start(ctx context.Context, name string, args core.Args) (string, <-chan core.Result, <-chan error, error) {
	return m.runner.Start(ctx, name, args)
}

// RunSync runs the named action to completion and returns every result.
func (m *TaskMesh) RunSync(ctx context.Context, name string, args core.Args) ([]core.Result, error) {
	return m.runner.RunSync(ctx, name, args)
}

// Stop requests cancellation of a runner execution.
func (m *TaskMesh) Stop(execID string) error { return m.runner.Stop(execID) }

// StopAction requests cancellation of the named action directly. It is a
// no-op when the action is idle.
func (m *TaskMesh) StopAction(name string) error {
	a, ok := m.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrActionNotFound, name)
	}
	a.Stop()
	return nil
}

// Registry returns the action registry.
func (m *TaskMesh) Registry() *registry.Registry { return m.registry }

// Runner returns the runner.
func (m *TaskMesh) Runner() *runner.Runner { return m.runner }

// History returns the execution history.
func (m *TaskMesh) History() history.Store { return m.runner.History() }

// Close releases the resources opened by FromConfig.
func (m *TaskMesh) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i]())
	}
	m.closers = nil
	return errors.Join(errs...)
}
