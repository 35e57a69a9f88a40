package testutil

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/taskmesh/core"
)

// ActionBuilder provides a fluent helper for constructing scripted actions.
// Example:
//
//	a := NewActionBuilder().Running(2).Then(core.Succeeded(nil)).Build()
//
// Without a terminal result the built action keeps yielding RUNNING until it
// is stopped.
type ActionBuilder struct {
	results  []core.Result
	initErr  error
	validate func(core.Args) error
	forever  bool
}

// NewActionBuilder creates an empty builder.
func NewActionBuilder() *ActionBuilder { return &ActionBuilder{} }

// Running appends n RUNNING results (chainable).
func (b *ActionBuilder) Running(n int) *ActionBuilder {
	for range n {
		b.results = append(b.results, core.Running(nil))
	}
	return b
}

// Then appends arbitrary results (chainable).
func (b *ActionBuilder) Then(rs ...core.Result) *ActionBuilder {
	b.results = append(b.results, rs...)
	return b
}

// Forever keeps yielding RUNNING after the scripted results (chainable).
func (b *ActionBuilder) Forever() *ActionBuilder { b.forever = true; return b }

// InitError makes Init fail with err (chainable).
func (b *ActionBuilder) InitError(err error) *ActionBuilder { b.initErr = err; return b }

// Validate installs an argument validator (chainable).
func (b *ActionBuilder) Validate(fn func(core.Args) error) *ActionBuilder { b.validate = fn; return b }

// Build returns the scripted action.
func (b *ActionBuilder) Build() *FakeAction {
	return &FakeAction{
		results:  append([]core.Result(nil), b.results...),
		initErr:  b.initErr,
		validate: b.validate,
		forever:  b.forever,
	}
}

// FakeAction is a scripted core.Action that counts its lifecycle calls.
type FakeAction struct {
	results  []core.Result
	initErr  error
	validate func(core.Args) error
	forever  bool

	mu      sync.Mutex
	name    string
	inits   int
	lastArg core.Args

	runs    atomic.Int32
	stops   atomic.Int32
	pulls   atomic.Int32
	stopped atomic.Bool
}

var _ core.Action = (*FakeAction)(nil)

// Init records the name.
func (a *FakeAction) Init(_ context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inits++
	if a.initErr != nil {
		return a.initErr
	}
	a.name = name
	return nil
}

// Run validates args and replays the script.
func (a *FakeAction) Run(_ context.Context, args core.Args) (iter.Seq[core.Result], error) {
	if a.validate != nil {
		if err := a.validate(args); err != nil {
			return nil, err
		}
	}
	a.mu.Lock()
	a.lastArg = args
	a.mu.Unlock()
	a.runs.Add(1)
	a.stopped.Store(false)
	return func(yield func(core.Result) bool) {
		for _, r := range a.results {
			a.pulls.Add(1)
			if a.stopped.Load() && !r.IsTerminal() {
				yield(core.Preempted(core.Failure{Action: a.Name(), Reason: "stop requested"}))
				return
			}
			if !yield(r) || r.IsTerminal() {
				return
			}
		}
		for a.forever {
			a.pulls.Add(1)
			if a.stopped.Load() {
				yield(core.Preempted(core.Failure{Action: a.Name(), Reason: "stop requested"}))
				return
			}
			if !yield(core.Running(nil)) {
				return
			}
		}
	}, nil
}

// Stop sets the cancellation flag.
func (a *FakeAction) Stop() {
	a.stops.Add(1)
	a.stopped.Store(true)
}

// Name returns the name passed to Init.
func (a *FakeAction) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Inits returns how often Init was called.
func (a *FakeAction) Inits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inits
}

// Runs returns how often Run returned a sequence.
func (a *FakeAction) Runs() int { return int(a.runs.Load()) }

// Stops returns how often Stop was called.
func (a *FakeAction) Stops() int { return int(a.stops.Load()) }

// Pulls returns how many units of work the sequences performed.
func (a *FakeAction) Pulls() int { return int(a.pulls.Load()) }

// LastArgs returns the arguments of the most recent Run.
func (a *FakeAction) LastArgs() core.Args {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastArg
}
