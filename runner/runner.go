package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/history"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/registry"
)

// ResultObserver is told about every result the runner delivers.
type ResultObserver interface {
	ObserveResult(action string, r core.Result)
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// PollInterval is the minimum time between two pulls of one execution.
	PollInterval time.Duration
	// History records every execution. Defaults to an in-memory store.
	History history.Store
	// Observers receive every delivered result.
	Observers []ResultObserver
	// Logging services.
	Logger logging.Logger
}

// Runner drives registered actions: it resolves the action by name, opens an
// execution, streams its results and records its history. One execution per
// action name may be in flight at a time. Public methods are safe for
// concurrent use.
type Runner struct {
	registry     *registry.Registry
	pollInterval time.Duration
	history      history.Store
	observers    []ResultObserver
	logger       logging.Logger

	mu     sync.Mutex
	active map[string]*Execution // By execution id
	busy   map[string]string     // Action name to execution id
}

// New constructs a Runner with optional overrides.
func New(reg *registry.Registry, optFns ...func(o *Options)) *Runner {
	opts := Options{
		History: history.NewInMemoryStore(1000),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		registry:     reg,
		pollInterval: opts.PollInterval,
		history:      opts.History,
		observers:    opts.Observers,
		logger:       logging.OrNoOp(opts.Logger),
		active:       make(map[string]*Execution),
		busy:         make(map[string]string),
	}
}

// History returns the execution history store.
func (r *Runner) History() history.Store { return r.history }

// Start begins an asynchronous execution of the named action.
//
// Errors returned directly cover lookup (core.ErrActionNotFound,
// core.ErrActionNotInitialized), core.ErrActionBusy and argument validation
// (*core.ArgumentError). Everything after that is delivered through the
// channels: results in order, at most one pending, then at most one error
// (for example core.ErrNoTerminalResult). Both channels are closed when the
// execution ends.
//
// Cancelling ctx requests Stop; the runner keeps pulling until the action
// reports its terminal result, which is delivered and recorded in the
// history. Callers must drain the results channel until it is closed.
func (r *Runner) Start(ctx context.Context, name string, args core.Args) (string, <-chan core.Result, <-chan error, error) {
	action, err := r.registry.Get(name)
	if err != nil {
		return "", nil, nil, err
	}

	execID := util.NewID()
	r.mu.Lock()
	if other, ok := r.busy[name]; ok {
		r.mu.Unlock()
		return "", nil, nil, fmt.Errorf("%w: %s (execution %s)", core.ErrActionBusy, name, other)
	}
	r.busy[name] = execID
	r.mu.Unlock()

	exec, err := Open(ctx, action, args, func(o *ExecOptions) {
		o.ID = execID
		o.Name = name
		o.PollInterval = r.pollInterval
		o.History = r.history
		o.Logger = r.logger
	})
	if err != nil {
		r.release(name, execID)
		return "", nil, nil, err
	}

	r.mu.Lock()
	r.active[execID] = exec
	r.mu.Unlock()

	resultsCh := make(chan core.Result, 1)
	errorsCh := make(chan error, 1)

	go func() {
		defer func() {
			r.release(name, execID)
			close(resultsCh)
			close(errorsCh)
		}()
		r.drive(ctx, exec, resultsCh, errorsCh)
	}()

	return execID, resultsCh, errorsCh, nil
}

func (r *Runner) drive(ctx context.Context, exec *Execution, resultsCh chan<- core.Result, errorsCh chan<- error) {
	defer func() { _ = exec.Close() }()
	stopped := false
	for {
		res, ok, err := exec.Next()
		if !ok {
			if err != nil {
				errorsCh <- err
			}
			return
		}
		for _, o := range r.observers {
			o.ObserveResult(exec.Name(), res)
		}
		if !stopped && ctx.Err() == nil {
			select {
			case resultsCh <- res:
				continue
			case <-ctx.Done():
			}
		}
		if !stopped {
			stopped = true
			exec.Stop()
			r.logger.Debug("runner.execution.stop_on_cancel", "execution_id", exec.ID(), "action", exec.Name())
		}
		// The consumer drains until close, so the terminal result always arrives.
		resultsCh <- res
	}
}

// RunSync runs the named action to completion and returns every result.
func (r *Runner) RunSync(ctx context.Context, name string, args core.Args) ([]core.Result, error) {
	_, resultsCh, errorsCh, err := r.Start(ctx, name, args)
	if err != nil {
		return nil, err
	}
	var results []core.Result
	for res := range resultsCh {
		results = append(results, res)
	}
	if err := <-errorsCh; err != nil {
		return results, err
	}
	return results, nil
}

// Stop requests cancellation of a running execution. The execution still
// delivers its terminal result.
func (r *Runner) Stop(execID string) error {
	r.mu.Lock()
	exec, ok := r.active[execID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrExecutionNotFound, execID)
	}
	exec.Stop()
	return nil
}

// StopAction requests cancellation of the execution in flight for the named
// action, if any.
func (r *Runner) StopAction(name string) error {
	r.mu.Lock()
	execID, ok := r.busy[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no execution in flight for %s", core.ErrExecutionNotFound, name)
	}
	err := r.Stop(execID)
	if errors.Is(err, core.ErrExecutionNotFound) {
		return nil
	}
	return err
}

// Active returns the ids of executions in flight.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

func (r *Runner) release(name, execID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, execID)
	if r.busy[name] == execID {
		delete(r.busy, name)
	}
}
