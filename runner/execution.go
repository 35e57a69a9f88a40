package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/history"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/step"
)

// ErrClosed is reported by an execution closed before its terminal result.
var ErrClosed = errors.New("execution closed before a terminal result")

// ExecOptions configures one Execution.
type ExecOptions struct {
	// ID identifies the execution; a random id is used when empty.
	ID string
	// Name is the registered action name, used for logging and history.
	Name string
	// PollInterval is the minimum time between two pulls. Zero disables
	// pacing.
	PollInterval time.Duration
	// History receives every result; nil disables recording.
	History history.Store
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Execution drives one run of an action, one result per Next call. It
// enforces that the run ends with exactly one terminal result and that
// nothing is delivered after it.
//
// Next and Close must be called from a single goroutine; Stop may be called
// from any goroutine.
type Execution struct {
	id      string
	name    string
	action  core.Action
	ctx     context.Context
	next    func() (core.Result, bool)
	release func()
	machine *step.Machine
	limiter *rate.Limiter
	history history.Store
	logger  logging.Logger
	started time.Time

	stopOnce sync.Once
	count    int
	done     bool
	err      error
	final    core.Result
}

// Open validates args through the action's Run and prepares the execution.
// Argument and lifecycle errors are returned here, before any collaborator is
// contacted; nothing is recorded for them.
func Open(ctx context.Context, a core.Action, args core.Args, optFns ...func(o *ExecOptions)) (*Execution, error) {
	opts := ExecOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ID == "" {
		opts.ID = util.NewID()
	}
	logger := logging.OrNoOp(opts.Logger)

	seq, err := a.Run(ctx, args)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, &core.ContractError{Action: opts.Name, Reason: "Run returned a nil sequence"}
	}
	if opts.History != nil {
		if err := opts.History.Begin(opts.ID, opts.Name, args); err != nil {
			return nil, fmt.Errorf("record execution %s: %w", opts.ID, err)
		}
	}

	next, release := iter.Pull(seq)
	e := &Execution{
		id:      opts.ID,
		name:    opts.Name,
		action:  a,
		ctx:     ctx,
		next:    next,
		release: release,
		machine: step.NewMachine(opts.Name, logger),
		history: opts.History,
		logger:  logger,
		started: time.Now(),
	}
	if opts.PollInterval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(opts.PollInterval), 1)
	}
	logger.Info("runner.execution.start", "action", opts.Name, "execution_id", opts.ID)
	return e, nil
}

// ID returns the execution id.
func (e *Execution) ID() string { return e.id }

// Name returns the registered action name.
func (e *Execution) Name() string { return e.name }

// Next pulls exactly one result. After the terminal result it returns
// ok=false; a sequence that ran dry without a terminal result ends with
// core.ErrNoTerminalResult.
//
// Once ctx is done the action is asked to stop and Next keeps pulling,
// unpaced, until the action reports its terminal result.
func (e *Execution) Next() (core.Result, bool, error) {
	if e.done {
		return core.Result{}, false, e.err
	}
	e.pace()

	r, ok := e.next()
	if !ok {
		e.finish(fmt.Errorf("action %s: %w", e.name, core.ErrNoTerminalResult))
		return core.Result{}, false, e.err
	}
	if err := e.machine.Observe(e.ctx, r); err != nil {
		e.finish(err)
		return core.Result{}, false, e.err
	}
	e.count++
	if e.history != nil {
		if err := e.history.Append(e.id, r); err != nil {
			e.logger.Warn("runner.history.append_failed", "execution_id", e.id, "error", err.Error())
		}
	}
	if r.IsTerminal() {
		e.final = r
		e.finish(nil)
	}
	return r, true, nil
}

// Stop asks the action to cancel the run. The terminal result still has to
// be pulled through Next.
func (e *Execution) Stop() {
	e.stopOnce.Do(func() {
		e.logger.Info("runner.execution.stop", "action", e.name, "execution_id", e.id)
		e.action.Stop()
	})
}

// Close releases the sequence. Closing an unfinished execution abandons it
// and records ErrClosed.
func (e *Execution) Close() error {
	if e.done {
		return nil
	}
	e.finish(ErrClosed)
	return nil
}

// Done reports whether the execution finished.
func (e *Execution) Done() bool { return e.done }

// Err returns the error the execution finished with, if any.
func (e *Execution) Err() error { return e.err }

// Final returns the terminal result once the execution finished with one.
func (e *Execution) Final() (core.Result, bool) {
	return e.final, e.done && e.err == nil
}

// State returns the per-run state machine state.
func (e *Execution) State() string { return e.machine.State() }

func (e *Execution) pace() {
	if e.ctx.Err() != nil {
		e.Stop()
		return
	}
	if e.limiter == nil {
		return
	}
	if err := e.limiter.Wait(e.ctx); err != nil {
		e.Stop()
	}
}

func (e *Execution) finish(err error) {
	e.done = true
	e.err = err
	e.release()
	if e.history != nil {
		if herr := e.history.Finish(e.id, err); herr != nil {
			e.logger.Warn("runner.history.finish_failed", "execution_id", e.id, "error", herr.Error())
		}
	}
	status := "NONE"
	if err == nil {
		status = e.final.Status().String()
	}
	logging.LogExecution(e.logger, e.name, e.id, e.count, status, time.Since(e.started), err)
}
