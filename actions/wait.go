package actions

import (
	"context"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/step"
)

// maxWaitSeconds is the longest duration a time.Duration can hold.
const maxWaitSeconds = float64(math.MaxInt64) / float64(time.Second)

// Wait sleeps for a duration without any collaborator. Each pull sleeps at
// most one tick, so a stop is observed within a tick.
//
// Args: duration (finite seconds, non-negative).
type Wait struct {
	*step.BaseStep
	tick time.Duration
}

var _ core.Action = (*Wait)(nil)

// NewWait creates the action.
func NewWait(deps Deps, cfg Config) *Wait {
	tick := cfg.WaitTick
	if tick <= 0 {
		tick = DefaultConfig().WaitTick
	}
	return &Wait{BaseStep: newBase(deps, cfg), tick: tick}
}

// Init only records the name.
func (a *Wait) Init(ctx context.Context, name string) error {
	return a.InitOnce(ctx, name, nil)
}

// Run validates the duration and returns the wait sequence.
func (a *Wait) Run(ctx context.Context, args core.Args) (iter.Seq[core.Result], error) {
	secs, err := args.Float("duration")
	if err != nil {
		return nil, a.ArgError(err)
	}
	if secs < 0 {
		return nil, a.InvalidArg("duration", secs, "must not be negative")
	}
	if secs > maxWaitSeconds {
		return nil, a.InvalidArg("duration", secs, fmt.Sprintf("must not exceed %.0f seconds", maxWaitSeconds))
	}
	if err := a.BeginRun(); err != nil {
		return nil, err
	}
	total := time.Duration(secs * float64(time.Second))

	return func(yield func(core.Result) bool) {
		deadline := time.Now().Add(total)
		for {
			if a.Stopped() || ctx.Err() != nil {
				f := a.Failure("")
				f.Reason = "stop requested"
				f.Partial = map[string]any{"remaining": time.Until(deadline).Seconds()}
				yield(core.Preempted(f))
				return
			}
			left := time.Until(deadline)
			if left <= 0 {
				yield(core.Succeeded(nil))
				return
			}
			t := time.NewTimer(min(left, a.tick))
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
			if !yield(core.Running(map[string]any{"remaining": max(time.Until(deadline), 0).Seconds()})) {
				return
			}
		}
	}, nil
}
