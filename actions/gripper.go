package actions

import (
	"context"
	"iter"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/step"
)

// Gripper positions in meters of finger separation.
const (
	GripperOpenPosition   = 0.1
	GripperClosedPosition = 0.0
	// DefaultMaxEffort is used when the run omits max_effort.
	DefaultMaxEffort = 100.0
)

// GripperGoal is sent to the gripper controller.
type GripperGoal struct {
	Position  float64 `json:"position"`
	MaxEffort float64 `json:"max_effort"`
}

// Gripper opens or closes the gripper.
//
// Args:
//   - command: "open" or "close"
//   - max_effort: optional non-negative effort
type Gripper struct {
	*step.BaseStep
	server         core.GoalClient
	connectTimeout time.Duration
}

var _ core.Action = (*Gripper)(nil)

// NewGripper creates the action.
func NewGripper(deps Deps, cfg Config) *Gripper {
	return &Gripper{BaseStep: newBase(deps, cfg), server: deps.Gripper, connectTimeout: cfg.ConnectTimeout}
}

// Init waits for the gripper controller.
func (a *Gripper) Init(ctx context.Context, name string) error {
	return a.InitOnce(ctx, name, func(ctx context.Context) error {
		return connectAll(ctx, a.Logger(), a.connectTimeout, a.server)
	})
}

// Run validates the command and returns the gripper sequence.
func (a *Gripper) Run(ctx context.Context, args core.Args) (iter.Seq[core.Result], error) {
	cmd, err := args.String("command")
	if err != nil {
		return nil, a.ArgError(err)
	}
	var goal GripperGoal
	switch cmd {
	case "open":
		goal.Position = GripperOpenPosition
	case "close":
		goal.Position = GripperClosedPosition
	default:
		return nil, a.InvalidArg("command", cmd, `expected "open" or "close"`)
	}
	if goal.MaxEffort, err = args.FloatOr("max_effort", DefaultMaxEffort); err != nil {
		return nil, a.ArgError(err)
	}
	if goal.MaxEffort < 0 {
		return nil, a.InvalidArg("max_effort", goal.MaxEffort, "must not be negative")
	}
	if err := a.BeginRun(); err != nil {
		return nil, err
	}
	return func(yield func(core.Result) bool) {
		out, ok := a.TrackGoal(ctx, a.server, goal, yield)
		if !ok {
			return
		}
		if out.Succeeded() {
			yield(core.Succeeded(map[string]any{"position": goal.Position}))
			return
		}
		yield(a.FinishGoal(a.server.Name(), goal, out, nil))
	}, nil
}
