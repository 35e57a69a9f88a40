package actions

import (
	"context"
	"iter"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/database"
	"github.com/hupe1980/taskmesh/step"
)

// Navigate drives the base through a list of waypoints, one goal per
// waypoint. It backs both the reposition and the move action; they differ
// only in the goal server.
//
// Args:
//   - location: "locations.<name>" (looked up in the database),
//     "waypoints.<frame>" (the origin of frame), a waypoint map
//     {frame, x, y, theta} or a list of waypoint maps
//
// The first waypoint that does not succeed ends the run; its index is
// reported as waypoint_index.
type Navigate struct {
	*step.BaseStep
	server         core.GoalClient
	waypoints      core.ServiceClient[string, []database.Waypoint]
	connectTimeout time.Duration
}

var _ core.Action = (*Navigate)(nil)

// NewNavigate creates an action sending pose goals to server.
func NewNavigate(server core.GoalClient, waypoints core.ServiceClient[string, []database.Waypoint], deps Deps, cfg Config) *Navigate {
	return &Navigate{
		BaseStep:       newBase(deps, cfg),
		server:         server,
		waypoints:      waypoints,
		connectTimeout: cfg.ConnectTimeout,
	}
}

// Init waits for the goal server and the waypoint database.
func (a *Navigate) Init(ctx context.Context, name string) error {
	return a.InitOnce(ctx, name, func(ctx context.Context) error {
		return connectAll(ctx, a.Logger(), a.connectTimeout, a.server, a.waypoints)
	})
}

// Run validates the location and returns the navigation sequence.
func (a *Navigate) Run(ctx context.Context, args core.Args) (iter.Seq[core.Result], error) {
	raw, ok := args.Get("location")
	if !ok {
		return nil, a.InvalidArg("location", nil, "required argument is missing")
	}
	tgt, err := parseTarget(raw)
	if err != nil {
		return nil, a.InvalidArg("location", raw, err.Error())
	}
	if err := a.BeginRun(); err != nil {
		return nil, err
	}

	return func(yield func(core.Result) bool) {
		wps := tgt.waypoints
		if tgt.location != "" {
			if a.Stopped() || ctx.Err() != nil {
				f := a.Failure(a.waypoints.Name())
				f.Goal = tgt.location
				f.Reason = "stop requested"
				yield(core.Preempted(f))
				return
			}
			found, err := step.CallService(ctx, a.BaseStep, a.waypoints, tgt.location)
			if err != nil {
				yield(a.ServiceFailure(a.waypoints.Name(), tgt.location, err))
				return
			}
			wps = found
			if !yield(core.Running(map[string]any{"location": tgt.location, "waypoints": len(wps)})) {
				return
			}
		}

		for i, wp := range wps {
			goal := poseGoal(wp)
			out, ok := a.TrackGoal(ctx, a.server, goal, yield)
			if !ok {
				return
			}
			if !out.Succeeded() {
				res := a.FinishGoal(a.server.Name(), goal, out, nil)
				fields := res.Context()
				fields["waypoint_index"] = i
				yield(core.NewResult(res.Status(), fields))
				return
			}
			a.Logger().Debug("actions.navigate.waypoint_reached", "action", a.Name(), "waypoint_index", i, "frame", wp.Frame)
		}
		yield(core.Succeeded(map[string]any{"waypoints": len(wps)}))
	}, nil
}
