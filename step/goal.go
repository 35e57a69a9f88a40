package step

import (
	"context"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// GoalOutcome is what TrackGoal observed for one goal.
type GoalOutcome struct {
	// Handle is zero when the goal was never sent.
	Handle core.GoalHandle
	// Status is the last status reported by Poll.
	Status core.GoalStatus
	// Result is the payload fetched once Status became terminal.
	Result any
	// Preempted is set when the cancellation flag or ctx ended tracking.
	Preempted bool
	// Err holds a transport error from SendGoal, Poll or Result.
	Err error
}

// Succeeded reports whether the collaborator finished the goal successfully
// and tracking was not preempted.
func (o GoalOutcome) Succeeded() bool {
	return !o.Preempted && o.Err == nil && o.Status == core.GoalSucceeded
}

// TrackGoal sends goal to client and polls it once per pull of the enclosing
// sequence, yielding a RUNNING result for every non-terminal poll. It returns
// when the goal is terminal, when the cancellation flag is observed (the goal
// is then canceled and the outcome is Preempted) or when a transport call
// fails. The bool result is false when yield asked to stop; the caller must
// then return without yielding again.
//
// Collaborator statuses are not mapped to action statuses here; see
// FinishGoal.
func (b *BaseStep) TrackGoal(ctx context.Context, client core.GoalClient, goal any, yield func(core.Result) bool) (GoalOutcome, bool) {
	var out GoalOutcome
	if b.Stopped() || ctx.Err() != nil {
		out.Preempted = true
		return out, true
	}

	h, err := client.SendGoal(ctx, goal)
	if err != nil {
		out.Err = err
		return out, true
	}
	out.Handle = h
	b.setInflight(client, h)
	defer b.clearInflight()

	start := time.Now()
	b.notify(core.Notification{Kind: core.NotifyGoalSent, Collaborator: client.Name(), GoalID: h.ID, Payload: goal})
	b.logger.Debug("step.goal.sent", "action", b.Name(), "collaborator", client.Name(), "goal_id", h.ID)

	for {
		if b.Stopped() || ctx.Err() != nil {
			b.cancelInflight()
			out.Preempted = true
			b.logger.Info("step.goal.preempted", "action", b.Name(), "collaborator", client.Name(), "goal_id", h.ID, "goal_status", out.Status.String())
			return out, true
		}

		status, err := client.Poll(ctx, h)
		if err != nil {
			out.Err = err
			return out, true
		}
		out.Status = status

		if status.IsTerminal() {
			res, err := client.Result(ctx, h)
			if err != nil {
				out.Err = err
				return out, true
			}
			out.Result = res
			st := status
			b.notify(core.Notification{Kind: core.NotifyResultReceived, Collaborator: client.Name(), GoalID: h.ID, GoalStatus: &st, Payload: res})
			logging.LogGoal(b.logger, b.Name(), client.Name(), h.ID, status.String(), time.Since(start))
			return out, true
		}

		if !yield(core.Running(map[string]any{
			core.KeyCollaborator: client.Name(),
			core.KeyGoalID:       h.ID,
			core.KeyGoalStatus:   status,
		})) {
			b.cancelInflight()
			return out, false
		}
	}
}

// FinishGoal maps a non-successful outcome onto the terminal result of the
// run. A set cancellation flag always wins: the result is PREEMPTED whatever
// the collaborator reported. Any other terminal status, including a
// collaborator-side PREEMPTED that nobody asked for, is ABORTED.
func (b *BaseStep) FinishGoal(collaborator string, goal any, out GoalOutcome, partial any) core.Result {
	f := b.Failure(collaborator)
	f.Goal = goal
	f.GoalID = out.Handle.ID
	f.GoalStatus = out.Status
	f.Partial = partial
	switch {
	case out.Preempted:
		f.Reason = "stop requested"
		if out.Handle.IsZero() {
			f.Reason = "stop requested before the goal was sent"
		}
		return core.Preempted(f)
	case out.Err != nil:
		f.Reason = out.Err.Error()
	default:
		f.Reason = "goal finished with status " + out.Status.String()
		if out.Result != nil && f.Partial == nil {
			f.Partial = out.Result
		}
	}
	return core.Aborted(f)
}
