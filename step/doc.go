// Package step holds the plumbing every action shares.
//
// BaseStep owns the registered name, the init-once guard, the cancellation
// flag and the in-flight goal slot. Concrete actions embed it and build their
// Run sequences from TrackGoal (goal-based collaborators) and CallService
// (request/response collaborators):
//
//	func (a *Dock) Run(ctx context.Context, args core.Args) (iter.Seq[core.Result], error) {
//		goal, err := parseDock(args)
//		if err != nil {
//			return nil, a.ArgError(err)
//		}
//		if err := a.BeginRun(); err != nil {
//			return nil, err
//		}
//		return func(yield func(core.Result) bool) {
//			out, ok := a.TrackGoal(ctx, a.client, goal, yield)
//			if !ok {
//				return
//			}
//			if out.Succeeded() {
//				yield(core.Succeeded(nil))
//				return
//			}
//			yield(a.FinishGoal(a.client.Name(), goal, out, nil))
//		}, nil
//	}
//
// Machine tracks the per-run state machine and Guard enforces that a
// sequence ends with exactly one terminal result.
package step
