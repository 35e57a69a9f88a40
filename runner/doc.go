// Package runner drives action executions.
//
// An Execution pulls one result at a time from an action's sequence, paces
// the pulls, validates every result against the per-run state machine and
// records it in the history. It guarantees that a run ends with exactly one
// terminal result: a sequence that runs dry without one is reported as
// core.ErrNoTerminalResult, and nothing after the terminal result is ever
// delivered.
//
// The Runner resolves actions from a registry, allows one execution per
// action name at a time and streams results over a channel:
//
//	id, results, errs, err := r.Start(ctx, "reposition", core.Args{"location": "waypoints.table"})
//	if err != nil {
//	    return err // lookup, busy or invalid argument
//	}
//	for res := range results {
//	    fmt.Println(res)
//	}
//	if err := <-errs; err != nil {
//	    return err
//	}
//	_ = id
//
// Stop(id) requests cancellation; the action still reports PREEMPTED through
// the result channel.
package runner
