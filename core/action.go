package core

import (
	"context"
	"iter"
)

// Action defines the lifecycle every action type must implement so that a
// planner can compose heterogeneous actions uniformly.
//
// Implementations must:
//   - Validate arguments in Run before returning the sequence and before any
//     collaborator is contacted
//   - Perform at most one unit of non-blocking work per pull of the sequence
//     and yield exactly one Result for it
//   - Observe the cancellation requested through Stop at every suspension
//     point and end with a Preempted result when it is set
//   - End every sequence with exactly one terminal result and never yield
//     after it
type Action interface {
	// Init wires collaborators and blocks until each is reachable. It is
	// called exactly once, with the name the action is registered under.
	Init(ctx context.Context, name string) error

	// Run starts one independent execution. The returned error covers
	// argument validation and lifecycle misuse; everything that happens after
	// that is reported through the sequence.
	Run(ctx context.Context, args Args) (iter.Seq[Result], error)

	// Stop requests cancellation of the most recent run. It is safe to call
	// from another goroutine and when nothing is in flight.
	Stop()
}
