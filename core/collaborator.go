package core

import "context"

// Collaborator is an external service an action delegates work to.
type Collaborator interface {
	// Name identifies the collaborator (e.g. "/reposition").
	Name() string
	// Connect blocks until the collaborator is reachable or ctx ends. The
	// wait may be bounded or unbounded; callers decide whether a failure is
	// fatal.
	Connect(ctx context.Context) error
}

// GoalClient is the adapter contract for goal-based (asynchronous) action
// servers. Apart from Connect, none of the methods block on the goal's
// progress.
type GoalClient interface {
	Collaborator

	// SendGoal fires a request and returns a handle for later polling.
	SendGoal(ctx context.Context, goal any) (GoalHandle, error)

	// Poll returns the current status of the goal.
	Poll(ctx context.Context, h GoalHandle) (GoalStatus, error)

	// Result returns the result payload. It is only meaningful once Poll
	// reported a terminal status; before that it may return nil.
	Result(ctx context.Context, h GoalHandle) (any, error)

	// Cancel requests cancellation. It does not guarantee termination; the
	// eventual terminal status is observed through Poll.
	Cancel(ctx context.Context, h GoalHandle) error
}

// ServiceClient is the adapter contract for request/response
// collaborators. A call is treated as one unit of work that completes
// immediately.
type ServiceClient[Req, Resp any] interface {
	Collaborator

	// Call performs one synchronous request.
	Call(ctx context.Context, req Req) (Resp, error)
}
