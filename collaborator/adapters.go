package collaborator

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
)

// GoalService presents a request/response service as a goal server so that
// actions can drive both shapes through the same goal loop. SendGoal performs
// the call; the first poll already reports the terminal status. Cancel has
// nothing to interrupt and only marks the goal.
type GoalService[Req, Resp any] struct {
	svc core.ServiceClient[Req, Resp]

	mu    sync.Mutex
	goals map[string]*serviceGoal
}

type serviceGoal struct {
	status core.GoalStatus
	result any
}

var _ core.GoalClient = (*GoalService[string, string])(nil)

// GoalFromService wraps svc.
func GoalFromService[Req, Resp any](svc core.ServiceClient[Req, Resp]) *GoalService[Req, Resp] {
	return &GoalService[Req, Resp]{svc: svc, goals: make(map[string]*serviceGoal)}
}

// Name returns the wrapped service's name.
func (g *GoalService[Req, Resp]) Name() string { return g.svc.Name() }

// Connect connects the wrapped service.
func (g *GoalService[Req, Resp]) Connect(ctx context.Context) error { return g.svc.Connect(ctx) }

// SendGoal performs the call. A call error becomes an ABORTED goal whose
// result is the error message; a goal of the wrong type is rejected.
func (g *GoalService[Req, Resp]) SendGoal(ctx context.Context, goal any) (core.GoalHandle, error) {
	req, ok := goal.(Req)
	if !ok {
		return core.GoalHandle{}, fmt.Errorf("%s: goal of type %T not accepted", g.svc.Name(), goal)
	}
	sg := &serviceGoal{status: core.GoalSucceeded}
	resp, err := g.svc.Call(ctx, req)
	if err != nil {
		sg.status = core.GoalAborted
		sg.result = err.Error()
	} else {
		sg.result = resp
	}
	h := core.GoalHandle{ID: util.NewID(), Collaborator: g.svc.Name()}
	g.mu.Lock()
	g.goals[h.ID] = sg
	g.mu.Unlock()
	return h, nil
}

// Poll reports the terminal status of the call.
func (g *GoalService[Req, Resp]) Poll(_ context.Context, h core.GoalHandle) (core.GoalStatus, error) {
	sg, err := g.lookup(h)
	if err != nil {
		return core.GoalLost, err
	}
	return sg.status, nil
}

// Result returns the response, or the error message for a failed call.
func (g *GoalService[Req, Resp]) Result(_ context.Context, h core.GoalHandle) (any, error) {
	sg, err := g.lookup(h)
	if err != nil {
		return nil, err
	}
	return sg.result, nil
}

// Cancel only validates the handle.
func (g *GoalService[Req, Resp]) Cancel(_ context.Context, h core.GoalHandle) error {
	_, err := g.lookup(h)
	return err
}

func (g *GoalService[Req, Resp]) lookup(h core.GoalHandle) (*serviceGoal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sg, ok := g.goals[h.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", g.svc.Name(), core.ErrUnknownGoal, h.ID)
	}
	return sg, nil
}
