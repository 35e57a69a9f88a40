package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
)

// ErrNotReachable is returned by Connect while the server is configured as
// unreachable.
var ErrNotReachable = errors.New("memory goal server not reachable")

// GoalServerOptions configures a GoalServer.
type GoalServerOptions struct {
	// Default is used for goals sent while no script is queued.
	Default *Script
	// UnreachableFor makes the first n Connect calls fail. A negative value
	// makes every call fail.
	UnreachableFor int
	// HonorCancel makes a canceled goal report PREEMPTED on its next poll.
	// When false the script keeps running after Cancel.
	HonorCancel bool
}

// GoalServer is an in-process goal-based collaborator driven by scripts. It
// is safe for concurrent use.
type GoalServer struct {
	name string
	opts GoalServerOptions

	mu       sync.Mutex
	queue    []*Script
	goals    map[string]*goalState
	order    []string
	connects int
	cancels  []core.GoalHandle
}

type goalState struct {
	goal     any
	script   *Script
	polls    int
	status   core.GoalStatus
	canceled bool
}

var _ core.GoalClient = (*GoalServer)(nil)

// NewGoalServer creates a server named name. By default every goal succeeds
// on its first poll and cancel requests are honored.
func NewGoalServer(name string, optFns ...func(o *GoalServerOptions)) *GoalServer {
	opts := GoalServerOptions{
		Default:     NewScript().Succeeded(),
		HonorCancel: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Default == nil {
		opts.Default = NewScript()
	}
	return &GoalServer{name: name, opts: opts, goals: make(map[string]*goalState)}
}

// Name returns the collaborator name.
func (s *GoalServer) Name() string { return s.name }

// Enqueue schedules scripts for the next goals, one script per goal in send
// order.
func (s *GoalServer) Enqueue(scripts ...*Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scripts...)
}

// Connect fails while the server is configured as unreachable.
func (s *GoalServer) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.opts.UnreachableFor < 0 || s.connects <= s.opts.UnreachableFor {
		return ErrNotReachable
	}
	return nil
}

// SendGoal records goal and assigns it the next queued script.
func (s *GoalServer) SendGoal(ctx context.Context, goal any) (core.GoalHandle, error) {
	if err := ctx.Err(); err != nil {
		return core.GoalHandle{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	script := s.opts.Default
	if len(s.queue) > 0 {
		script = s.queue[0]
		s.queue = s.queue[1:]
	}
	h := core.GoalHandle{ID: util.NewID(), Collaborator: s.name}
	s.goals[h.ID] = &goalState{goal: goal, script: script, status: core.GoalPending}
	s.order = append(s.order, h.ID)
	return h, nil
}

// Poll advances the goal's script by one step.
func (s *GoalServer) Poll(_ context.Context, h core.GoalHandle) (core.GoalStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.lookup(h)
	if err != nil {
		return core.GoalLost, err
	}
	switch {
	case g.status.IsTerminal():
	case g.canceled && s.opts.HonorCancel:
		g.status = core.GoalPreempted
	default:
		g.status = g.script.at(g.polls)
	}
	g.polls++
	return g.status, nil
}

// Result returns the scripted result once the goal is terminal.
func (s *GoalServer) Result(_ context.Context, h core.GoalHandle) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	if !g.status.IsTerminal() {
		return nil, nil
	}
	return g.script.result, nil
}

// Cancel marks the goal canceled and records the request.
func (s *GoalServer) Cancel(_ context.Context, h core.GoalHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.lookup(h)
	if err != nil {
		return err
	}
	g.canceled = true
	s.cancels = append(s.cancels, h)
	return nil
}

// Goals returns the goals received so far, in send order.
func (s *GoalServer) Goals() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.goals[id].goal)
	}
	return out
}

// Cancels returns the handles Cancel was called with.
func (s *GoalServer) Cancels() []core.GoalHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.GoalHandle(nil), s.cancels...)
}

// Polls returns how often the goal was polled.
func (s *GoalServer) Polls(h core.GoalHandle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.goals[h.ID]; ok {
		return g.polls
	}
	return 0
}

// Connects returns how often Connect was called.
func (s *GoalServer) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

func (s *GoalServer) lookup(h core.GoalHandle) (*goalState, error) {
	g, ok := s.goals[h.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", s.name, core.ErrUnknownGoal, h.ID)
	}
	return g, nil
}
