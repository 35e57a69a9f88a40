package memory

import "github.com/hupe1980/taskmesh/core"

// Script describes how one goal progresses: the statuses returned by
// successive polls and the result returned once the goal is terminal. The
// last status repeats once the script is exhausted.
//
//	s := memory.NewScript().Pending().Active(2).Succeeded().Result(map[string]any{"object_idx": 2})
type Script struct {
	statuses []core.GoalStatus
	result   any
}

// NewScript creates an empty script. An empty script behaves like a goal that
// stays ACTIVE forever.
func NewScript() *Script { return &Script{} }

// Status appends one status per n (chainable).
func (s *Script) Status(st core.GoalStatus, n int) *Script {
	for range n {
		s.statuses = append(s.statuses, st)
	}
	return s
}

// Pending appends one PENDING poll (chainable).
func (s *Script) Pending() *Script { return s.Status(core.GoalPending, 1) }

// Active appends n ACTIVE polls (chainable).
func (s *Script) Active(n int) *Script { return s.Status(core.GoalActive, n) }

// Succeeded ends the script with SUCCEEDED (chainable).
func (s *Script) Succeeded() *Script { return s.Status(core.GoalSucceeded, 1) }

// Aborted ends the script with ABORTED (chainable).
func (s *Script) Aborted() *Script { return s.Status(core.GoalAborted, 1) }

// Lost ends the script with LOST (chainable).
func (s *Script) Lost() *Script { return s.Status(core.GoalLost, 1) }

// Result sets the payload returned once the goal is terminal (chainable).
func (s *Script) Result(r any) *Script { s.result = r; return s }

// Statuses returns a copy of the scripted statuses.
func (s *Script) Statuses() []core.GoalStatus {
	return append([]core.GoalStatus(nil), s.statuses...)
}

func (s *Script) at(i int) core.GoalStatus {
	if len(s.statuses) == 0 {
		return core.GoalActive
	}
	if i >= len(s.statuses) {
		return s.statuses[len(s.statuses)-1]
	}
	return s.statuses[i]
}
