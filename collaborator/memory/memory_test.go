package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestGoalServerFollowsScript(t *testing.T) {
	ctx := context.Background()
	s := NewGoalServer("/recognize")
	s.Enqueue(NewScript().Pending().Active(2).Succeeded().Result(map[string]any{"object_idx": 2}))

	h, err := s.SendGoal(ctx, "goal")
	require.NoError(t, err)
	assert.Equal(t, "/recognize", h.Collaborator)

	var seen []core.GoalStatus
	for range 5 {
		st, err := s.Poll(ctx, h)
		require.NoError(t, err)
		seen = append(seen, st)
	}
	assert.Equal(t, []core.GoalStatus{
		core.GoalPending, core.GoalActive, core.GoalActive, core.GoalSucceeded, core.GoalSucceeded,
	}, seen)

	res, err := s.Result(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"object_idx": 2}, res)
	assert.Equal(t, 5, s.Polls(h))
}

func TestGoalServerDefaultScriptAfterQueue(t *testing.T) {
	ctx := context.Background()
	s := NewGoalServer("/move")
	s.Enqueue(NewScript().Aborted())

	h1, _ := s.SendGoal(ctx, 1)
	h2, _ := s.SendGoal(ctx, 2)
	st1, _ := s.Poll(ctx, h1)
	st2, _ := s.Poll(ctx, h2)
	assert.Equal(t, core.GoalAborted, st1)
	assert.Equal(t, core.GoalSucceeded, st2)
	assert.Equal(t, []any{1, 2}, s.Goals())
}

func TestGoalServerCancel(t *testing.T) {
	ctx := context.Background()
	s := NewGoalServer("/move", func(o *GoalServerOptions) { o.Default = NewScript().Active(1) })
	h, _ := s.SendGoal(ctx, "g")
	st, _ := s.Poll(ctx, h)
	assert.Equal(t, core.GoalActive, st)

	require.NoError(t, s.Cancel(ctx, h))
	st, _ = s.Poll(ctx, h)
	assert.Equal(t, core.GoalPreempted, st)
	assert.Equal(t, []core.GoalHandle{h}, s.Cancels())

	ignoring := NewGoalServer("/move", func(o *GoalServerOptions) {
		o.Default = NewScript().Active(1)
		o.HonorCancel = false
	})
	h, _ = ignoring.SendGoal(ctx, "g")
	require.NoError(t, ignoring.Cancel(ctx, h))
	st, _ = ignoring.Poll(ctx, h)
	assert.Equal(t, core.GoalActive, st)
}

func TestGoalServerUnknownGoal(t *testing.T) {
	s := NewGoalServer("/move")
	_, err := s.Poll(context.Background(), core.GoalHandle{ID: "nope"})
	assert.ErrorIs(t, err, core.ErrUnknownGoal)
	assert.ErrorIs(t, s.Cancel(context.Background(), core.GoalHandle{ID: "nope"}), core.ErrUnknownGoal)
}

func TestGoalServerReachability(t *testing.T) {
	s := NewGoalServer("/move", func(o *GoalServerOptions) { o.UnreachableFor = 2 })
	assert.ErrorIs(t, s.Connect(context.Background()), ErrNotReachable)
	assert.ErrorIs(t, s.Connect(context.Background()), ErrNotReachable)
	assert.NoError(t, s.Connect(context.Background()))
}

func TestService(t *testing.T) {
	svc := NewService("/speak", func(_ context.Context, text string) (bool, error) {
		if text == "" {
			return false, errors.New("empty")
		}
		return true, nil
	}).Unreachable(1)

	assert.ErrorIs(t, svc.Connect(context.Background()), ErrNotReachable)
	assert.NoError(t, svc.Connect(context.Background()))

	ok, err := svc.Call(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = svc.Call(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, []string{"hi", ""}, svc.Requests())
}
