package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	assert.False(t, StatusRunning.IsTerminal())
	for _, s := range []Status{StatusSucceeded, StatusPreempted, StatusAborted} {
		assert.True(t, s.IsTerminal(), s.String())
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	st, err := ParseStatus(" running ")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, st)
	_, err = ParseStatus("DONE")
	assert.Error(t, err)
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestGoalStatus(t *testing.T) {
	nonTerminal := []GoalStatus{GoalPending, GoalActive, GoalPreempting, GoalRecalling}
	for st := GoalPending; st <= GoalLost; st++ {
		assert.Equal(t, !contains(nonTerminal, st), st.IsTerminal(), st.String())
		parsed, err := ParseGoalStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}

	data, err := json.Marshal(GoalAborted)
	require.NoError(t, err)
	assert.JSONEq(t, `"ABORTED"`, string(data))
	var st GoalStatus
	require.NoError(t, json.Unmarshal([]byte(`"recalled"`), &st))
	assert.Equal(t, GoalRecalled, st)
	assert.Error(t, json.Unmarshal([]byte(`"DONE"`), &st))

	assert.True(t, GoalHandle{}.IsZero())
}

func contains(sts []GoalStatus, st GoalStatus) bool {
	for _, s := range sts {
		if s == st {
			return true
		}
	}
	return false
}

func TestResultIsImmutable(t *testing.T) {
	fields := map[string]any{"object_idx": 2}
	r := Succeeded(fields)
	fields["object_idx"] = 3

	v, ok := r.Value("object_idx")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	ctx := r.Context()
	ctx["object_idx"] = 4
	v, _ = r.Value("object_idx")
	assert.Equal(t, 2, v)
	assert.True(t, r.IsTerminal())
	assert.False(t, Running(nil).IsTerminal())
}

func TestFailureRoundTrip(t *testing.T) {
	f := Failure{
		Action:       "reposition",
		Collaborator: "/reposition",
		Goal:         "locations.table",
		GoalID:       "g1",
		GoalStatus:   GoalAborted,
		Reason:       "goal finished with status ABORTED",
		Partial:      map[string]any{"reached": 1},
		Extra:        map[string]any{"waypoint_index": 1},
	}
	r := Aborted(f)
	assert.Equal(t, StatusAborted, r.Status())
	assert.Equal(t, f, r.Failure())

	fields := Preempted(Failure{Action: "wait", Reason: "stop requested"}).Context()
	assert.Equal(t, map[string]any{KeyAction: "wait", KeyReason: "stop requested"}, fields)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "RUNNING", Running(nil).String())
	assert.Equal(t, "SUCCEEDED(a=1, b=x)", Succeeded(map[string]any{"b": "x", "a": 1}).String())

	data, err := json.Marshal(Succeeded(map[string]any{"object_idx": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"SUCCEEDED","context":{"object_idx":1}}`, string(data))
}

func TestErrors(t *testing.T) {
	ae := &ArgumentError{Action: "speak", Arg: "text", Value: 3, Reason: "expected a string"}
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", ae), ErrInvalidArgument)
	assert.Contains(t, ae.Error(), "action speak")

	cause := errors.New("refused")
	ie := &InitError{Action: "move", Err: &UnreachableError{Collaborator: "/move_base", Err: cause}}
	assert.ErrorIs(t, ie, ErrCollaboratorUnreachable)
	assert.ErrorIs(t, ie, cause)
	assert.Contains(t, ie.Error(), "init action move")

	ce := &ContractError{Action: "x", Reason: "nil instance"}
	assert.Contains(t, ce.Error(), "nil instance")
}
