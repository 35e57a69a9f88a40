package taskmesh

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/actions"
	"github.com/hupe1980/taskmesh/collaborator/memory"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/testutil"
	"github.com/hupe1980/taskmesh/notify"
	"github.com/hupe1980/taskmesh/registry"
)

func newMesh(t *testing.T, speech *memory.GoalServer, rec *notify.Recorder) *TaskMesh {
	t.Helper()
	m, err := New(func(o *Options) {
		o.Deps = actions.Deps{Speech: speech}
		o.ActionConfig.Enabled = []string{actions.SpeakName, actions.WaitName}
		o.ActionConfig.WaitTick = time.Millisecond
		o.ActionConfig.ConnectTimeout = time.Second
		o.Notifier = rec
	})
	require.NoError(t, err)
	require.NoError(t, m.Init(context.Background()))
	return m
}

func TestRunSyncThroughFacade(t *testing.T) {
	speech := memory.NewGoalServer(actions.SpeechServer)
	speech.Enqueue(memory.NewScript().Pending().Active(1).Succeeded())
	rec := &notify.Recorder{}
	m := newMesh(t, speech, rec)

	rs, err := m.RunSync(context.Background(), actions.SpeakName, core.Args{"text": "ready"})
	require.NoError(t, err)
	assert.Equal(t, testutil.Running(2, core.StatusSucceeded), testutil.Statuses(rs))
	assert.Equal(t, []core.NotificationKind{core.NotifyGoalSent, core.NotifyResultReceived}, rec.Kinds())

	assert.Equal(t, []string{actions.SpeakName, actions.WaitName}, m.Registry().Names())
	assert.Len(t, m.History().List(actions.SpeakName), 1)
	require.NoError(t, m.Close())
}

func TestRunPullsGuardedSequence(t *testing.T) {
	speech := memory.NewGoalServer(actions.SpeechServer)
	speech.Enqueue(memory.NewScript().Active(1))
	m := newMesh(t, speech, &notify.Recorder{})

	seq, err := m.Run(context.Background(), actions.SpeakName, core.Args{"text": "hold on"})
	require.NoError(t, err)
	next, stop := iter.Pull(seq)
	defer stop()

	r, ok := next()
	require.True(t, ok)
	assert.Equal(t, core.StatusRunning, r.Status())

	require.NoError(t, m.StopAction(actions.SpeakName))
	r, ok = next()
	require.True(t, ok)
	assert.Equal(t, core.StatusPreempted, r.Status())
	_, ok = next()
	assert.False(t, ok)
	assert.Len(t, speech.Cancels(), 1)
}

func TestFacadeErrors(t *testing.T) {
	m := newMesh(t, memory.NewGoalServer(actions.SpeechServer), &notify.Recorder{})

	_, err := m.Run(context.Background(), "fly", nil)
	assert.ErrorIs(t, err, core.ErrActionNotFound)
	assert.ErrorIs(t, m.StopAction("fly"), core.ErrActionNotFound)

	_, err = m.Run(context.Background(), actions.SpeakName, core.Args{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = m.Action(actions.WaitName)
	assert.NoError(t, err)
	assert.NoError(t, m.StopAction(actions.WaitName))
}

func TestInitNamesFailingAction(t *testing.T) {
	speech := memory.NewGoalServer(actions.SpeechServer, func(o *memory.GoalServerOptions) { o.UnreachableFor = -1 })
	m, err := New(func(o *Options) {
		o.Deps = actions.Deps{Speech: speech}
		o.ActionConfig.Enabled = []string{actions.SpeakName}
		o.ActionConfig.ConnectTimeout = 20 * time.Millisecond
	})
	require.NoError(t, err)

	err = m.Init(context.Background())
	var ie *core.InitError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, actions.SpeakName, ie.Action)
	assert.ErrorIs(t, err, core.ErrCollaboratorUnreachable)

	_, err = m.Action(actions.SpeakName)
	assert.ErrorIs(t, err, core.ErrActionNotInitialized)
}

func TestNewWithCustomEntries(t *testing.T) {
	fake := testutil.NewActionBuilder().Running(1).Then(core.Succeeded(nil)).Build()
	m, err := New(func(o *Options) {
		o.Entries = []registry.Entry{{Name: "fake", New: func() core.Action { return fake }}}
	})
	require.NoError(t, err)
	require.NoError(t, m.Init(context.Background()))

	rs, err := m.RunSync(context.Background(), "fake", nil)
	require.NoError(t, err)
	assert.Equal(t, testutil.Running(1, core.StatusSucceeded), testutil.Statuses(rs))

	_, err = New(func(o *Options) {
		o.Entries = []registry.Entry{{Name: "a", New: func() core.Action { return fake }}, {Name: "a", New: func() core.Action { return fake }}}
	})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`
waypoints:
  table:
    - {frame: map, x: 1.0}
    - {frame: map, x: 2.0}
`), 0o600))

	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Database.Path = "file:" + filepath.Join(dir, "tasks.db")
	cfg.Database.Seed = seedPath
	cfg.Actions.Enabled = []string{actions.RepositionName, actions.WaitName}
	cfg.Actions.ConnectTimeout = time.Second
	cfg.Runner.PollInterval = 0

	reposition := memory.NewGoalServer(actions.RepositionServer)
	rec := &notify.Recorder{}
	m, err := FromConfig(context.Background(), cfg, actions.Deps{Reposition: reposition, Notifier: rec})
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Close()) }()
	require.NoError(t, m.Init(context.Background()))

	rs, err := m.RunSync(context.Background(), actions.RepositionName, core.Args{"location": "locations.table"})
	require.NoError(t, err)
	assert.Equal(t, testutil.Running(1, core.StatusSucceeded), testutil.Statuses(rs))
	assert.Len(t, reposition.Goals(), 2)
	assert.Contains(t, rec.Kinds(), core.NotifyServiceCalled)

	goal := reposition.Goals()[1].(actions.PoseGoal)
	assert.Equal(t, 2.0, goal.X)

	_, err = FromConfig(context.Background(), cfg, actions.Deps{})
	assert.Error(t, err)
}

func TestFromConfigRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Backend = "syslog"
	_, err := FromConfig(context.Background(), cfg, actions.Deps{})
	assert.Error(t, err)
}

func TestNewLoggerBackends(t *testing.T) {
	for _, backend := range []string{"slog", "zap"} {
		l, flush, err := NewLogger(config.LogConfig{Level: "debug", Format: "text", Backend: backend})
		require.NoError(t, err, backend)
		l.Debug("taskmesh.logger.ready", "backend", backend)
		assert.NoError(t, flush())
	}
}

