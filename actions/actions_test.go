package actions

import (
	"context"
	"errors"
	"iter"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/collaborator/memory"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/database"
	"github.com/hupe1980/taskmesh/internal/testutil"
)

type fixture struct {
	deps       Deps
	store      *database.Store
	reposition *memory.GoalServer
	moveBase   *memory.GoalServer
	speech     *memory.GoalServer
	gripper    *memory.GoalServer
	recognizer *memory.Service[RecognizeRequest, []float64]
}

func newFixture(t *testing.T, classes []float64) *fixture {
	t.Helper()
	store, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:      store,
		reposition: memory.NewGoalServer(RepositionServer),
		moveBase:   memory.NewGoalServer(MoveBaseServer),
		speech:     memory.NewGoalServer(SpeechServer),
		gripper:    memory.NewGoalServer(GripperServer),
		recognizer: memory.NewService(RecognizeObjectService, func(_ context.Context, _ RecognizeRequest) ([]float64, error) {
			return classes, nil
		}),
	}
	f.deps = Deps{
		Reposition:        f.reposition,
		MoveBase:          f.moveBase,
		Speech:            f.speech,
		Gripper:           f.gripper,
		Recognizer:        f.recognizer,
		Waypoints:         store.WaypointsClient(),
		Beliefs:           store.BeliefsClient(),
		PartsAtLocation:   store.PartsAtLocationClient(),
		SemanticLocations: store.SemanticLocationsClient(),
	}
	return f
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = time.Second
	cfg.WaitTick = time.Millisecond
	return cfg
}

func initAction[A core.Action](t *testing.T, a A, name string) A {
	t.Helper()
	require.NoError(t, a.Init(context.Background(), name))
	return a
}

func run(t *testing.T, a core.Action, args core.Args) []core.Result {
	t.Helper()
	seq, err := a.Run(context.Background(), args)
	require.NoError(t, err)
	return testutil.Collect(seq)
}

func last(rs []core.Result) core.Result { return rs[len(rs)-1] }

func TestDefaultEntries(t *testing.T) {
	f := newFixture(t, nil)

	entries, err := Default(f.deps, testConfig())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
		assert.NotNil(t, e.New())
	}
	assert.Equal(t, Names(), names)

	cfg := testConfig()
	cfg.Enabled = []string{WaitName, SpeakName}
	entries, err = Default(Deps{Speech: f.speech}, cfg)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, SpeakName, entries[0].Name)
	assert.Equal(t, WaitName, entries[1].Name)

	cfg.Enabled = []string{"fly"}
	_, err = Default(f.deps, cfg)
	assert.ErrorIs(t, err, core.ErrActionNotFound)

	cfg.Enabled = []string{GripperName}
	_, err = Default(Deps{}, cfg)
	assert.Error(t, err)

	cfg.Enabled = []string{RecognizeObjectName}
	cfg.UseBelief = true
	_, err = Default(Deps{Recognizer: f.recognizer}, cfg)
	assert.Error(t, err)
}

func TestInitFailsForUnreachableCollaborator(t *testing.T) {
	server := memory.NewGoalServer(SpeechServer, func(o *memory.GoalServerOptions) { o.UnreachableFor = -1 })
	cfg := testConfig()
	cfg.ConnectTimeout = 20 * time.Millisecond
	a := NewSpeak(Deps{Speech: server}, cfg)

	err := a.Init(context.Background(), SpeakName)
	assert.ErrorIs(t, err, core.ErrCollaboratorUnreachable)
	assert.False(t, a.Initialized())
}

func TestRecognizeObjectPicksBestRow(t *testing.T) {
	classes := []float64{
		0.1, 0.1, 0.1, 0.2, 0.4, 0.1,
		0.0, 0.0, 0.1, 0.8, 0.1, 0.0,
		0.3, 0.3, 0.1, 0.1, 0.1, 0.1,
	}
	f := newFixture(t, classes)
	a := initAction(t, NewRecognizeObject(f.deps, testConfig()), RecognizeObjectName)

	rs := run(t, a, core.Args{"desired_obj": "small_gear", "segmented_objects": []string{"a", "b", "c"}})
	assert.Equal(t, testutil.Running(1, core.StatusSucceeded), testutil.Statuses(rs))
	idx, _ := last(rs).Value("object_idx")
	assert.Equal(t, 1, idx)

	rs = run(t, a, core.Args{"desired_obj": Bolt, "segmented_objects": []any{"a", "b", "c"}})
	idx, _ = last(rs).Value("object_idx")
	assert.Equal(t, 0, idx)

	reqs := f.recognizer.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Clouds, 3)
}

func TestRecognizeObjectRejectsArguments(t *testing.T) {
	f := newFixture(t, nil)
	a := initAction(t, NewRecognizeObject(f.deps, testConfig()), RecognizeObjectName)

	for _, args := range []core.Args{
		{"segmented_objects": []any{"a"}},
		{"desired_obj": "WRENCH", "segmented_objects": []any{"a"}},
		{"desired_obj": 9, "segmented_objects": []any{"a"}},
		{"desired_obj": 1, "segmented_objects": []any{"a"}},
		{"desired_obj": float64(Bolt), "segmented_objects": []any{"a"}},
		{"desired_obj": ChallengeObject(7), "segmented_objects": []any{"a"}},
		{"desired_obj": "BOLT"},
		{"desired_obj": "BOLT", "segmented_objects": []any{}},
		{"desired_obj": "BOLT", "segmented_objects": "a"},
	} {
		seq, err := a.Run(context.Background(), args)
		assert.ErrorIs(t, err, core.ErrInvalidArgument, "%v", args)
		assert.Nil(t, seq)
	}
	assert.Empty(t, f.recognizer.Requests())
}

func TestRecognizeObjectMalformedClassification(t *testing.T) {
	f := newFixture(t, []float64{0.1, 0.2})
	a := initAction(t, NewRecognizeObject(f.deps, testConfig()), RecognizeObjectName)

	rs := run(t, a, core.Args{"desired_obj": "BOLT", "segmented_objects": []any{"a"}})
	assert.Equal(t, core.StatusAborted, last(rs).Status())
	assert.Equal(t, []float64{0.1, 0.2}, last(rs).Failure().Partial)
}

func TestRecognizeObjectServiceFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.deps.Recognizer = memory.NewService(RecognizeObjectService, func(context.Context, RecognizeRequest) ([]float64, error) {
		return nil, errors.New("no model loaded")
	})
	a := initAction(t, NewRecognizeObject(f.deps, testConfig()), RecognizeObjectName)

	rs := run(t, a, core.Args{"desired_obj": "BOLT", "segmented_objects": []any{"a"}})
	require.Len(t, rs, 1)
	fl := rs[0].Failure()
	assert.Equal(t, core.StatusAborted, rs[0].Status())
	assert.Equal(t, RecognizeObjectService, fl.Collaborator)
	assert.Equal(t, "no model loaded", fl.Reason)
	assert.Equal(t, "BOLT", fl.Goal)
}

func TestRecognizeObjectUsesBeliefs(t *testing.T) {
	ctx := context.Background()
	classes := []float64{0, 0, 0, 0, 1, 0}
	f := newFixture(t, classes)
	require.NoError(t, f.store.PutPartsAtLocation(ctx, "table", []string{"BOLT", "LARGE_GEAR"}))
	require.NoError(t, f.store.PutPartsAtLocation(ctx, "shelf", []string{"SMALL_GEAR"}))
	require.NoError(t, f.store.SetBelief(ctx, "robot_at_shelf", 0))
	require.NoError(t, f.store.SetBelief(ctx, "ROBOT_AT_TABLE", 1))
	require.NoError(t, f.store.SetBelief(ctx, "robot_at_table", 1))

	cfg := testConfig()
	cfg.UseBelief = true
	a := initAction(t, NewRecognizeObject(f.deps, cfg), RecognizeObjectName)

	rs := run(t, a, core.Args{"desired_obj": "SMALL_GEAR", "segmented_objects": []any{"a"}})
	require.Len(t, rs, 1)
	assert.Equal(t, core.StatusAborted, rs[0].Status())
	fl := rs[0].Failure()
	assert.Equal(t, RecognizeObjectName, fl.Action)
	assert.Equal(t, "SMALL_GEAR", fl.Goal)
	assert.Equal(t, "table", fl.Extra["location"])
	assert.Empty(t, f.recognizer.Requests())

	rs = run(t, a, core.Args{"desired_obj": "BOLT", "segmented_objects": []any{"a"}})
	assert.Equal(t, testutil.Running(2, core.StatusSucceeded), testutil.Statuses(rs))
	loc, _ := rs[0].Value("location")
	assert.Equal(t, "table", loc)
}

func TestRecognizeObjectStopKeepsClassification(t *testing.T) {
	classes := []float64{0, 0, 0, 0, 1, 0}
	f := newFixture(t, classes)
	a := initAction(t, NewRecognizeObject(f.deps, testConfig()), RecognizeObjectName)

	seq, err := a.Run(context.Background(), core.Args{"desired_obj": "BOLT", "segmented_objects": []any{"a"}})
	require.NoError(t, err)
	next, stop := iter.Pull(seq)
	defer stop()

	r, ok := next()
	require.True(t, ok)
	assert.Equal(t, core.StatusRunning, r.Status())
	a.Stop()

	r, ok = next()
	require.True(t, ok)
	assert.Equal(t, core.StatusPreempted, r.Status())
	assert.Equal(t, classes, r.Failure().Partial)

	_, ok = next()
	assert.False(t, ok)
}

func TestNavigateSendsOneGoalPerWaypoint(t *testing.T) {
	f := newFixture(t, nil)
	a := initAction(t, NewNavigate(f.reposition, f.deps.Waypoints, f.deps, testConfig()), RepositionName)

	rs := run(t, a, core.Args{"location": []any{
		map[string]any{"frame": "map", "x": 1.0, "y": 2.0, "theta": math.Pi},
		map[string]any{"frame": "table"},
	}})
	assert.Equal(t, []core.Status{core.StatusSucceeded}, testutil.Statuses(rs))
	n, _ := rs[0].Value("waypoints")
	assert.Equal(t, 2, n)

	goals := f.reposition.Goals()
	require.Len(t, goals, 2)
	g0 := goals[0].(PoseGoal)
	assert.Equal(t, "map", g0.Frame)
	assert.Equal(t, 1.0, g0.X)
	assert.InDelta(t, 1.0, g0.Orientation.Z, 1e-9)
	assert.InDelta(t, 0.0, g0.Orientation.W, 1e-9)
	g1 := goals[1].(PoseGoal)
	assert.Equal(t, PoseGoal{Frame: "table", Orientation: Quaternion{W: 1}}, g1)
}

func TestNavigateLooksUpLocations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.store.PutWaypoints(ctx, "table", []database.Waypoint{
		{Frame: "map", X: 1}, {Frame: "map", X: 2}, {Frame: "map", X: 3},
	}))
	a := initAction(t, NewNavigate(f.moveBase, f.deps.Waypoints, f.deps, testConfig()), MoveName)

	rs := run(t, a, core.Args{"location": "locations.table"})
	assert.Equal(t, testutil.Running(1, core.StatusSucceeded), testutil.Statuses(rs))
	assert.Len(t, f.moveBase.Goals(), 3)

	rs = run(t, a, core.Args{"location": "locations.kitchen"})
	require.Len(t, rs, 1)
	assert.Equal(t, core.StatusAborted, rs[0].Status())
	assert.Contains(t, rs[0].Failure().Reason, "location not found")
	assert.Len(t, f.moveBase.Goals(), 3)
}

func TestNavigateStopsAtFirstFailedWaypoint(t *testing.T) {
	f := newFixture(t, nil)
	f.reposition.Enqueue(
		memory.NewScript().Active(1).Succeeded(),
		memory.NewScript().Pending().Aborted().Result(map[string]any{"error": "blocked"}),
	)
	a := initAction(t, NewNavigate(f.reposition, f.deps.Waypoints, f.deps, testConfig()), RepositionName)

	rs := run(t, a, core.Args{"location": []any{
		map[string]any{"frame": "map", "x": 1.0},
		map[string]any{"frame": "map", "x": 2.0},
		map[string]any{"frame": "map", "x": 3.0},
	}})
	assert.Equal(t, testutil.Running(2, core.StatusAborted), testutil.Statuses(rs))
	final := last(rs)
	idx, _ := final.Value("waypoint_index")
	assert.Equal(t, 1, idx)
	fl := final.Failure()
	assert.Equal(t, RepositionServer, fl.Collaborator)
	assert.Equal(t, core.GoalAborted, fl.GoalStatus)
	assert.Equal(t, map[string]any{"error": "blocked"}, fl.Partial)
	assert.Len(t, f.reposition.Goals(), 2)
}

func TestNavigateStopCancelsActiveGoal(t *testing.T) {
	f := newFixture(t, nil)
	f.moveBase.Enqueue(memory.NewScript().Active(1))
	a := initAction(t, NewNavigate(f.moveBase, f.deps.Waypoints, f.deps, testConfig()), MoveName)

	seq, err := a.Run(context.Background(), core.Args{"location": "waypoints.dock"})
	require.NoError(t, err)
	next, stop := iter.Pull(seq)
	defer stop()

	r, ok := next()
	require.True(t, ok)
	assert.Equal(t, core.StatusRunning, r.Status())

	a.Stop()
	a.Stop()
	assert.Len(t, f.moveBase.Cancels(), 1)

	r, ok = next()
	require.True(t, ok)
	assert.Equal(t, core.StatusPreempted, r.Status())
	idx, _ := r.Value("waypoint_index")
	assert.Equal(t, 0, idx)
}

func TestNavigateRejectsBadLocation(t *testing.T) {
	f := newFixture(t, nil)
	a := initAction(t, NewNavigate(f.reposition, f.deps.Waypoints, f.deps, testConfig()), RepositionName)

	for _, loc := range []any{
		"kitchen", "locations.", 42, []any{}, []any{"x"}, map[string]any{"x": 1.0},
		map[string]any{"frame": "map", "x": math.NaN()},
		map[string]any{"frame": "map", "y": math.Inf(1)},
		map[string]any{"frame": "map", "theta": math.Inf(-1)},
		[]any{map[string]any{"frame": "map"}, map[string]any{"frame": "map", "x": math.NaN()}},
		database.Waypoint{Frame: "map", X: math.NaN()},
		[]database.Waypoint{{Frame: "map", Theta: math.Inf(1)}},
		database.Waypoint{X: 1},
	} {
		_, err := a.Run(context.Background(), core.Args{"location": loc})
		assert.ErrorIs(t, err, core.ErrInvalidArgument, "%v", loc)
	}
	_, err := a.Run(context.Background(), core.Args{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Empty(t, f.reposition.Goals())
}

func TestSpeak(t *testing.T) {
	f := newFixture(t, nil)
	a := initAction(t, NewSpeak(f.deps, testConfig()), SpeakName)

	rs := run(t, a, core.Args{"text": "hello"})
	assert.Equal(t, []core.Status{core.StatusSucceeded}, testutil.Statuses(rs))
	assert.Equal(t, []any{SpeechGoal{Text: "hello"}}, f.speech.Goals())

	_, err := a.Run(context.Background(), core.Args{"text": "  "})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestGripper(t *testing.T) {
	f := newFixture(t, nil)
	f.gripper.Enqueue(memory.NewScript().Lost())
	a := initAction(t, NewGripper(f.deps, testConfig()), GripperName)

	rs := run(t, a, core.Args{"command": "open"})
	assert.Equal(t, core.StatusAborted, last(rs).Status())
	assert.Equal(t, core.GoalLost, last(rs).Failure().GoalStatus)

	rs = run(t, a, core.Args{"command": "close", "max_effort": 40})
	assert.Equal(t, core.StatusSucceeded, last(rs).Status())
	goals := f.gripper.Goals()
	require.Len(t, goals, 2)
	assert.Equal(t, GripperGoal{Position: GripperOpenPosition, MaxEffort: DefaultMaxEffort}, goals[0])
	assert.Equal(t, GripperGoal{Position: GripperClosedPosition, MaxEffort: 40}, goals[1])

	for _, args := range []core.Args{{"command": "wave"}, {"command": "open", "max_effort": -1}, {}} {
		_, err := a.Run(context.Background(), args)
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	}
}

func TestWait(t *testing.T) {
	a := initAction(t, NewWait(Deps{}, testConfig()), WaitName)

	rs := run(t, a, core.Args{"duration": 0})
	assert.Equal(t, []core.Status{core.StatusSucceeded}, testutil.Statuses(rs))

	rs = run(t, a, core.Args{"duration": 0.005})
	assert.Equal(t, core.StatusSucceeded, last(rs).Status())
	assert.GreaterOrEqual(t, len(rs), 2)

	seq, err := a.Run(context.Background(), core.Args{"duration": 60})
	require.NoError(t, err)
	next, stop := iter.Pull(seq)
	defer stop()
	r, ok := next()
	require.True(t, ok)
	assert.Equal(t, core.StatusRunning, r.Status())
	a.Stop()
	r, ok = next()
	require.True(t, ok)
	assert.Equal(t, core.StatusPreempted, r.Status())

	_, err = a.Run(context.Background(), core.Args{"duration": -1})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestWaitRejectsDurations(t *testing.T) {
	a := initAction(t, NewWait(Deps{}, testConfig()), WaitName)

	tests := []struct {
		name     string
		duration any
	}{
		{"negative", -1.0},
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
		{"overflows duration", 1e300},
		{"just past the limit", maxWaitSeconds * 2},
		{"not a number", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := a.Run(context.Background(), core.Args{"duration": tt.duration})
			assert.Nil(t, seq)
			var argErr *core.ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, "duration", argErr.Arg)
		})
	}
}

func TestWaitPreemptedByContext(t *testing.T) {
	a := initAction(t, NewWait(Deps{}, testConfig()), WaitName)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seq, err := a.Run(ctx, core.Args{"duration": 60})
	require.NoError(t, err)
	rs := testutil.Collect(seq)
	assert.Equal(t, []core.Status{core.StatusPreempted}, testutil.Statuses(rs))
}
