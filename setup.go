package taskmesh

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hupe1980/taskmesh/actions"
	"github.com/hupe1980/taskmesh/collaborator/redisgoal"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/database"
	"github.com/hupe1980/taskmesh/history"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/notify"
	"github.com/hupe1980/taskmesh/runner"
)

// FromConfig builds a TaskMesh from configuration. It opens the task
// database (and applies its seed), connects the goal servers missing from
// deps over Redis when configured, and installs logging and metrics. Call
// Close to release them.
func FromConfig(ctx context.Context, cfg *config.Config, deps actions.Deps, optFns ...func(o *Options)) (*TaskMesh, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, syncLog, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	closers := []func() error{syncLog}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	store, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, store.Close)
	if cfg.Database.Seed != "" {
		seed, err := database.LoadSeed(cfg.Database.Seed)
		if err == nil {
			err = store.Apply(ctx, seed)
		}
		if err != nil {
			closeAll()
			return nil, err
		}
	}
	if deps.Waypoints == nil {
		deps.Waypoints = store.WaypointsClient()
	}
	if deps.Beliefs == nil {
		deps.Beliefs = store.BeliefsClient()
	}
	if deps.PartsAtLocation == nil {
		deps.PartsAtLocation = store.PartsAtLocationClient()
	}
	if deps.SemanticLocations == nil {
		deps.SemanticLocations = store.SemanticLocationsClient()
	}

	if cfg.Redis.Addr != "" {
		rdb := redisgoal.Dial(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		closers = append(closers, rdb.Close)
		client := func(name string) core.GoalClient {
			return redisgoal.NewClient(rdb, name, func(o *redisgoal.Options) {
				o.Prefix = cfg.Redis.Prefix
				o.TTL = cfg.Redis.TTL
				o.Logger = logger
			})
		}
		if deps.Reposition == nil {
			deps.Reposition = client(actions.RepositionServer)
		}
		if deps.MoveBase == nil {
			deps.MoveBase = client(actions.MoveBaseServer)
		}
		if deps.Speech == nil {
			deps.Speech = client(actions.SpeechServer)
		}
		if deps.Gripper == nil {
			deps.Gripper = client(actions.GripperServer)
		}
	}

	notifiers := notify.Multi{notify.NewLog(logger)}
	if deps.Notifier != nil {
		notifiers = append(notifiers, deps.Notifier)
	}
	var observers []runner.ResultObserver
	if cfg.Metrics.Enabled {
		m := notify.NewMetrics(func(o *notify.MetricsOptions) { o.Namespace = cfg.Metrics.Namespace })
		notifiers = append(notifiers, m)
		observers = append(observers, m)
	}
	deps.Notifier = notifiers
	deps.Logger = logger

	ac := actions.Config{
		UseBelief:      cfg.Actions.UseBelief,
		ConnectTimeout: cfg.Actions.ConnectTimeout,
		CancelTimeout:  cfg.Actions.CancelTimeout,
		WaitTick:       cfg.Actions.WaitTick,
		Enabled:        cfg.Actions.Enabled,
	}
	fns := append([]func(o *Options){func(o *Options) {
		o.Deps = deps
		o.ActionConfig = ac
		o.PollInterval = cfg.Runner.PollInterval
		o.History = history.NewInMemoryStore(cfg.Runner.HistoryLimit)
		o.Observers = observers
		o.Logger = logger
	}}, optFns...)

	m, err := New(fns...)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("build taskmesh: %w", err)
	}
	m.closers = closers
	return m, nil
}

// NewLogger builds the configured logger. The returned function flushes it.
func NewLogger(cfg config.LogConfig) (logging.Logger, func() error, error) {
	if cfg.Backend != "zap" {
		lc := cfg.LoggerConfig()
		lc.Output = os.Stderr
		return logging.NewLogger(lc), func() error { return nil }, nil
	}

	lvl, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapLevel(lvl))
	if cfg.Format == "text" {
		zc.Encoding = "console"
	}
	zc.DisableCaller = !cfg.AddSource
	zl, err := zc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logging.NewZapAdapter(zl.Sugar()), func() error {
		_ = zl.Sync()
		return nil
	}, nil
}

func zapLevel(l logging.LogLevel) zapcore.Level {
	switch l {
	case logging.LogLevelDebug:
		return zapcore.DebugLevel
	case logging.LogLevelWarn:
		return zapcore.WarnLevel
	case logging.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
