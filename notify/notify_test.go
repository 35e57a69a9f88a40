package notify

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

func TestMultiForwardsInOrder(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, nil, &b}
	m.Notify(core.Notification{Kind: core.NotifyGoalSent})
	m.Notify(core.Notification{Kind: core.NotifyResultReceived})

	want := []core.NotificationKind{core.NotifyGoalSent, core.NotifyResultReceived}
	assert.Equal(t, want, a.Kinds())
	assert.Equal(t, want, b.Kinds())

	a.Reset()
	assert.Empty(t, a.Notifications())
}

func TestLogWritesDebugEntries(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	l := NewLog(logging.NewZapAdapter(zap.New(obs).Sugar()))

	l.Notify(resultReceived(core.GoalSucceeded))

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "notify.result_received", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "reposition", fields["action"])
	assert.Equal(t, "g1", fields["goal_id"])
	assert.Equal(t, "SUCCEEDED", fields["goal_status"])

	NewLog(nil).Notify(resultReceived(core.GoalSucceeded))
}

func TestMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(func(o *MetricsOptions) { o.Registerer = reg })

	m.Notify(core.Notification{Kind: core.NotifyGoalSent, Action: "move", Collaborator: "/move_base"})
	m.Notify(core.Notification{Kind: core.NotifyGoalSent, Action: "move", Collaborator: "/move_base"})
	m.Notify(core.Notification{Kind: core.NotifyGoalCanceled, Action: "move", Collaborator: "/move_base"})

	m.ObserveResult("move", core.Running(nil))
	m.ObserveResult("move", core.Succeeded(nil))
	m.ObserveResult("move", core.Preempted(core.Failure{Action: "move"}))
	m.ObserveResult("move", core.Preempted(core.Failure{Action: "move"}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationCounter().WithLabelValues("move", "/move_base", "goal_sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationCounter().WithLabelValues("move", "/move_base", "goal_canceled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultCounter().WithLabelValues("move", "SUCCEEDED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResultCounter().WithLabelValues("move", "PREEMPTED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ResultCounter().WithLabelValues("move", "RUNNING")))
}

func resultReceived(st core.GoalStatus) core.Notification {
	return core.Notification{
		Kind:         core.NotifyResultReceived,
		Action:       "reposition",
		Collaborator: "/reposition",
		GoalID:       "g1",
		GoalStatus:   &st,
	}
}
