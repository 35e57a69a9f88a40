package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/taskmesh/core"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "taskmesh"

// Metrics counts collaborator interactions and action results. It is both a
// core.Notifier and a runner.ResultObserver.
type Metrics struct {
	notifications *prometheus.CounterVec
	results       *prometheus.CounterVec
}

// MetricsOptions configures Metrics.
type MetricsOptions struct {
	Namespace string
	// Registerer receives the collectors; prometheus.DefaultRegisterer when
	// nil.
	Registerer prometheus.Registerer
}

// NewMetrics creates and registers the collectors.
func NewMetrics(optFns ...func(o *MetricsOptions)) *Metrics {
	opts := MetricsOptions{Namespace: DefaultNamespace}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(opts.Registerer)

	return &Metrics{
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: "collaborator",
				Name:      "notifications_total",
				Help:      "Total number of collaborator interactions by kind",
			},
			[]string{"action", "collaborator", "kind"},
		),
		results: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: "action",
				Name:      "results_total",
				Help:      "Total number of results delivered by status",
			},
			[]string{"action", "status"},
		),
	}
}

// Notify counts n.
func (m *Metrics) Notify(n core.Notification) {
	m.notifications.WithLabelValues(n.Action, n.Collaborator, string(n.Kind)).Inc()
}

// ObserveResult counts terminal results; RUNNING results are ignored.
func (m *Metrics) ObserveResult(action string, r core.Result) {
	if !r.IsTerminal() {
		return
	}
	m.results.WithLabelValues(action, r.Status().String()).Inc()
}

// NotificationCounter exposes the notification counter for inspection.
func (m *Metrics) NotificationCounter() *prometheus.CounterVec { return m.notifications }

// ResultCounter exposes the result counter for inspection.
func (m *Metrics) ResultCounter() *prometheus.CounterVec { return m.results }
