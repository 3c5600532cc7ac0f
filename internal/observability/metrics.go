package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the executor daemon.
type Metrics struct {
	registry       *prometheus.Registry
	TasksTotal     *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	EventsEmitted  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	TransportErrs  *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry with executor collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jbish_tasks_total",
		Help: "Tasks accepted by the executor, by type and outcome",
	}, []string{"type", "outcome"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jbish_task_duration_seconds",
		Help:    "Task execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jbish_events_emitted_total",
		Help: "Agent events emitted to clients, by event type",
	}, []string{"type"})

	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jbish_active_sessions",
		Help: "WebSocket sessions currently open",
	})

	trErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jbish_transport_errors_total",
		Help: "Transport-level errors by reason",
	}, []string{"reason"})

	reg.MustRegister(tasks, durs, events, active, trErrors)

	return &Metrics{
		registry:       reg,
		TasksTotal:     tasks,
		TaskDuration:   durs,
		EventsEmitted:  events,
		ActiveSessions: active,
		TransportErrs:  trErrors,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTask records one finished task with its outcome and duration.
func (m *Metrics) RecordTask(taskType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if taskType == "" {
		taskType = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.TasksTotal.WithLabelValues(taskType, outcome).Inc()
	m.TaskDuration.WithLabelValues(taskType).Observe(duration.Seconds())
}

// RecordEvent counts an emitted agent event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.EventsEmitted.WithLabelValues(eventType).Inc()
}

// IncActiveSessions increments the open session gauge.
func (m *Metrics) IncActiveSessions() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// DecActiveSessions decrements the open session gauge.
func (m *Metrics) DecActiveSessions() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// RecordTransportError records a transport-level error.
func (m *Metrics) RecordTransportError(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.TransportErrs.WithLabelValues(reason).Inc()
}
