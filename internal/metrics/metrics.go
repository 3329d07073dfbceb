// Package metrics exposes the runtime's prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "officegrid"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors for one office.
type Metrics struct {
	jobsExecuted       *prometheus.CounterVec
	jobsQueued         *prometheus.GaugeVec
	escalations        *prometheus.CounterVec
	processesActive    prometheus.Gauge
	processesCompleted *prometheus.CounterVec
	assetTimeouts      *prometheus.CounterVec
	objectsSourced     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "team",
				Name:      "jobs_executed_total",
				Help:      "Jobs executed, by team and outcome.",
			},
			[]string{"team", "outcome"},
		),
		jobsQueued: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "team",
				Name:      "jobs_queued",
				Help:      "Jobs assigned to a team and not yet picked up.",
			},
			[]string{"team"},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "escalation",
				Name:      "handled_total",
				Help:      "Failures escalated, by the level that took them.",
			},
			[]string{"level"},
		),
		processesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "process",
				Name:      "active",
				Help:      "Processes invoked and not yet complete.",
			},
		),
		processesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "process",
				Name:      "completed_total",
				Help:      "Completed processes, by outcome.",
			},
			[]string{"outcome"},
		),
		assetTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "asset",
				Name:      "timeouts_total",
				Help:      "Waiters failed by the asset checker, by asset.",
			},
			[]string{"asset"},
		),
		objectsSourced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "managed_object",
				Name:      "sourced_total",
				Help:      "Managed object sourcing attempts, by managed object and outcome.",
			},
			[]string{"managed_object", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.jobsExecuted, m.jobsQueued, m.escalations, m.processesActive,
			m.processesCompleted, m.assetTimeouts, m.objectsSourced,
		)
	}
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func (m *Metrics) JobExecuted(team string, err error) {
	if m == nil {
		return
	}
	m.jobsExecuted.WithLabelValues(team, outcome(err)).Inc()
}

// JobQueued and JobDequeued make *Metrics a team.Observer.
func (m *Metrics) JobQueued(team string) {
	if m == nil {
		return
	}
	m.jobsQueued.WithLabelValues(team).Inc()
}

func (m *Metrics) JobDequeued(team string) {
	if m == nil {
		return
	}
	m.jobsQueued.WithLabelValues(team).Dec()
}

func (m *Metrics) Escalation(level string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(level).Inc()
}

func (m *Metrics) ProcessStarted() {
	if m == nil {
		return
	}
	m.processesActive.Inc()
}

func (m *Metrics) ProcessCompleted(err error) {
	if m == nil {
		return
	}
	m.processesActive.Dec()
	m.processesCompleted.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) AssetTimeout(asset string) {
	if m == nil {
		return
	}
	m.assetTimeouts.WithLabelValues(asset).Inc()
}

func (m *Metrics) ManagedObjectSourced(name string, err error) {
	if m == nil {
		return
	}
	m.objectsSourced.WithLabelValues(name, outcome(err)).Inc()
}
