package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OUTCOME_OK    = "ok"
	OUTCOME_ERROR = "error"
)

// Metrics exports scheduler and engine counters to prometheus.
type Metrics struct {
	jobsExecuted     *prometheus.CounterVec
	jobsFailed       *prometheus.CounterVec
	jobsDeadLettered *prometheus.CounterVec
	walks            *prometheus.CounterVec
	walkSteps        prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenflow_jobs_executed_total",
				Help: "Jobs executed successfully.",
			},
			[]string{"kind"},
		),
		jobsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenflow_jobs_failed_total",
				Help: "Job executions that failed.",
			},
			[]string{"kind"},
		),
		jobsDeadLettered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenflow_jobs_dead_lettered_total",
				Help: "Jobs moved to the dead letter set after exhausting retries.",
			},
			[]string{"kind"},
		),
		walks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenflow_walks_total",
				Help: "Process walks by outcome.",
			},
			[]string{"process", "outcome"},
		),
		walkSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tokenflow_walk_steps",
				Help:    "Steps taken per process walk.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
		),
	}
	reg.MustRegister(m.jobsExecuted, m.jobsFailed, m.jobsDeadLettered, m.walks, m.walkSteps)
	return m
}

func (m *Metrics) JobExecuted(kind string) {
	m.jobsExecuted.WithLabelValues(kind).Inc()
}

func (m *Metrics) JobFailed(kind string) {
	m.jobsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) JobDeadLettered(kind string) {
	m.jobsDeadLettered.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveWalk(processId string, steps int, err error) {
	outcome := OUTCOME_OK
	if err != nil {
		outcome = OUTCOME_ERROR
	}
	m.walks.WithLabelValues(processId, outcome).Inc()
	m.walkSteps.Observe(float64(steps))
}
