// Package jobmetrics instruments asynq task handlers.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded on agrotrade_jobs_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDropped = "dropped"
)

// Metrics holds the collectors shared by every task handler.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	purged   prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers job collectors on registerer, or once on the default
// Prometheus registerer when registerer is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = register(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return register(registerer)
}

// Tracker measures a single task execution.
type Tracker struct {
	m     *Metrics
	job   string
	start time.Time
}

// Track marks job as running until End is called. A nil Metrics yields a no-op tracker.
func (m *Metrics) Track(job string) *Tracker {
	if m != nil {
		m.inFlight.WithLabelValues(job).Inc()
	}
	return &Tracker{m: m, job: job, start: time.Now()}
}

// End records the outcome of the run and returns err unchanged. Errors wrapping
// asynq.SkipRetry count as dropped rather than failed.
func (t *Tracker) End(err error) error {
	if t == nil || t.m == nil {
		return err
	}
	t.m.inFlight.WithLabelValues(t.job).Dec()
	t.m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	outcome := Outcome(err)
	if outcome == OutcomeFailure {
		t.m.failures.WithLabelValues(t.job).Inc()
	}
	t.m.runs.WithLabelValues(t.job, outcome).Inc()
	return err
}

// Outcome classifies a handler result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeDropped
	default:
		return OutcomeFailure
	}
}

// AddPurged counts idempotency keys removed by the cleanup job.
func (m *Metrics) AddPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrotrade_jobs_total",
			Help: "Task executions by job and outcome.",
		}, []string{"job", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrotrade_jobs_failures_total",
			Help: "Task executions that failed and will be retried.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agrotrade_job_duration_seconds",
			Help:    "Task execution time in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"job"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agrotrade_jobs_in_flight",
			Help: "Tasks currently executing.",
		}, []string{"job"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrotrade_idempotency_keys_purged_total",
			Help: "Idempotency keys removed by the cleanup job.",
		}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.inFlight, m.purged)
	return m
}
