package jobmetrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("mail:send").End(nil))
	boom := errors.New("smtp down")
	assert.Equal(t, boom, m.Track("mail:send").End(boom))
	bad := fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	assert.Equal(t, bad, m.Track("mail:send").End(bad))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:send", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:send", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:send", OutcomeDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("mail:send")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("mail:send")))
}

func TestInFlightGauge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	tr := m.Track("queries:assigned")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("queries:assigned")))
	_ = tr.End(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("queries:assigned")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	boom := errors.New("x")
	assert.Equal(t, boom, m.Track("job").End(boom))
	m.AddPurged(3)
}

func TestAddPurged(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPurged(0)
	m.AddPurged(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.purged))
}
