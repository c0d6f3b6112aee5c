package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/agrotrade/agrotrade/internal/jobs"
	"github.com/agrotrade/agrotrade/internal/shared"
)

func TestMetricsHandlerExposesRegisteredCollectors(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("mail:send").End(nil)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "agrotrade_jobs_total")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	metrics := NewMetrics()
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/42", nil))

	require.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/products/{id}", http.MethodGet, "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))
}

func TestNilMetricsPassThrough(t *testing.T) {
	var metrics *Metrics
	called := false
	h := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type failingAudit struct{}

func (failingAudit) Record(context.Context, shared.AuditLog) error { return errors.New("db down") }

func TestCountAuditCountsRecordedActions(t *testing.T) {
	metrics := NewMetrics()
	rec := metrics.CountAudit(nil)
	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, shared.AuditLog{Action: "order.status", Entity: "order", EntityID: "1"}))
	require.NoError(t, rec.Record(ctx, shared.AuditLog{Action: "order.status", Entity: "order", EntityID: "2"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.events.WithLabelValues("order.status")))

	failing := metrics.CountAudit(failingAudit{})
	require.Error(t, failing.Record(ctx, shared.AuditLog{Action: "query.assign"}))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.events.WithLabelValues("query.assign")))
}

func TestUnroutedRequestsAreSampled(t *testing.T) {
	metrics := NewMetrics()
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/path", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/healthz", http.MethodGet, "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.latency))
}
