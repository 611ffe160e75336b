// Package metrics owns the Prometheus collectors exported on /metrics.
//
// Collectors are created at package load but only exported once Register
// has been called, so tests can observe them without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "schoolhub"

var (
	// HTTP request metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Batch loader metrics
	LoaderBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_loader_batches_total",
			Help: "Number of batched gateway fetches issued by request-scoped loaders",
		},
		[]string{"loader"},
	)
	LoaderBatchKeys = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_loader_batch_keys",
			Help:    "Distinct keys per loader batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"loader"},
	)
	LoaderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_loader_fetch_failures_total",
			Help: "Loader batches that failed or timed out",
		},
		[]string{"loader"},
	)

	// GraphQL metrics
	GraphQLErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_graphql_errors_total",
			Help: "GraphQL errors returned to clients, by error code",
		},
		[]string{"code"},
	)

	// Relationship repair metrics
	ReconcileRepairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_reconcile_repairs_total",
			Help: "School student indexes rewritten by the reconcile worker",
		},
	)
)

var (
	regOnce sync.Once
	regErr  error
)

// Register adds every collector to reg. Only the first call has effect.
func Register(reg prometheus.Registerer) error {
	regOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			HTTPRequestsTotal, HTTPRequestDuration,
			LoaderBatches, LoaderBatchKeys, LoaderFailures,
			GraphQLErrors, ReconcileRepairs,
		} {
			if err := reg.Register(c); err != nil {
				regErr = err
				return
			}
		}
	})
	return regErr
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and durations, labelled by the
// matched chi route pattern rather than the raw path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		status := strconv.Itoa(code)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
