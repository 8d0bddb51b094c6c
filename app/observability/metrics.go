package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "promptduel"

// Metrics owns every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	opAttempts *prometheus.CounterVec
	opSuccess  *prometheus.CounterVec
	opFailure  *prometheus.CounterVec
	opDuration *prometheus.HistogramVec

	fallbacks      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	embedRetries   prometheus.Counter
	generations    *prometheus.CounterVec
	ledgerFailures prometheus.Counter
	scores         prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		opAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Service operations started, by module and operation.",
		}, []string{"module", "operation"}),
		opSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Service operations that returned a success result.",
		}, []string{"module", "operation"}),
		opFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failure_total",
			Help:      "Service operations that returned an error or panicked.",
		}, []string{"module", "operation"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"module", "operation"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_fallback_total",
			Help:      "Submissions scored with the fallback score, by reason.",
		}, []string{"reason"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_lookups_total",
			Help:      "Embedding cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		embedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_retries_total",
			Help:      "Embedding calls retried after a transient failure.",
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Image generation requests by outcome.",
		}, []string{"status"}),
		ledgerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_failures_total",
			Help:      "Scored submissions that could not be recorded.",
		}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_score",
			Help:      "Distribution of recorded submission scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.opAttempts, m.opSuccess, m.opFailure, m.opDuration,
		m.fallbacks, m.cacheLookups, m.embedRetries, m.generations,
		m.ledgerFailures, m.scores, m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Module returns a view of m with the module label bound.
func (m *Metrics) Module(name string) *ModuleMetrics {
	return &ModuleMetrics{m: m, module: name}
}

// HTTPMiddleware counts requests per chi route pattern.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ModuleMetrics records per-module operation telemetry. It satisfies the
// Metrics interfaces declared by the application packages.
type ModuleMetrics struct {
	m      *Metrics
	module string
}

func (mm *ModuleMetrics) RecordOperationAttempt(ctx context.Context, operation string) {
	mm.m.opAttempts.WithLabelValues(mm.module, operation).Inc()
}

func (mm *ModuleMetrics) RecordOperationSuccess(ctx context.Context, operation string) {
	mm.m.opSuccess.WithLabelValues(mm.module, operation).Inc()
}

func (mm *ModuleMetrics) RecordOperationFailure(ctx context.Context, operation string) {
	mm.m.opFailure.WithLabelValues(mm.module, operation).Inc()
}

func (mm *ModuleMetrics) RecordOperationDuration(ctx context.Context, operation string, d time.Duration) {
	mm.m.opDuration.WithLabelValues(mm.module, operation).Observe(d.Seconds())
}

func (mm *ModuleMetrics) RecordFallback(ctx context.Context, reason string) {
	mm.m.fallbacks.WithLabelValues(reason).Inc()
}

func (mm *ModuleMetrics) RecordCacheLookup(ctx context.Context, tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	mm.m.cacheLookups.WithLabelValues(tier, result).Inc()
}

func (mm *ModuleMetrics) RecordEmbeddingRetry(ctx context.Context) {
	mm.m.embedRetries.Inc()
}

func (mm *ModuleMetrics) RecordGeneration(ctx context.Context, status string) {
	mm.m.generations.WithLabelValues(status).Inc()
}

func (mm *ModuleMetrics) RecordLedgerFailure(ctx context.Context) {
	mm.m.ledgerFailures.Inc()
}

func (mm *ModuleMetrics) RecordScore(ctx context.Context, score float64) {
	mm.m.scores.Observe(score)
}

// NoOpMetrics discards everything. Used in tests and tools.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOpMetrics) RecordFallback(context.Context, string)                         {}
func (NoOpMetrics) RecordCacheLookup(context.Context, string, bool)                {}
func (NoOpMetrics) RecordEmbeddingRetry(context.Context)                           {}
func (NoOpMetrics) RecordGeneration(context.Context, string)                       {}
func (NoOpMetrics) RecordLedgerFailure(context.Context)                            {}
func (NoOpMetrics) RecordScore(context.Context, float64)                           {}
