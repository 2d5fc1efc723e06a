package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/commission-engine/commission"
)

// Metrics collects Prometheus metrics for the API. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	computations    *prometheus.CounterVec
	rateIssues      *prometheus.CounterVec
	batchSize       prometheus.Histogram
}

// NewMetrics initialises the registry and collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commission_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	computations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_computations_total",
		Help: "Commission computations by outcome.",
	}, []string{"outcome"})
	rateIssues := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_rate_issues_total",
		Help: "Rates replaced by zero, by role.",
	}, []string{"role"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "commission_batch_size",
		Help:    "Investments per batch computation.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 7),
	})
	registry.MustRegister(requests, duration, computations, rateIssues, batchSize)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		computations:    computations,
		rateIssues:      rateIssues,
		batchSize:       batchSize,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and duration per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveResult counts a computation and the rate issues it carried.
func (m *Metrics) ObserveResult(res *commission.CommissionResult, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.computations.WithLabelValues("error").Inc()
	case len(res.RateIssues) > 0:
		m.computations.WithLabelValues("rate_issues").Inc()
	default:
		m.computations.WithLabelValues("ok").Inc()
	}
	if res == nil {
		return
	}
	for _, ri := range res.RateIssues {
		m.rateIssues.WithLabelValues(string(ri.Role)).Inc()
	}
}

// ObserveBatch records the size of a batch.
func (m *Metrics) ObserveBatch(n int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
