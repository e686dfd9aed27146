package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the cache, and the ledger itself.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	tutorsRegistered  prometheus.Counter
	sessionsBooked    prometheus.Counter
	sessionsCompleted prometheus.Counter
	escrowHeld        prometheus.Gauge
	escrowReleased    prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	tutorsRegistered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_tutors_registered_total",
		Help: "Total tutor identities minted",
	})

	sessionsBooked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sessions_booked_total",
		Help: "Total sessions booked",
	})

	sessionsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sessions_completed_total",
		Help: "Total sessions completed",
	})

	escrowHeld := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_escrow_held_units",
		Help: "Escrow currently held for booked sessions, in base currency units",
	})

	escrowReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_escrow_released_units_total",
		Help: "Escrow released to tutors, in base currency units",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite,
		cacheHits, cacheMisses, tutorsRegistered, sessionsBooked, sessionsCompleted,
		escrowHeld, escrowReleased)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		tutorsRegistered:  tutorsRegistered,
		sessionsBooked:    sessionsBooked,
		sessionsCompleted: sessionsCompleted,
		escrowHeld:        escrowHeld,
		escrowReleased:    escrowReleased,
	}
}

// Handler exposes the prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a completed request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheOperation tracks a cache lookup.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	s.cacheLatency.Observe(duration.Seconds())
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks a cache set.
func (s *MetricsService) ObserveCacheWrite(duration time.Duration) {
	s.cacheWrite.Observe(duration.Seconds())
}

// TutorRegistered records a minted identity.
func (s *MetricsService) TutorRegistered() {
	s.tutorsRegistered.Inc()
}

// SessionBooked records a booking and the escrow it locked.
func (s *MetricsService) SessionBooked(escrow int64) {
	s.sessionsBooked.Inc()
	s.escrowHeld.Add(float64(escrow))
}

// SessionCompleted records a completion and the escrow it released.
func (s *MetricsService) SessionCompleted(escrow int64) {
	s.sessionsCompleted.Inc()
	s.escrowHeld.Sub(float64(escrow))
	s.escrowReleased.Add(float64(escrow))
}
