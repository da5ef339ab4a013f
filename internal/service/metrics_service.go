package service

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skyward/fts-api/internal/models"
)

// MetricsService tracks request, cache and database counters. Prometheus
// collectors feed the /metrics endpoint; the atomic counters back the JSON
// snapshot admins read without a Prometheus stack.
type MetricsService struct {
	requestsTotal   prometheus.Counter
	requestDuration prometheus.Histogram
	bookingsTotal   *prometheus.CounterVec
	cacheOps        *prometheus.CounterVec

	requests  atomic.Uint64
	requestNs atomic.Uint64
	dbQueries atomic.Uint64
	dbQueryNs atomic.Uint64
	cacheHits atomic.Uint64
	cacheMiss atomic.Uint64
}

// NewMetricsService builds and registers the collectors. Registration uses
// the default registry; duplicate registration panics, so construct once.
func NewMetricsService() *MetricsService {
	s := &MetricsService{
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fts",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served.",
		}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fts",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fts",
			Name:      "bookings_total",
			Help:      "Booking lifecycle events by outcome.",
		}, []string{"outcome"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fts",
			Name:      "cache_operations_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
	}
	prometheus.MustRegister(s.requestsTotal, s.requestDuration, s.bookingsTotal, s.cacheOps)
	return s
}

// ObserveRequest records one served HTTP request.
func (s *MetricsService) ObserveRequest(duration time.Duration) {
	s.requestsTotal.Inc()
	s.requestDuration.Observe(duration.Seconds())
	s.requests.Add(1)
	s.requestNs.Add(uint64(duration.Nanoseconds()))
}

// ObserveDBQuery records one database round trip.
func (s *MetricsService) ObserveDBQuery(duration time.Duration) {
	s.dbQueries.Add(1)
	s.dbQueryNs.Add(uint64(duration.Nanoseconds()))
}

// CacheHit records a successful cache read.
func (s *MetricsService) CacheHit() {
	s.cacheHits.Add(1)
	s.cacheOps.WithLabelValues("hit").Inc()
}

// CacheMiss records a cache read that fell through to the database.
func (s *MetricsService) CacheMiss() {
	s.cacheMiss.Add(1)
	s.cacheOps.WithLabelValues("miss").Inc()
}

// BookingOutcome records a booking event: created, confirmed, cancelled,
// no_show or conflict.
func (s *MetricsService) BookingOutcome(outcome string) {
	s.bookingsTotal.WithLabelValues(outcome).Inc()
}

// Snapshot returns current counters for the JSON metrics endpoint.
func (s *MetricsService) Snapshot() models.SystemMetrics {
	requests := s.requests.Load()
	dbQueries := s.dbQueries.Load()
	hits := s.cacheHits.Load()
	misses := s.cacheMiss.Load()

	m := models.SystemMetrics{
		CacheHits:     hits,
		CacheMisses:   misses,
		RequestsTotal: requests,
		DBQueryCount:  dbQueries,
		Goroutines:    runtime.NumGoroutine(),
		GeneratedAt:   time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		m.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		m.AverageRequestDurationMs = float64(s.requestNs.Load()) / float64(requests) / 1e6
	}
	if dbQueries > 0 {
		m.AverageDBQueryDurationMs = float64(s.dbQueryNs.Load()) / float64(dbQueries) / 1e6
	}
	return m
}
