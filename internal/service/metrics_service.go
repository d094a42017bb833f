package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	codesIssued          prometheus.Counter
	codesRedeemed        prometheus.Counter
	submissionsRejected  *prometheus.CounterVec
	submissionsCommitted prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	codesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_codes_issued_total",
		Help: "Total access codes generated",
	})

	codesRedeemed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_codes_redeemed_total",
		Help: "Total access codes consumed by a committed response",
	})

	submissionsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_rejected_total",
		Help: "Total rejected response submissions",
	}, []string{"reason"})

	submissionsCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submissions_committed_total",
		Help: "Total committed response submissions",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		codesIssued, codesRedeemed, submissionsRejected, submissionsCommitted)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
		codesIssued:          codesIssued,
		codesRedeemed:        codesRedeemed,
		submissionsRejected:  submissionsRejected,
		submissionsCommitted: submissionsCommitted,
	}
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records duration and count of a handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (s *MetricsService) RecordCacheLookup(hit bool) {
	if hit {
		s.cacheHits.Inc()
		return
	}
	s.cacheMisses.Inc()
}

// RecordCodesIssued counts freshly generated access codes.
func (s *MetricsService) RecordCodesIssued(n int) {
	s.codesIssued.Add(float64(n))
}

// RecordSubmissionCommitted counts a consumed code and stored response.
func (s *MetricsService) RecordSubmissionCommitted() {
	s.codesRedeemed.Inc()
	s.submissionsCommitted.Inc()
}

// RecordSubmissionRejected counts a rejected submission by reason.
func (s *MetricsService) RecordSubmissionRejected(reason string) {
	s.submissionsRejected.WithLabelValues(reason).Inc()
}
