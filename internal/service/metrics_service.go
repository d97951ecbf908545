package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API
// and the scheduling pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	schedulesCommitted  prometheus.Counter
	scheduleConflicts   prometheus.Counter
	notificationsSent   prometheus.Counter
	notificationsFailed prometheus.Counter
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

	schedulesCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_schedules_committed_total",
		Help: "Total exam schedule assignments committed",
	})

	scheduleConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_schedule_conflicts_total",
		Help: "Total schedule submissions rejected as conflicting",
	})

	notificationsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shared_schedule_notifications_sent_total",
		Help: "Total shared-subject schedule notifications delivered",
	})

	notificationsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shared_schedule_notifications_failed_total",
		Help: "Total shared-subject schedule notifications that failed to deliver",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		schedulesCommitted, scheduleConflicts, notificationsSent, notificationsFailed, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		schedulesCommitted:  schedulesCommitted,
		scheduleConflicts:   scheduleConflicts,
		notificationsSent:   notificationsSent,
		notificationsFailed: notificationsFailed,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss counts.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// IncScheduleCommitted counts a successfully committed assignment.
func (m *MetricsService) IncScheduleCommitted() {
	if m == nil {
		return
	}
	m.schedulesCommitted.Inc()
}

// IncScheduleConflict counts a submission rejected as conflicting.
func (m *MetricsService) IncScheduleConflict() {
	if m == nil {
		return
	}
	m.scheduleConflicts.Inc()
}

// IncNotificationSent counts a delivered shared-schedule notice.
func (m *MetricsService) IncNotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSent.Inc()
}

// IncNotificationFailed counts a shared-schedule notice that could not
// be delivered.
func (m *MetricsService) IncNotificationFailed() {
	if m == nil {
		return
	}
	m.notificationsFailed.Inc()
}
