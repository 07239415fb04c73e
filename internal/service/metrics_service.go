package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the cache, and the scheduling engines. All methods are nil-safe so wiring
// can omit metrics entirely.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	timetableSlots     prometheus.Counter
	timetableConflicts prometheus.Counter
	timetableScore     prometheus.Gauge
	substitutionRuns   *prometheus.CounterVec
	substitutionsMade  prometheus.Counter
	periodsSkipped     prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	timetableSlots := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_slots_generated_total",
		Help: "Total timetable slots produced by generation runs",
	})

	timetableConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_conflicts_total",
		Help: "Total conflicts reported by generation runs",
	})

	timetableScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_last_score",
		Help: "Quality score of the most recent generation run",
	})

	substitutionRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "substitution_runs_total",
		Help: "Substitution engine runs by mode",
	}, []string{"mode"})

	substitutionsMade := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "substitutions_assigned_total",
		Help: "Total substitute assignments produced",
	})

	periodsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "substitution_periods_skipped_total",
		Help: "Vacated periods that could not be covered",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, dbQueryDuration,
		timetableSlots, timetableConflicts, timetableScore, substitutionRuns, substitutionsMade, periodsSkipped, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		timetableSlots:     timetableSlots,
		timetableConflicts: timetableConflicts,
		timetableScore:     timetableScore,
		substitutionRuns:   substitutionRuns,
		substitutionsMade:  substitutionsMade,
		periodsSkipped:     periodsSkipped,
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

// RecordCacheOperation records a cache hit or miss.
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

// ObserveDBQuery records database query timing under a label.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveTimetableGeneration records the outcome of one generation run.
func (m *MetricsService) ObserveTimetableGeneration(slots, conflicts int, score float64) {
	if m == nil {
		return
	}
	m.timetableSlots.Add(float64(slots))
	m.timetableConflicts.Add(float64(conflicts))
	m.timetableScore.Set(score)
}

// ObserveSubstitutionRun records the outcome of one substitution run.
func (m *MetricsService) ObserveSubstitutionRun(assigned, skipped int, persisted bool) {
	if m == nil {
		return
	}
	mode := "preview"
	if persisted {
		mode = "generate"
	}
	m.substitutionRuns.WithLabelValues(mode).Inc()
	m.substitutionsMade.Add(float64(assigned))
	m.periodsSkipped.Add(float64(skipped))
}
