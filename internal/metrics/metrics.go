// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the learning domain. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	quizzesStarted   *prometheus.CounterVec
	quizzesCompleted *prometheus.CounterVec
	xpAwarded        prometheus.Counter
	levelUps         prometheus.Counter
	curricula        *prometheus.CounterVec
	videoSearches    *prometheus.CounterVec
	generationErrors *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "route"},
		),
		quizzesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizzes_started_total",
				Help: "Quiz sessions started, by context kind",
			},
			[]string{"kind"},
		),
		quizzesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizzes_completed_total",
				Help: "Quiz sessions finished, by context kind and result",
			},
			[]string{"kind", "result"},
		),
		xpAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Experience points awarded",
		}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Level increases across all learners",
		}),
		curricula: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curricula_generated_total",
				Help: "Curriculum generation attempts, by result",
			},
			[]string{"result"},
		),
		videoSearches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "video_searches_total",
				Help: "Video hydration searches, by result",
			},
			[]string{"result"},
		),
		generationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generation_errors_total",
				Help: "AI collaborator failures, by operation",
			},
			[]string{"op"},
		),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Quiz sessions currently registered",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration,
		m.quizzesStarted, m.quizzesCompleted,
		m.xpAwarded, m.levelUps,
		m.curricula, m.videoSearches, m.generationErrors,
		m.activeSessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// QuizStarted counts a new quiz session.
func (m *Metrics) QuizStarted(kind string) {
	if m == nil {
		return
	}
	m.quizzesStarted.WithLabelValues(kind).Inc()
}

// QuizCompleted counts a finished quiz.
func (m *Metrics) QuizCompleted(kind string, passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.quizzesCompleted.WithLabelValues(kind, result).Inc()
}

// XPAwarded adds to the awarded experience total.
func (m *Metrics) XPAwarded(amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.xpAwarded.Add(float64(amount))
}

// LevelUp counts level increases.
func (m *Metrics) LevelUp(levels int) {
	if m == nil || levels <= 0 {
		return
	}
	m.levelUps.Add(float64(levels))
}

// CurriculumGenerated counts a generation attempt.
func (m *Metrics) CurriculumGenerated(ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.curricula.WithLabelValues(result).Inc()
}

// VideoSearches records a hydration pass.
func (m *Metrics) VideoSearches(enriched, failed, empty int) {
	if m == nil {
		return
	}
	m.videoSearches.WithLabelValues("enriched").Add(float64(enriched))
	m.videoSearches.WithLabelValues("failed").Add(float64(failed))
	m.videoSearches.WithLabelValues("no_match").Add(float64(empty))
}

// GenerationError counts an AI collaborator failure.
func (m *Metrics) GenerationError(op string) {
	if m == nil {
		return
	}
	m.generationErrors.WithLabelValues(op).Inc()
}

// ActiveSessions sets the quiz session gauge.
func (m *Metrics) ActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
