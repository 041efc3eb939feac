// Package metrics exposes run counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/causelist/models"
)

// Metrics holds the collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	outcomes        *prometheus.CounterVec
	captchaAttempts *prometheus.CounterVec
	courtDuration   *prometheus.HistogramVec
	runs            *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "causelist",
			Name:      "outcomes_total",
			Help:      "Per-court outcomes by status.",
		}, []string{"status"}),
		captchaAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "causelist",
			Name:      "captcha_attempts_total",
			Help:      "CAPTCHA attempts by result (valid, rejected, error, manual).",
		}, []string{"result"}),
		courtDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "causelist",
			Name:      "court_duration_seconds",
			Help:      "Time spent processing one court.",
			Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
		}, []string{"status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "causelist",
			Name:      "runs_total",
			Help:      "Runs by result (completed, failed).",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.outcomes,
		m.captchaAttempts,
		m.courtDuration,
		m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Outcome records one court's outcome. Nil-safe.
func (m *Metrics) Outcome(status models.Status, took time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(status)).Inc()
	m.courtDuration.WithLabelValues(string(status)).Observe(took.Seconds())
}

// CaptchaAttempt records one recognition attempt. Nil-safe.
func (m *Metrics) CaptchaAttempt(result string) {
	if m == nil {
		return
	}
	m.captchaAttempts.WithLabelValues(result).Inc()
}

// Run records a finished run. Nil-safe.
func (m *Metrics) Run(err error) {
	if m == nil {
		return
	}
	result := "completed"
	if err != nil {
		result = "failed"
	}
	m.runs.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
