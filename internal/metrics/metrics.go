// Package metrics exposes Prometheus instruments for the attempt pipeline,
// remediation lifecycle and HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cognify"

// Metrics holds every instrument on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	composite       prometheus.Histogram
	ratingDelta     prometheus.Histogram
	submitDuration  prometheus.Histogram
	diagnoses       *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the instruments, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Practice attempts processed, by correctness.",
		}, []string{"correct"}),
		composite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_composite_score",
			Help:      "Composite mastery score of processed attempts.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ratingDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rating_delta",
			Help:      "Skill rating change per attempt.",
			Buckets:   prometheus.LinearBuckets(-20, 5, 9),
		}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "Time to process one attempt, including remediation.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_total",
			Help:      "Diagnosis runs, by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediation_transitions_total",
			Help:      "Remediation episode transitions.",
		}, []string{"from", "to", "trigger"}),
		requestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "endpoint"}),
	}
	m.registry.MustRegister(
		m.attempts, m.composite, m.ratingDelta, m.submitDuration,
		m.diagnoses, m.transitions, m.requestCounter, m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAttempt records one processed attempt.
func (m *Metrics) ObserveAttempt(correct bool, composite, delta float64, took time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(strconv.FormatBool(correct)).Inc()
	m.composite.Observe(composite)
	m.ratingDelta.Observe(delta)
	m.submitDuration.Observe(took.Seconds())
}

// Diagnosis outcomes.
const (
	OutcomeWeakFound = "weak_prerequisite"
	OutcomeNoneFound = "none"
	OutcomeError     = "error"
)

// ObserveDiagnosis counts a diagnosis run.
func (m *Metrics) ObserveDiagnosis(outcome string) {
	if m == nil {
		return
	}
	m.diagnoses.WithLabelValues(outcome).Inc()
}

// ObserveTransition counts a remediation state change.
func (m *Metrics) ObserveTransition(from, to, trigger string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, trigger).Inc()
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
