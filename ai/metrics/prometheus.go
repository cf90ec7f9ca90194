// Package metrics provides Prometheus metrics export for the chat core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes recorded per processed chat turn.
const (
	OutcomeOK              = "ok"
	OutcomeRejected        = "rejected"
	OutcomeValidationError = "validation_error"
	OutcomeRetrievalError  = "retrieval_error"
	OutcomeGenerationError = "generation_error"
)

// Recorder is the narrow recording interface the chat core depends on.
// A nop implementation keeps the core independent of metrics wiring.
type Recorder interface {
	RecordTurn(outcome string, duration time.Duration)
	RecordTokens(tier string, promptTokens, completionTokens int)
	RecordSummarizationFailure()
	RecordSearch(backend string, duration time.Duration, err bool)
}

// Nop returns a Recorder that discards everything.
func Nop() Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) RecordTurn(string, time.Duration)         {}
func (nopRecorder) RecordTokens(string, int, int)            {}
func (nopRecorder) RecordSummarizationFailure()              {}
func (nopRecorder) RecordSearch(string, time.Duration, bool) {}

// PrometheusExporter exports chat metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	turnsTotal            *prometheus.CounterVec
	turnLatency           *prometheus.HistogramVec
	llmTokens             *prometheus.CounterVec
	summarizationFailures prometheus.Counter
	searchTotal           *prometheus.CounterVec
	searchLatency         *prometheus.HistogramVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one).
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds).
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dentalsense",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Processed chat turns by outcome",
		},
		[]string{"outcome"},
	)

	e.turnLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dentalsense",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Chat turn latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"outcome"},
	)

	e.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dentalsense",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "LLM tokens consumed by tier and direction",
		},
		[]string{"tier", "direction"},
	)

	e.summarizationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dentalsense",
			Subsystem: "chat",
			Name:      "summarization_failures_total",
			Help:      "Background summarization failures (turn still succeeded)",
		},
	)

	e.searchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dentalsense",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests by backend and result",
		},
		[]string{"backend", "result"},
	)

	e.searchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dentalsense",
			Subsystem: "search",
			Name:      "latency_seconds",
			Help:      "Search request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"backend"},
	)

	registry.MustRegister(
		e.turnsTotal,
		e.turnLatency,
		e.llmTokens,
		e.summarizationFailures,
		e.searchTotal,
		e.searchLatency,
	)

	return e
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *PrometheusExporter) RecordTurn(outcome string, duration time.Duration) {
	e.turnsTotal.WithLabelValues(outcome).Inc()
	e.turnLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (e *PrometheusExporter) RecordTokens(tier string, promptTokens, completionTokens int) {
	e.llmTokens.WithLabelValues(tier, "prompt").Add(float64(promptTokens))
	e.llmTokens.WithLabelValues(tier, "completion").Add(float64(completionTokens))
}

func (e *PrometheusExporter) RecordSummarizationFailure() {
	e.summarizationFailures.Inc()
}

func (e *PrometheusExporter) RecordSearch(backend string, duration time.Duration, err bool) {
	result := "ok"
	if err {
		result = "error"
	}
	e.searchTotal.WithLabelValues(backend, result).Inc()
	e.searchLatency.WithLabelValues(backend).Observe(duration.Seconds())
}
