package metrics

import (
	"ai-consultation-be/pkg/consultation"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "consultation"

// Metrics holds the custom collectors of the consultation service.
type Metrics struct {
	StageDuration    *prometheus.HistogramVec
	StageFailures    *prometheus.CounterVec
	Warnings         *prometheus.CounterVec
	SessionsEvicted  prometheus.Counter
	SessionTurns     prometheus.Counter
	ExtractionResult *prometheus.CounterVec
}

// New registers every collector on reg. activeSessions, when non-nil, backs
// the active sessions gauge.
func New(reg prometheus.Registerer, activeSessions func() float64) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Assessment pipeline stage latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // LLM calls can take minutes
		}, []string{"stage"}),

		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_failures_total",
			Help:      "Assessment pipeline stage failures by stage and cause",
		}, []string{"stage", "cause"}),

		Warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal warnings attached to results, by code",
		}, []string{"code"}),

		SessionsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Conversation sessions removed by the idle sweep",
		}),

		SessionTurns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_turns_total",
			Help:      "Conversation exchanges completed",
		}),

		ExtractionResult: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_results_total",
			Help:      "Extraction outcomes by format",
		}, []string{"format", "outcome"}),
	}

	if activeSessions != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Conversation sessions currently stored",
		}, activeSessions)
	}

	return m
}

// ObserveStage records one pipeline stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage, Cause(err)).Inc()
	}
}

func (m *Metrics) ObserveWarning(code string) {
	m.Warnings.WithLabelValues(code).Inc()
}

// ObserveExtraction records an extraction outcome; format is empty on failure.
func (m *Metrics) ObserveExtraction(format consultation.Format, err error) {
	outcome := "ok"
	if err != nil {
		outcome = Cause(err)
	}
	if format == "" {
		format = "unknown"
	}
	m.ExtractionResult.WithLabelValues(string(format), outcome).Inc()
}

var causes = []struct {
	err   error
	label string
}{
	{consultation.ErrEmptyInput, "empty_input"},
	{consultation.ErrUnsupportedFormat, "unsupported_format"},
	{consultation.ErrExtractionFailed, "extraction_failed"},
	{consultation.ErrUpstreamUnavailable, "upstream_unavailable"},
	{consultation.ErrMalformedResponse, "malformed_response"},
	{consultation.ErrRenderingFailed, "rendering_failed"},
}

// Cause is a low-cardinality label for err.
func Cause(err error) string {
	for _, c := range causes {
		if errors.Is(err, c.err) {
			return c.label
		}
	}
	return "other"
}
