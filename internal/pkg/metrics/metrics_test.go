package metrics

import (
	"ai-consultation-be/pkg/assessment"
	"ai-consultation-be/pkg/consultation"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var _ assessment.Observer = &Metrics{}

func TestObserveStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, func() float64 { return 3 })

	m.ObserveStage("synthesis", 2*time.Second, nil)
	m.ObserveStage("synthesis", time.Second, consultation.StageFailed("synthesis", fmt.Errorf("x: %w", consultation.ErrMalformedResponse)))
	m.ObserveWarning(consultation.WarnSymptomFallback)

	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StageFailures.WithLabelValues("synthesis", "malformed_response")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Warnings.WithLabelValues(consultation.WarnSymptomFallback)))

	families, err := reg.Gather()
	assert.NoError(t, err)
	var sawGauge bool
	for _, f := range families {
		if f.GetName() == "consultation_sessions_active" {
			sawGauge = true
			assert.Equal(t, float64(3), f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, sawGauge)
}

func TestObserveExtraction(t *testing.T) {
	m := New(prometheus.NewRegistry(), nil)

	m.ObserveExtraction(consultation.FormatDocument, nil)
	m.ObserveExtraction("", consultation.ErrUnsupportedFormat)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExtractionResult.WithLabelValues("document", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExtractionResult.WithLabelValues("unknown", "unsupported_format")))
}

func TestCause(t *testing.T) {
	assert.Equal(t, "upstream_unavailable", Cause(fmt.Errorf("%w: 503", consultation.ErrUpstreamUnavailable)))
	assert.Equal(t, "other", Cause(errors.New("boom")))
}
