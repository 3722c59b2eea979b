package logger

import (
	"ai-consultation-be/pkg/consultation"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ consultation.Logger = &ZapLogger{}

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Info("PIPELINE", "Stage finished", map[string]interface{}{"stage": "synthesis"})
	l.Error("GATEWAY", "Provider call failed", map[string]interface{}{"error": "timeout"})
	l.Debug("SESSION", "nil details", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "PIPELINE", first["module"])
	assert.Equal(t, map[string]interface{}{"stage": "synthesis"}, first["details"])

	assert.Equal(t, "timeout", entries[1].ContextMap()["error_ref"])
	assert.Equal(t, map[string]interface{}{}, entries[2].ContextMap()["details"])
}
