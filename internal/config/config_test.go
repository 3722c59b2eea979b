package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_IDLE_TTL", "")
	t.Setenv("QUESTION_COUNT", "not-a-number")

	cfg := Load()

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, 20, cfg.App.MaxUploadMB)
	assert.Equal(t, time.Hour, cfg.Consultation.SessionIdleTTL)
	assert.Equal(t, 5, cfg.Consultation.QuestionCount)
	assert.True(t, cfg.Consultation.ResearchFetchPages)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_IDLE_TTL", "90m")
	t.Setenv("LLM_TEMPERATURE", "0.4")
	t.Setenv("RESEARCH_FETCH_PAGES", "false")
	t.Setenv("LOOKUP_POLICY", "llm")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, 90*time.Minute, cfg.Consultation.SessionIdleTTL)
	assert.InDelta(t, 0.4, cfg.Ai.Temperature, 1e-9)
	assert.False(t, cfg.Consultation.ResearchFetchPages)
	assert.Equal(t, "llm", cfg.Consultation.LookupPolicy)
	assert.True(t, cfg.IsProduction())
}
