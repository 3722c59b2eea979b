package factory

import (
	"testing"

	"ai-consultation-be/pkg/llm/gemini"
	"ai-consultation-be/pkg/llm/huggingface"
	"ai-consultation-be/pkg/llm/ollama"
	"ai-consultation-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    interface{}
		wantErr bool
	}{
		{name: "gemini default", cfg: Config{APIKey: "k"}, want: &gemini.GeminiProvider{}},
		{name: "gemini without key", cfg: Config{Provider: "gemini"}, wantErr: true},
		{name: "ollama", cfg: Config{Provider: "ollama"}, want: &ollama.OllamaProvider{}},
		{name: "openai", cfg: Config{Provider: "openai", APIKey: "k"}, want: &openai.OpenAIProvider{}},
		{name: "openai without key", cfg: Config{Provider: "openai"}, wantErr: true},
		{name: "huggingface", cfg: Config{Provider: "huggingface"}, want: &huggingface.HuggingFaceProvider{}},
		{name: "unknown", cfg: Config{Provider: "bard"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestOllamaDefaultsBaseURL(t *testing.T) {
	p, err := NewLLMProvider(Config{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", p.(*ollama.OllamaProvider).BaseURL)
}
