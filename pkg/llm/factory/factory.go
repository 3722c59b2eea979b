package factory

import (
	"ai-consultation-be/pkg/llm"
	"ai-consultation-be/pkg/llm/gemini"
	"ai-consultation-be/pkg/llm/huggingface"
	"ai-consultation-be/pkg/llm/ollama"
	"ai-consultation-be/pkg/llm/openai"
	"fmt"
)

// Config selects and parameterizes one backend.
type Config struct {
	Provider    string // gemini | ollama | openai | huggingface
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	defaults := llm.Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	switch cfg.Provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, defaults), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, defaults), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, defaults), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, defaults), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
