package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Keys         APIKeys
	Ai           AIConfig
	Consultation ConsultationConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	MaxUploadMB        int
	EventsTopic        string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini   string
	Google         string // custom search + vision OCR
	SearchEngineID string
	OpenAI         string
	HuggingFace    string
}

type AIConfig struct {
	LLMProvider     string // "gemini", "ollama", "openai", "huggingface"
	LLMModel        string
	OllamaBaseURL   string
	Temperature     float64
	MaxTokens       int
	TranscribeModel string
}

type ConsultationConfig struct {
	SessionBackend       string // "memory" or "redis"
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration
	LookupPolicy         string // "always", "never", "llm"
	ResearchMaxTopics    int
	ResearchResultLimit  int
	ResearchFetchPages   bool
	SearchRatePerSec     float64
	QuestionCount        int
	RetryMaxTries        int
	ChromePath           string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.json"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			MaxUploadMB:        getEnvAsInt("MAX_UPLOAD_MB", 20),
			EventsTopic:        getEnv("EVENTS_TOPIC", "consultation.events"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Google:         getEnv("GOOGLE_API_KEY", ""),
			SearchEngineID: getEnv("SEARCH_ENGINE_ID", ""),
			OpenAI:         getEnv("OPENAI_API_KEY", ""),
			HuggingFace:    getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:     getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:        getEnv("LLM_MODEL", ""),
			OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:     getEnvAsFloat("LLM_TEMPERATURE", 0.1),
			MaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 8192),
			TranscribeModel: getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		},
		Consultation: ConsultationConfig{
			SessionBackend:       getEnv("SESSION_BACKEND", "memory"),
			SessionIdleTTL:       getEnvAsDuration("SESSION_IDLE_TTL", time.Hour),
			SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
			LookupPolicy:         getEnv("LOOKUP_POLICY", "always"),
			ResearchMaxTopics:    getEnvAsInt("RESEARCH_MAX_TOPICS", 3),
			ResearchResultLimit:  getEnvAsInt("RESEARCH_RESULT_LIMIT", 5),
			ResearchFetchPages:   getEnvAsBool("RESEARCH_FETCH_PAGES", true),
			SearchRatePerSec:     getEnvAsFloat("SEARCH_RATE_PER_SEC", 2),
			QuestionCount:        getEnvAsInt("QUESTION_COUNT", 5),
			RetryMaxTries:        getEnvAsInt("RETRY_MAX_TRIES", 3),
			ChromePath:           getEnv("CHROME_PATH", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
