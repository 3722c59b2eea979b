package bootstrap

import (
	"context"
	"fmt"
	"time"

	"ai-consultation-be/internal/config"
	"ai-consultation-be/internal/constant"
	"ai-consultation-be/internal/controller"
	"ai-consultation-be/internal/pkg/logger"
	"ai-consultation-be/internal/pkg/metrics"
	"ai-consultation-be/internal/repository/contract"
	"ai-consultation-be/internal/repository/implementation"
	"ai-consultation-be/internal/repository/memory"
	"ai-consultation-be/internal/repository/redisstore"
	"ai-consultation-be/internal/service"
	"ai-consultation-be/pkg/assessment"
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/conversation"
	"ai-consultation-be/pkg/extraction"
	"ai-consultation-be/pkg/extraction/ocr"
	"ai-consultation-be/pkg/intake"
	"ai-consultation-be/pkg/llm/factory"
	"ai-consultation-be/pkg/reasoning"
	"ai-consultation-be/pkg/report"
	"ai-consultation-be/pkg/research"
	"ai-consultation-be/pkg/research/google"
	"ai-consultation-be/pkg/research/scrape"

	pktNats "ai-consultation-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SystemController       controller.ISystemController
	AssessmentController   controller.IAssessmentController
	ReportController       controller.IReportController
	ConversationController controller.IConversationController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	Sweeper         *conversation.Sweeper

	Logger logger.ILogger

	pubSub    *gochannel.GoChannel
	natsPub   *pktNats.Publisher
	redisConn *redis.Client
}

// NewContainer wires every dependency. db may be nil, which disables the
// assessment archive.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	c.pubSub = gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Reasoning backend
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:    cfg.Ai.LLMProvider,
		Model:       cfg.Ai.LLMModel,
		BaseURL:     providerBaseURL(cfg),
		APIKey:      providerAPIKey(cfg),
		Temperature: cfg.Ai.Temperature,
		MaxTokens:   cfg.Ai.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})
	gateway := reasoning.NewGateway(llmProvider, sysLogger)
	retry := service.NewRetrier(cfg.Consultation.RetryMaxTries, 500*time.Millisecond)

	// 4. Extraction and intake
	dispatcher := extraction.NewDispatcher(
		extraction.PDFParser{},
		extraction.OfficeParser{},
		ocr.NewVisionClient(cfg.Keys.Google),
		sysLogger,
	)

	var transcriber intake.Transcriber
	if cfg.Keys.OpenAI != "" {
		transcriber = intake.NewWhisperTranscriber(cfg.Keys.OpenAI, cfg.Ai.TranscribeModel)
	} else {
		sysLogger.Warn("BOOTSTRAP", "OPENAI_API_KEY not set, audio intake disabled", nil)
	}
	mediaReader := intake.NewReader(transcriber, gateway, intake.Prompts{
		Describe:  constant.ImageDescriptionPromptV1,
		Summarize: constant.ImageSummaryPromptV1,
	})

	// 5. Research
	researchOpts := []research.Option{research.WithLogger(sysLogger)}
	if cfg.Consultation.ResearchFetchPages {
		researchOpts = append(researchOpts, research.WithEnricher(scrape.NewPageExtractor()))
	}
	augmenter := research.NewAugmenter(
		google.NewCustomSearch(cfg.Keys.Google, cfg.Keys.SearchEngineID, cfg.Consultation.SearchRatePerSec),
		researchOpts...,
	)

	// 6. Session storage
	var sessionStore conversation.Store
	var activeSessions func() float64
	switch cfg.Consultation.SessionBackend {
	case "redis":
		c.redisConn, err = redisstore.NewClient(ctx, cfg.App.RedisURL)
		if err != nil {
			return nil, err
		}
		sessionStore = redisstore.NewSessionRepository(c.redisConn)
	case "memory", "":
		memStore := memory.NewSessionRepository()
		sessionStore = memStore
		activeSessions = func() float64 { return float64(memStore.Count()) }
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Consultation.SessionBackend)
	}

	collectors := metrics.New(prometheus.DefaultRegisterer, activeSessions)

	// 7. Infrastructure
	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		c.natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS, events stay in-process", map[string]interface{}{"error": err.Error()})
		} else {
			forwarder = c.natsPub
		}
	}

	var archive contract.AssessmentRepository
	if db != nil {
		archive = implementation.NewAssessmentRepository(db)
	}

	// 8. Services
	publisherService := service.NewPublisherService(c.pubSub, cfg.App.EventsTopic, sysLogger)
	c.ConsumerService = service.NewConsumerService(
		c.pubSub,
		cfg.App.EventsTopic,
		forwarder,
		archive,
		sysLogger,
	)

	pipeline := assessment.New(gateway,
		assessment.Prompts{
			System:     constant.ConsultationPersonaV1,
			Symptoms:   constant.SymptomExtractionPromptV1,
			Questions:  constant.QuestionGenerationPromptV1,
			Candidates: constant.CandidateConditionsPromptV1,
			Synthesis:  constant.SynthesisPromptV1,
		},
		assessment.Config{
			QuestionCount: cfg.Consultation.QuestionCount,
			MaxTopics:     cfg.Consultation.ResearchMaxTopics,
			ResultLimit:   cfg.Consultation.ResearchResultLimit,
			QueryFormat:   constant.ResearchQueryFormatV1,
			Disclaimer:    constant.ConsultationDisclaimerV1,
		},
		assessment.WithResearcher(augmenter),
		assessment.WithMediaReader(mediaReader),
		assessment.WithLogger(sysLogger),
		assessment.WithObserver(collectors),
		assessment.WithRetrier(retry),
	)

	policy, err := conversation.PolicyByName(cfg.Consultation.LookupPolicy, gateway, constant.LookupDecisionPromptV1, sysLogger)
	if err != nil {
		return nil, err
	}
	manager := conversation.NewManager(sessionStore, gateway,
		conversation.Config{
			IdleTTL:      cfg.Consultation.SessionIdleTTL,
			System:       constant.ConversationSystemPromptV1,
			LookupPrompt: constant.ConversationLookupPromptV1,
		},
		conversation.WithResearcher(augmenter),
		conversation.WithLookupPolicy(policy),
		conversation.WithLogger(sysLogger),
		conversation.WithRetrier(retry),
		conversation.WithEvictionHook(func(ctx context.Context, s *consultation.Session) {
			collectors.SessionsEvicted.Inc()
			publisherService.PublishSessionEvicted(ctx, s)
		}),
	)
	c.Sweeper, err = conversation.NewSweeper(manager, cfg.Consultation.SessionSweepInterval, sysLogger)
	if err != nil {
		return nil, err
	}

	assessmentService := service.NewAssessmentService(pipeline, archive, publisherService, sysLogger)
	reportService := service.NewReportService(
		dispatcher,
		gateway,
		report.NewChromeRenderer(cfg.Consultation.ChromePath, 0, sysLogger),
		archive,
		publisherService,
		collectors,
		retry,
		service.ReportPrompts{
			System:   constant.ConsultationPersonaV1,
			Analysis: constant.ReportAnalysisPromptV1,
		},
		sysLogger,
	)
	conversationService := service.NewConversationService(manager, collectors.SessionTurns.Inc, sysLogger)

	// 9. Controllers
	maxUploadBytes := int64(cfg.App.MaxUploadMB) * 1024 * 1024
	c.SystemController = controller.NewSystemController("ai-consultation-be", cfg.App.Environment)
	c.AssessmentController = controller.NewAssessmentController(assessmentService, maxUploadBytes)
	c.ReportController = controller.NewReportController(reportService, maxUploadBytes)
	c.ConversationController = controller.NewConversationController(conversationService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.redisConn != nil {
		_ = c.redisConn.Close()
	}
	if c.pubSub != nil {
		_ = c.pubSub.Close()
	}
	_ = c.Logger.Sync()
}

func providerAPIKey(cfg *config.Config) string {
	switch cfg.Ai.LLMProvider {
	case "openai":
		return cfg.Keys.OpenAI
	case "huggingface":
		return cfg.Keys.HuggingFace
	case "ollama":
		return ""
	default:
		return cfg.Keys.GoogleGemini
	}
}

func providerBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return ""
}
