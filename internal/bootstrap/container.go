package bootstrap

import (
	"log"

	"answerhub-be/internal/config"
	"answerhub-be/internal/constant"
	"answerhub-be/internal/controller"
	"answerhub-be/internal/pkg/logger"
	"answerhub-be/internal/repository/memory"
	"answerhub-be/internal/repository/unitofwork"
	"answerhub-be/internal/service"
	"answerhub-be/pkg/llm/factory"
	"answerhub-be/pkg/nats"
	"answerhub-be/pkg/pipeline/classify"
	"answerhub-be/pkg/pipeline/orchestrate"
	"answerhub-be/pkg/pipeline/retrieve"
	"answerhub-be/pkg/pipeline/stream"
	"answerhub-be/pkg/regulator"
	"answerhub-be/pkg/search"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	SysLogger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	llmLogger := service.InitPipelineLogger()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Pipeline components
	llmBaseURL := cfg.Ai.LLMBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	sysLogger.Info("bootstrap", "LLM provider initialized", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	searchClient := search.NewClient(cfg.Search.Endpoint, cfg.Search.APIKey)
	if cfg.Search.APIVersion != "" {
		searchClient.APIVersion = cfg.Search.APIVersion
	}

	gateway := retrieve.NewGateway(searchClient, retrieve.Config{
		HelpGuidesIndex:         cfg.Search.HelpGuidesIndex,
		PricingIndex:            cfg.Search.PricingIndex,
		RegulatorIndex:          cfg.Search.RegulatorIndex,
		RegulatorSemanticConfig: cfg.Search.RegulatorSemanticConfig,
		ChunkIndex:              cfg.Search.WebsiteChunkIndex,
		EdgeIndex:               cfg.Search.WebsiteEdgeIndex,
	}, llmLogger)

	classifier := classify.NewClassifier(gateway, llmProvider, llmLogger)
	regulatorClient := regulator.NewClient(cfg.Regulator.BaseURL, cfg.Regulator.Username, llmLogger)

	answerPipeline := orchestrate.NewPipeline(llmProvider, classifier, gateway, regulatorClient, llmLogger)
	relay := stream.NewRelay(llmLogger)

	// 4. Conversation cache: shared Redis when configured, process-local fallback
	var conversations memory.ConversationCache
	redisCache, err := memory.NewRedisConversationRepository(cfg.App.RedisURL, llmLogger)
	if err != nil {
		sysLogger.Warn("bootstrap", "Redis unavailable, using in-memory conversation cache", map[string]interface{}{
			"error": err.Error(),
		})
		conversations = memory.NewConversationRepository()
	} else {
		conversations = redisCache
		sysLogger.Info("bootstrap", "Using Redis conversation cache", nil)
	}

	// 5. Services. Routing analytics ride the in-process channel broker
	// unless a shared NATS bus is configured.
	var publisherService service.IPublisherService
	var consumerService service.IConsumerService
	if cfg.App.NatsURL != "" {
		natsPublisher, pubErr := nats.NewPublisher(cfg.App.NatsURL, constant.QueryRoutedSubject)
		natsSubscriber, subErr := nats.NewSubscriber(cfg.App.NatsURL)
		if pubErr != nil || subErr != nil {
			log.Fatalf("[FATAL] Failed to connect to NATS at %s: pub=%v sub=%v", cfg.App.NatsURL, pubErr, subErr)
		}
		publisherService = natsPublisher
		consumerService = service.NewNatsConsumerService(natsSubscriber, uowFactory)
		sysLogger.Info("bootstrap", "Routing events on NATS JetStream", map[string]interface{}{
			"subject": constant.QueryRoutedSubject,
		})
	} else {
		publisherService = service.NewPublisherService(pubSub, constant.QueryRoutedTopicName)
		consumerService = service.NewConsumerService(pubSub, constant.QueryRoutedTopicName, uowFactory)
	}

	chatService := service.NewChatService(
		uowFactory,
		answerPipeline,
		relay,
		conversations,
		publisherService,
		llmLogger,
	)

	// 6. Controllers
	return &Container{
		ChatController:  controller.NewChatController(chatService),
		ConsumerService: consumerService,
		SysLogger:       sysLogger,
	}
}
