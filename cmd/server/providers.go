package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain/admission"
	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/chatstream"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/infrastructure/cache"
	"github.com/janhq/support-chat/internal/infrastructure/database"
	"github.com/janhq/support-chat/internal/infrastructure/llmprovider"
	"github.com/janhq/support-chat/internal/infrastructure/logger"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
	"github.com/janhq/support-chat/internal/infrastructure/ratelimit"
	repo "github.com/janhq/support-chat/internal/infrastructure/repository/conversation"
	"github.com/janhq/support-chat/internal/interfaces/httpserver"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Resources are the backing connections shared by the domain services.
type Resources struct {
	Store     conversation.Store
	Cache     conversation.CacheBackend
	CacheName string
	Redis     *cache.RedisCache
	db        *gorm.DB
}

// Close releases Redis and database connections.
func (r *Resources) Close(log zerolog.Logger) {
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close database")
			}
		}
	}
}

// ProvideResources connects the message store and, when configured, Redis. An unreachable
// Redis degrades caching and rate limiting instead of failing startup.
func ProvideResources(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Resources, error) {
	resources := &Resources{CacheName: config.CacheBackendNone}

	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		log.Warn().Msg("using in-memory message store, conversations are lost on restart")
		resources.Store = repo.NewInMemoryRepository()
	default:
		db, err := database.Connect(database.Config{
			DSN:             cfg.DatabaseURL,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
			LogLevel:        gormlogger.Warn,
		})
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, err
		}
		resources.db = db
		resources.Store = repo.NewPostgresRepository(db)
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheOpTimeout)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without it")
		} else {
			resources.Redis = redisCache
		}
	}

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		if resources.Redis != nil {
			resources.Cache = resources.Redis
			resources.CacheName = config.CacheBackendRedis
		}
	case config.CacheBackendMemory:
		lru, err := cache.NewLRUCache(cfg.CacheMemorySize)
		if err != nil {
			return nil, err
		}
		resources.Cache = lru
		resources.CacheName = config.CacheBackendMemory
	}

	return resources, nil
}

// ProvideAuthValidator provides an auth validator.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// ProvideGenerator provides the OpenAI-compatible reply generator.
func ProvideGenerator(cfg *config.Config, log zerolog.Logger) (*llmprovider.Client, error) {
	prompt, err := llmprovider.LoadSystemPrompt(cfg.SystemPromptFile)
	if err != nil {
		return nil, err
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set, replies will fail until it is configured")
	}

	return llmprovider.NewClient(llmprovider.Config{
		APIKey:             cfg.OpenAIAPIKey,
		BaseURL:            cfg.OpenAIBaseURL,
		Model:              cfg.LLMModel,
		Temperature:        cfg.LLMTemperature,
		MaxTokens:          cfg.MaxTokens,
		MaxHistoryMessages: cfg.MaxHistoryMessages,
		Timeout:            cfg.LLMTimeout,
		SystemPrompt:       prompt,
	}, log), nil
}

// ProvideAdmission builds the rate-limit rules and their Redis limiter.
func ProvideAdmission(cfg *config.Config, resources *Resources, log zerolog.Logger) httpserver.Admission {
	chatRule := admission.ChatRule
	chatRule.Limit = cfg.ChatRateLimit
	chatRule.Window = cfg.RateLimitWindow
	globalRule := admission.GlobalRule
	globalRule.Limit = cfg.GlobalRateLimit
	globalRule.Window = cfg.RateLimitWindow

	limits := httpserver.Admission{Chat: chatRule, Global: globalRule}
	switch {
	case !cfg.RateLimitEnabled:
		log.Info().Msg("rate limiting disabled")
	case resources.Redis == nil:
		log.Warn().Msg("rate limiting needs redis, admitting all requests")
	default:
		limits.Limiter = ratelimit.NewRedisLimiter(resources.Redis, log)
	}
	return limits
}

// ProvideChatService provides the conversation orchestrator.
func ProvideChatService(cfg *config.Config, resources *Resources, generator *llmprovider.Client, log zerolog.Logger) chat.Service {
	history := conversation.NewHistory(resources.Store, resources.Cache, cfg.HistoryCacheTTL, log)
	sanitizer := logger.NewSanitizer(logger.ContentLevel(cfg.LogContent), cfg.LogHashSalt)
	return chat.NewService(resources.Store, history, generator, chat.Config{
		MaxMessageLength: cfg.MaxMessageLength,
	}, sanitizer, log)
}

// ProvideProtocol provides the streaming session protocol.
func ProvideProtocol(chatService chat.Service, generator *llmprovider.Client, limits httpserver.Admission, log zerolog.Logger) *chatstream.Protocol {
	return chatstream.NewProtocol(chatService, generator, limits.Limiter, limits.Chat, metrics.StreamObserver{}, log)
}

// ProvideReadinessChecks lists the dependencies reported on /readyz.
func ProvideReadinessChecks(resources *Resources, generator *llmprovider.Client) []handlers.ReadinessCheck {
	var checks []handlers.ReadinessCheck
	if store, ok := resources.Store.(pinger); ok {
		checks = append(checks, handlers.ReadinessCheck{Name: "database", Required: true, Check: store.Ping})
	}
	if resources.Redis != nil {
		checks = append(checks, handlers.ReadinessCheck{Name: "redis", Check: resources.Redis.HealthCheck})
	}
	checks = append(checks, handlers.ReadinessCheck{Name: "llm", Check: generator.Ping})
	return checks
}

// ProvideHandlers provides all HTTP handlers.
func ProvideHandlers(
	cfg *config.Config,
	chatService chat.Service,
	protocol *chatstream.Protocol,
	resources *Resources,
	generator *llmprovider.Client,
	log zerolog.Logger,
) *handlers.Provider {
	return handlers.NewDefaultProvider(
		handlers.NewSettings(cfg),
		chatService,
		protocol,
		metrics.StreamObserver{},
		ProvideReadinessChecks(resources, generator),
		log,
	)
}
