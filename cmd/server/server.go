// @title           Support Chat API
// @version         1.0
// @description     Customer support chat service.
// @description     Answers shoppers over REST, Server-Sent Events, and WebSocket with an LLM-backed assistant.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3001
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token, required only when AUTH_ENABLED is true

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/infrastructure/logger"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
	"github.com/janhq/support-chat/internal/interfaces/httpserver"
)

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	resources  *Resources
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(httpServer *httpserver.HTTPServer, resources *Resources, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		resources:  resources,
		log:        log,
	}
}

// Start runs the HTTP server until ctx is cancelled, then releases backing connections.
func (a *Application) Start(ctx context.Context) error {
	err := a.httpServer.Run(ctx)
	a.resources.Close(a.log)
	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup observability
	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	resources, err := ProvideResources(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backing services")
	}

	authValidator, err := ProvideAuthValidator(ctx, cfg, log)
	if err != nil {
		resources.Close(log)
		log.Fatal().Err(err).Msg("failed to initialize auth validator")
	}

	generator, err := ProvideGenerator(cfg, log)
	if err != nil {
		resources.Close(log)
		log.Fatal().Err(err).Msg("failed to initialize generator")
	}

	limits := ProvideAdmission(cfg, resources, log)
	chatService := ProvideChatService(cfg, resources, generator, log)
	protocol := ProvideProtocol(chatService, generator, limits, log)
	handlerProvider := ProvideHandlers(cfg, chatService, protocol, resources, generator, log)

	httpServer := httpserver.New(cfg, log, handlerProvider, authValidator, limits)
	app := NewApplication(httpServer, resources, log)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("store", cfg.StoreBackend).
		Str("cache", resources.CacheName).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
