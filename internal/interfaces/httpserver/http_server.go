package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/janhq/support-chat/docs/swagger"
	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain/admission"
	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/routes"
)

const maxBodyBytes = 1 << 20

// Admission configures request rate limiting. A nil Limiter disables it.
type Admission struct {
	Limiter admission.Limiter
	Chat    admission.Rule
	Global  admission.Rule
}

// HTTPServer is the HTTP server for the support chat API.
type HTTPServer struct {
	cfg         *config.Config
	engine      *gin.Engine
	log         zerolog.Logger
	handlerProv *handlers.Provider
	routeProv   *routes.Provider
}

// New creates a new HTTP server.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	handlerProvider *handlers.Provider,
	authValidator *auth.Validator,
	limits Admission,
) *HTTPServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// Apply middlewares in order
	engine.Use(middlewares.RequestID())
	engine.Use(middlewares.Tracing(cfg.ServiceName))
	engine.Use(middlewares.Metrics())
	engine.Use(middlewares.CORSWithConfig(middlewares.DefaultCORSConfig(cfg.CORSOrigins())))
	engine.Use(middlewares.RequestLoggerWithLogger(log))
	engine.Use(middlewares.BodyLimit(maxBodyBytes))

	// Public routes (no auth)
	registerCoreRoutes(engine, cfg, handlerProvider.Health)

	var routeLimits routes.Limits
	if limits.Limiter != nil {
		routeLimits = routes.Limits{
			Global: middlewares.GlobalRateLimit(limits.Limiter, limits.Global),
			Chat:   middlewares.ChatRateLimit(limits.Limiter, limits.Chat),
		}
	}
	routeProvider := routes.NewProvider(handlerProvider, authValidator, routeLimits)
	routeProvider.Register(engine)

	return &HTTPServer{
		cfg:         cfg,
		engine:      engine,
		log:         log,
		handlerProv: handlerProvider,
		routeProv:   routeProvider,
	}
}

// Handler exposes the engine for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}

func registerCoreRoutes(engine *gin.Engine, cfg *config.Config, health *handlers.HealthHandler) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": cfg.ServiceName,
			"status":  "ok",
			"features": gin.H{
				"rest":      true,
				"websocket": true,
				"sse":       true,
				"auth":      cfg.AuthEnabled,
				"rateLimit": cfg.RateLimitEnabled,
			},
		})
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	engine.GET("/readyz", func(c *gin.Context) {
		readiness := health.Readiness(c.Request.Context())
		status := http.StatusOK
		if !readiness.Ready() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, readiness)
	})

	// Prometheus metrics endpoint
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
