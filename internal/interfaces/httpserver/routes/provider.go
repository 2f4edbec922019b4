package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	v1 "github.com/janhq/support-chat/internal/interfaces/httpserver/routes/v1"
)

// Limits are the admission middlewares applied to API routes. Nil entries are skipped.
type Limits struct {
	Global gin.HandlerFunc
	Chat   gin.HandlerFunc
}

// Provider holds all route providers.
type Provider struct {
	V1            *v1.Routes
	authValidator *auth.Validator
	limits        Limits
}

// NewProvider creates a new route provider.
func NewProvider(handlerProvider *handlers.Provider, authValidator *auth.Validator, limits Limits) *Provider {
	return &Provider{
		V1:            v1.NewRoutes(handlerProvider, limits.Chat),
		authValidator: authValidator,
		limits:        limits,
	}
}

// Register registers all routes on the engine.
func (p *Provider) Register(engine *gin.Engine) {
	// Global limit runs ahead of auth.
	var authMiddleware gin.HandlerFunc
	if p.authValidator != nil {
		authMiddleware = p.authValidator.Middleware()
	}
	p.V1.Register(engine, p.limits.Global, authMiddleware)
}
