package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
)

// Routes holds the v1 route configuration.
type Routes struct {
	handlers  *handlers.Provider
	chatLimit gin.HandlerFunc
}

// NewRoutes creates a new v1 routes instance. chatLimit guards the chat endpoints that
// start or read a conversation.
func NewRoutes(handlerProvider *handlers.Provider, chatLimit gin.HandlerFunc) *Routes {
	return &Routes{
		handlers:  handlerProvider,
		chatLimit: chatLimit,
	}
}

// Register registers all v1 routes on the engine. Group middlewares run in the order given.
func (r *Routes) Register(engine *gin.Engine, groupMiddlewares ...gin.HandlerFunc) {
	v1 := engine.Group("/v1")
	for _, mw := range groupMiddlewares {
		if mw != nil {
			v1.Use(mw)
		}
	}
	RegisterChatRoutes(v1.Group("/chat"), r.handlers, r.chatLimit)
}
