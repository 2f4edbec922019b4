package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/requests"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/responses"
)

// RegisterChatRoutes registers the chat routes.
func RegisterChatRoutes(router *gin.RouterGroup, provider *handlers.Provider, chatLimit gin.HandlerFunc) {
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if chatLimit == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{chatLimit, handler}
	}

	router.POST("/message", limited(sendMessage(provider.Chat))...)
	router.GET("/history/:sessionId", limited(getHistory(provider.Chat))...)
	router.POST("/stream", limited(streamMessage(provider.Chat, provider.Stream))...)
	router.GET("/health", chatHealth(provider.Chat))

	// Streaming turns are admitted per sendMessage event inside the connection.
	router.GET("/ws", chatSocket(provider.Stream))
}

// sendMessage godoc
// @Summary      Send a chat message
// @Description  Stores the message, generates the assistant reply, and returns it. Omit sessionId to start a new conversation; an unknown sessionId also starts one.
// @Tags         Chat API
// @Accept       json
// @Produce      json
// @Param        request body requests.SendMessageRequest true "Message"
// @Success      200 {object} responses.SendMessageResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      429 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Failure      503 {object} responses.ErrorResponse
// @Router       /v1/chat/message [post]
func sendMessage(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindSendMessage(c, handler.MaxMessageLength())
		if !ok {
			return
		}

		resp, err := handler.SendMessage(c.Request.Context(), req)
		if err != nil {
			responses.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// getHistory godoc
// @Summary      Get conversation history
// @Description  Returns every message of a conversation in timestamp order.
// @Tags         Chat API
// @Produce      json
// @Param        sessionId path string true "Conversation ID (UUID)"
// @Success      200 {object} responses.HistoryResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      429 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Router       /v1/chat/history/{sessionId} [get]
func getHistory(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := handler.GetHistory(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			responses.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// streamMessage godoc
// @Summary      Stream a chat reply
// @Description  Runs one turn and streams its events (messageReceived, typingStart, streamChunk, streamComplete or error, typingStop) as Server-Sent Events. Validation and rate-limit failures are returned as JSON before the stream opens.
// @Tags         Chat API
// @Accept       json
// @Produce      text/event-stream
// @Param        request body requests.SendMessageRequest true "Message"
// @Success      200 {string} string "event stream"
// @Failure      400 {object} responses.ErrorResponse
// @Failure      429 {object} responses.ErrorResponse
// @Router       /v1/chat/stream [post]
func streamMessage(chatHandler *handlers.ChatHandler, streamHandler *handlers.StreamHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindSendMessage(c, chatHandler.MaxMessageLength())
		if !ok {
			return
		}
		streamHandler.ServeSSE(c, req)
	}
}

// chatHealth godoc
// @Summary      Chat health check
// @Tags         Chat API
// @Produce      json
// @Success      200 {object} responses.HealthResponse
// @Router       /v1/chat/health [get]
func chatHealth(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, handler.Health())
	}
}

// chatSocket godoc
// @Summary      Chat WebSocket
// @Description  Upgrades to a WebSocket carrying JSON frames {"event","data"}. Send sendMessage {message, sessionId?}; receive messageReceived, typingStart, streamChunk, streamComplete, error, typingStop.
// @Tags         Chat API
// @Success      101 {string} string "switching protocols"
// @Failure      429 {object} responses.ErrorResponse
// @Router       /v1/chat/ws [get]
func chatSocket(handler *handlers.StreamHandler) gin.HandlerFunc {
	return handler.ServeWebSocket
}

func bindSendMessage(c *gin.Context, maxLength int) (requests.SendMessageRequest, bool) {
	var req requests.SendMessageRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		responses.HandleValidationError(c, requests.BindingMessage(err))
		return req, false
	}
	if message := req.Validate(maxLength); message != "" {
		responses.HandleValidationError(c, message)
		return req, false
	}
	return req, true
}
