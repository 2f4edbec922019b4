package handlers

import (
	"context"
	"time"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/chatstream"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/requests"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/responses"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// ChatHandler serves the request/response chat endpoints.
type ChatHandler struct {
	service          chat.Service
	observer         chatstream.Observer
	maxMessageLength int
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service chat.Service, observer chatstream.Observer, settings Settings) *ChatHandler {
	if observer == nil {
		observer = chatstream.NopObserver()
	}
	return &ChatHandler{
		service:          service,
		observer:         observer,
		maxMessageLength: settings.MaxMessageLength,
	}
}

// MaxMessageLength is the ceiling applied to inbound text.
func (h *ChatHandler) MaxMessageLength() int {
	return h.maxMessageLength
}

// SendMessage runs one turn and returns the assistant reply.
func (h *ChatHandler) SendMessage(ctx context.Context, req requests.SendMessageRequest) (*responses.SendMessageResponse, error) {
	ctx, span := observability.StartTurnSpan(ctx, chat.ChannelREST, req.SessionID)
	defer span.End()

	start := time.Now()
	turn, err := h.service.HandleTurn(ctx, chat.TurnInput{
		SessionID: req.SessionID,
		Text:      req.Message,
		Channel:   chat.ChannelREST,
	})
	if err != nil {
		h.observer.ObserveTurn(chat.ChannelREST, outcomeOf(err), time.Since(start))
		observability.RecordError(span, err, "error")
		return nil, err
	}

	h.observer.ObserveTurn(chat.ChannelREST, chatstream.OutcomeCompleted, time.Since(start))
	return responses.NewSendMessageResponse(turn), nil
}

// GetHistory returns the messages of an existing conversation.
func (h *ChatHandler) GetHistory(ctx context.Context, sessionID string) (*responses.HistoryResponse, error) {
	messages, err := h.service.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return responses.NewHistoryResponse(sessionID, messages), nil
}

// Health reports liveness of the chat API.
func (h *ChatHandler) Health() *responses.HealthResponse {
	return responses.NewHealthResponse(time.Now())
}

func outcomeOf(err error) string {
	switch {
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation):
		return chatstream.OutcomeRejected
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeGeneration):
		return chatstream.OutcomeGenerationError
	default:
		return chatstream.OutcomeFailed
	}
}
