package responses

import (
	"time"

	"github.com/janhq/support-chat/internal/domain/conversation"
)

// SendMessageResponse is the reply to one REST turn.
type SendMessageResponse struct {
	Reply     string `json:"reply" example:"You can return items within 30 days of delivery."`
	SessionID string `json:"sessionId" example:"0190b6f2-3c4d-7e8f-9a0b-1c2d3e4f5a6b"`
	Timestamp string `json:"timestamp" example:"2026-01-02T15:04:05.000Z"`
}

// MessageResponse is one history entry.
type MessageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender" enums:"user,ai"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse lists a conversation in timestamp order.
type HistoryResponse struct {
	SessionID string            `json:"sessionId"`
	Messages  []MessageResponse `json:"messages"`
}

// HealthResponse is the body of the chat health check.
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse documents the JSON error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type" enums:"validation_error,not_found,rate_limit,llm_error,unauthorized,internal_error"`
	RequestID string `json:"requestId,omitempty"`
}

func NewSendMessageResponse(turn *conversation.Turn) *SendMessageResponse {
	return &SendMessageResponse{
		Reply:     turn.ReplyText,
		SessionID: turn.ConversationID,
		Timestamp: conversation.FormatTimestamp(turn.AssistantMessage.Timestamp),
	}
}

func NewHistoryResponse(sessionID string, messages []conversation.Message) *HistoryResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, MessageResponse{
			ID:        msg.ID,
			Sender:    string(msg.Sender),
			Text:      msg.Text,
			Timestamp: conversation.FormatTimestamp(msg.Timestamp),
		})
	}
	return &HistoryResponse{SessionID: sessionID, Messages: out}
}

func NewHealthResponse(now time.Time) *HealthResponse {
	return &HealthResponse{Status: "ok", Timestamp: conversation.FormatTimestamp(now)}
}
