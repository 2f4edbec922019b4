package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/generation"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

const (
	MessageEmpty          = "Message cannot be empty"
	ConversationNotFound  = "Conversation not found"
	InvalidSessionMessage = "Invalid session ID format"
)

// Channels recorded on new conversations.
const (
	ChannelREST      = "rest"
	ChannelWebSocket = "websocket"
	ChannelSSE       = "sse"
)

// Redactor turns user or assistant text into something safe to log.
type Redactor interface {
	Redact(text string) string
}

// TurnInput is one inbound user message.
type TurnInput struct {
	SessionID string
	Text      string
	Channel   string
}

// Accepted is the persisted first half of a turn.
type Accepted struct {
	ConversationID string
	UserMessage    conversation.Message
	// Created is true when the conversation was started for this message.
	Created bool
}

// Service is the conversation orchestrator shared by the REST and streaming paths.
type Service interface {
	// HandleTurn runs a whole turn synchronously.
	HandleTurn(ctx context.Context, input TurnInput) (*conversation.Turn, error)
	// Accept resolves or creates the conversation and persists the user message.
	Accept(ctx context.Context, input TurnInput) (*Accepted, error)
	// ReplyContext loads history and returns the entries passed to generation: every entry but
	// the last, which is the user message being answered.
	ReplyContext(ctx context.Context, conversationID string) ([]conversation.Message, error)
	// CompleteReply persists the assistant message of a turn.
	CompleteReply(ctx context.Context, conversationID, replyID, text string) (conversation.Message, error)
	// GetHistory returns the messages of an existing conversation.
	GetHistory(ctx context.Context, sessionID string) ([]conversation.Message, error)
}

// Config bounds inbound messages.
type Config struct {
	MaxMessageLength int
}

type service struct {
	store     conversation.Store
	history   *conversation.History
	generator generation.Generator
	cfg       Config
	redactor  Redactor
	log       zerolog.Logger
}

// NewService wires the orchestrator with its store, history view, and generator.
func NewService(store conversation.Store, history *conversation.History, generator generation.Generator, cfg Config, redactor Redactor, log zerolog.Logger) Service {
	return &service{
		store:     store,
		history:   history,
		generator: generator,
		cfg:       cfg,
		redactor:  redactor,
		log:       log.With().Str("component", "conversation-service").Logger(),
	}
}

func (s *service) HandleTurn(ctx context.Context, input TurnInput) (*conversation.Turn, error) {
	accepted, err := s.Accept(ctx, input)
	if err != nil {
		return nil, err
	}

	history, err := s.ReplyContext(ctx, accepted.ConversationID)
	if err != nil {
		return nil, err
	}

	reply, err := s.generator.Generate(ctx, history, accepted.UserMessage.Text)
	if err != nil {
		return nil, s.generationError(ctx, accepted.ConversationID, err)
	}

	assistant, err := s.CompleteReply(ctx, accepted.ConversationID, "", reply)
	if err != nil {
		return nil, err
	}

	return &conversation.Turn{
		ConversationID:   accepted.ConversationID,
		UserMessage:      accepted.UserMessage,
		AssistantMessage: assistant,
		ReplyText:        reply,
	}, nil
}

func (s *service) Accept(ctx context.Context, input TurnInput) (*Accepted, error) {
	text, err := s.validate(ctx, input.Text)
	if err != nil {
		return nil, err
	}

	conv, created, err := s.resolve(ctx, input.SessionID, input.Channel)
	if err != nil {
		return nil, err
	}

	msg := conversation.NewMessage("", conv.ID, conversation.SenderUser, text)
	if err := s.history.Append(ctx, &msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "append user message")
	}

	s.log.Debug().
		Str("conversation_id", conv.ID).
		Str("message_id", msg.ID).
		Bool("new_conversation", created).
		Str("text", s.redact(text)).
		Msg("user message accepted")

	return &Accepted{
		ConversationID: conv.ID,
		UserMessage:    msg,
		Created:        created,
	}, nil
}

func (s *service) ReplyContext(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	history, err := s.history.Get(ctx, conversationID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load history")
	}
	if len(history) == 0 {
		return nil, nil
	}
	return history[:len(history)-1], nil
}

func (s *service) CompleteReply(ctx context.Context, conversationID, replyID, text string) (conversation.Message, error) {
	msg := conversation.NewMessage(replyID, conversationID, conversation.SenderAssistant, text)
	if err := s.history.Append(ctx, &msg); err != nil {
		return conversation.Message{}, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "append assistant message")
	}

	s.log.Debug().
		Str("conversation_id", conversationID).
		Str("message_id", msg.ID).
		Str("text", s.redact(text)).
		Msg("assistant message stored")
	return msg, nil
}

func (s *service) GetHistory(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	if !conversation.IsValidID(sessionID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			InvalidSessionMessage, nil, "6f1d2c3b-history-invalid-id")
	}

	if _, err := s.store.FindConversation(ctx, sessionID); err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
				ConversationNotFound, err, "7a2e3d4c-history-not-found")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find conversation")
	}

	messages, err := s.history.Get(ctx, sessionID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load history")
	}
	return messages, nil
}

// resolve returns the conversation named by sessionID, creating a new one when the id is
// absent, malformed, or unknown.
func (s *service) resolve(ctx context.Context, sessionID, channel string) (*conversation.Conversation, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" && conversation.IsValidID(sessionID) {
		conv, err := s.store.FindConversation(ctx, sessionID)
		if err == nil {
			return conv, false, nil
		}
		if !errors.Is(err, conversation.ErrConversationNotFound) {
			return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find conversation")
		}
		s.log.Info().Str("session_id", sessionID).Msg("unknown session, starting new conversation")
	}

	var metadata map[string]any
	if channel != "" {
		metadata = map[string]any{"channel": channel}
	}
	conv, err := s.store.CreateConversation(ctx, metadata)
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create conversation")
	}
	return conv, true, nil
}

func (s *service) validate(ctx context.Context, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			MessageEmpty, nil, "8b3f4e5d-message-empty")
	}
	if s.cfg.MaxMessageLength > 0 && utf8.RuneCountInString(text) > s.cfg.MaxMessageLength {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			TooLongMessage(s.cfg.MaxMessageLength), nil, "9c4a5f6e-message-too-long")
	}
	return text, nil
}

func (s *service) generationError(ctx context.Context, conversationID string, err error) error {
	genErr, ok := generation.AsError(err)
	if !ok {
		genErr = generation.NewError(generation.KindUnknown, err)
	}
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeGeneration,
		genErr.UserMessage(), genErr, "0d5b6a7f-generation-failed",
		map[string]any{"conversation_id": conversationID, "generation_kind": string(genErr.Kind)})
}

func (s *service) redact(text string) string {
	if s.redactor == nil {
		return "[REDACTED]"
	}
	return s.redactor.Redact(text)
}

// TooLongMessage is the validation message for oversized input.
func TooLongMessage(max int) string {
	return fmt.Sprintf("Message too long (max %d characters)", max)
}
