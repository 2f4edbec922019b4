package handlers

import (
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/chatstream"
)

// Settings are the HTTP-facing knobs handlers need from configuration.
type Settings struct {
	MaxMessageLength int
	AllowedOrigins   []string
}

// NewSettings extracts handler settings from the service configuration.
func NewSettings(cfg *config.Config) Settings {
	return Settings{
		MaxMessageLength: cfg.MaxMessageLength,
		AllowedOrigins:   cfg.CORSOrigins(),
	}
}

// Provider holds all HTTP handlers.
type Provider struct {
	Chat   *ChatHandler
	Stream *StreamHandler
	Health *HealthHandler
}

// NewProvider creates a new handler provider.
func NewProvider(chatHandler *ChatHandler, streamHandler *StreamHandler, healthHandler *HealthHandler) *Provider {
	return &Provider{
		Chat:   chatHandler,
		Stream: streamHandler,
		Health: healthHandler,
	}
}

// NewDefaultProvider wires the handlers from their domain dependencies.
func NewDefaultProvider(settings Settings, service chat.Service, protocol *chatstream.Protocol, observer chatstream.Observer, checks []ReadinessCheck, log zerolog.Logger) *Provider {
	return NewProvider(
		NewChatHandler(service, observer, settings),
		NewStreamHandler(protocol, settings, log),
		NewHealthHandler(checks),
	)
}
