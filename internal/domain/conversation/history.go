package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultHistoryTTL bounds how long a cached history may be served.
const DefaultHistoryTTL = time.Hour

// HistoryKey returns the cache key holding a conversation's message list.
func HistoryKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:history", conversationID)
}

// History is the read-through view of a conversation's messages. Every append goes through
// it so the cached list is deleted after each write, never updated in place.
// Cache failures are logged and treated as misses.
type History struct {
	store Store
	cache CacheBackend
	ttl   time.Duration
	log   zerolog.Logger
}

// NewHistory wires the history view. A nil cache disables caching.
func NewHistory(store Store, cache CacheBackend, ttl time.Duration, log zerolog.Logger) *History {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &History{
		store: store,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "history-cache").Logger(),
	}
}

// Get returns the ordered messages of a conversation, from cache when present.
func (h *History) Get(ctx context.Context, conversationID string) ([]Message, error) {
	if messages, ok := h.cached(ctx, conversationID); ok {
		return messages, nil
	}

	messages, err := h.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	h.fill(ctx, conversationID, messages)
	return messages, nil
}

// Append persists msg and invalidates the conversation's cached history. The invalidation
// also runs when the append fails, since a failed commit may still have landed.
func (h *History) Append(ctx context.Context, msg *Message) error {
	err := h.store.AppendMessage(ctx, msg)
	h.Invalidate(ctx, msg.ConversationID)
	return err
}

// Invalidate unconditionally drops the cached history of a conversation.
func (h *History) Invalidate(ctx context.Context, conversationID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(ctx, HistoryKey(conversationID)); err != nil {
		h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("invalidate cached history")
	}
}

func (h *History) cached(ctx context.Context, conversationID string) ([]Message, bool) {
	if h.cache == nil {
		return nil, false
	}

	raw, err := h.cache.Get(ctx, HistoryKey(conversationID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("read cached history")
		}
		return nil, false
	}

	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("decode cached history")
		h.Invalidate(ctx, conversationID)
		return nil, false
	}
	return messages, true
}

func (h *History) fill(ctx context.Context, conversationID string, messages []Message) {
	if h.cache == nil {
		return
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("encode history")
		return
	}
	if err := h.cache.Set(ctx, HistoryKey(conversationID), raw, h.ttl); err != nil {
		h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("store cached history")
	}
}
