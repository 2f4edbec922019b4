package conversation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConversationNotFound is returned by Store.FindConversation for unknown ids.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrCacheMiss is returned by CacheBackend.Get when the key is absent.
	ErrCacheMiss = errors.New("cache miss")
)

// Store is the durable, ordered message log.
type Store interface {
	CreateConversation(ctx context.Context, metadata map[string]any) (*Conversation, error)
	FindConversation(ctx context.Context, id string) (*Conversation, error)
	// AppendMessage persists msg and may adjust msg.Timestamp so timestamps never decrease
	// within a conversation.
	AppendMessage(ctx context.Context, msg *Message) error
	// ListMessages returns the conversation's messages ordered by timestamp, then id.
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}

// CacheBackend is a byte-oriented key/value cache with expiry.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
