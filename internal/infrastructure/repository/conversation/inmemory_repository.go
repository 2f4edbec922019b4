package conversation

import (
	"context"
	"sync"
	"time"

	domain "github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// InMemoryRepository keeps conversations in process memory.
type InMemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
}

// NewInMemoryRepository returns an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
	}
}

var _ domain.Store = (*InMemoryRepository)(nil)

func (r *InMemoryRepository) CreateConversation(_ context.Context, metadata map[string]any) (*domain.Conversation, error) {
	conv := domain.Conversation{
		ID:        domain.NewID(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Metadata:  metadata,
	}

	r.mu.Lock()
	r.conversations[conv.ID] = conv
	r.mu.Unlock()

	return &conv, nil
}

func (r *InMemoryRepository) FindConversation(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return &conv, nil
}

func (r *InMemoryRepository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[msg.ConversationID]; !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to append message", domain.ErrConversationNotFound, "5c6d7e8f-memory-append")
	}

	existing := r.messages[msg.ConversationID]
	if n := len(existing); n > 0 && msg.Timestamp.Before(existing[n-1].Timestamp) {
		msg.Timestamp = existing[n-1].Timestamp
	}
	r.messages[msg.ConversationID] = append(existing, *msg)
	return nil
}

func (r *InMemoryRepository) ListMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.messages[conversationID]
	out := make([]domain.Message, len(stored))
	copy(out, stored)
	return out, nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(context.Context) error {
	return nil
}
