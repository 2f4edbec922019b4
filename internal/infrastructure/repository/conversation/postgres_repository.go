package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/database/entities"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// PostgresRepository persists conversations and messages with GORM.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository builds the GORM-backed store.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ domain.Store = (*PostgresRepository)(nil)

// CreateConversation inserts a new conversation with a fresh id.
func (r *PostgresRepository) CreateConversation(ctx context.Context, metadata map[string]any) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        domain.NewID(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Metadata:  metadata,
	}

	if err := r.db.WithContext(ctx).Create(entities.NewSchemaConversation(conv)).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create conversation",
			err,
			"1e2f3a4b-conversation-create",
		)
	}
	return conv, nil
}

// FindConversation fetches a conversation by id.
func (r *PostgresRepository) FindConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch conversation",
			err,
			"2f3a4b5c-conversation-find",
		)
	}
	return entity.EtoD(), nil
}

// AppendMessage inserts msg, clamping its timestamp to the newest one already stored.
func (r *PostgresRepository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner entities.Conversation
		if err := tx.Select("id").Where("id = ?", msg.ConversationID).First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrConversationNotFound
			}
			return fmt.Errorf("lookup conversation: %w", err)
		}

		var latest []entities.Message
		if err := tx.Where("conversation_id = ?", msg.ConversationID).
			Order("timestamp DESC").
			Limit(1).
			Find(&latest).Error; err != nil {
			return fmt.Errorf("read latest message: %w", err)
		}
		if len(latest) == 1 && msg.Timestamp.Before(latest[0].Timestamp) {
			msg.Timestamp = latest[0].Timestamp.UTC()
		}

		return tx.Create(entities.NewSchemaMessage(msg)).Error
	})
	if err != nil {
		return platformerrors.NewErrorWithContext(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to append message",
			err,
			"3a4b5c6d-message-append",
			map[string]any{"conversation_id": msg.ConversationID},
		)
	}
	return nil
}

// ListMessages returns every message of the conversation in store order.
func (r *PostgresRepository) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list messages",
			err,
			"4b5c6d7e-message-list",
		)
	}

	messages := make([]domain.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].EtoD()
	}
	return messages, nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
