package entities

import (
	"time"

	"gorm.io/datatypes"

	"github.com/janhq/support-chat/internal/domain/conversation"
)

// Conversation is the database row for a support session.
type Conversation struct {
	ID        string            `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time         `gorm:"not null"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// EtoD converts database entity to domain model
func (c *Conversation) EtoD() *conversation.Conversation {
	var metadata map[string]any
	if len(c.Metadata) > 0 {
		metadata = map[string]any(c.Metadata)
	}
	return &conversation.Conversation{
		ID:        c.ID,
		CreatedAt: c.CreatedAt.UTC(),
		Metadata:  metadata,
	}
}

// NewSchemaConversation creates a database entity from domain model
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	var metadata datatypes.JSONMap
	if len(c.Metadata) > 0 {
		metadata = datatypes.JSONMap(c.Metadata)
	}
	return &Conversation{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		Metadata:  metadata,
	}
}
