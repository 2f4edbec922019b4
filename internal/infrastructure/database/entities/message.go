package entities

import (
	"time"

	"github.com/janhq/support-chat/internal/domain/conversation"
)

// Message stores one immutable conversation entry.
type Message struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	ConversationID string    `gorm:"type:uuid;not null;index:idx_messages_conversation_timestamp,priority:1"`
	Sender         string    `gorm:"type:varchar(8);not null"`
	Text           string    `gorm:"type:text;not null"`
	Timestamp      time.Time `gorm:"not null;index:idx_messages_conversation_timestamp,priority:2"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// EtoD converts database entity to domain model
func (m *Message) EtoD() conversation.Message {
	return conversation.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         conversation.Sender(m.Sender),
		Text:           m.Text,
		Timestamp:      m.Timestamp.UTC(),
	}
}

// NewSchemaMessage creates a database entity from domain model
func NewSchemaMessage(m *conversation.Message) *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         string(m.Sender),
		Text:           m.Text,
		Timestamp:      m.Timestamp,
	}
}
