package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	// SenderAssistant is serialized as "ai" to match the chat client contract.
	SenderAssistant Sender = "ai"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// TimestampLayout is the wire format of message timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Conversation groups the ordered messages of one support session.
type Conversation struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Message is one immutable entry of a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

// Turn is the outcome of one accepted user message and its reply.
type Turn struct {
	ConversationID   string
	UserMessage      Message
	AssistantMessage Message
	ReplyText        string
}

// NewID returns a time-ordered identifier for conversations and messages.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewMessage builds an unsaved message. The store assigns the final timestamp on append.
func NewMessage(id, conversationID string, sender Sender, text string) Message {
	if id == "" {
		id = NewID()
	}
	return Message{
		ID:             id,
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

// IsValidID reports whether id is a well-formed conversation identifier.
func IsValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
