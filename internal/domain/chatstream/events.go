package chatstream

import (
	"time"

	"github.com/janhq/support-chat/internal/domain/conversation"
)

// Event names exchanged on a streaming connection.
const (
	EventSendMessage     = "sendMessage"
	EventMessageReceived = "messageReceived"
	EventTypingStart     = "typingStart"
	EventStreamChunk     = "streamChunk"
	EventStreamComplete  = "streamComplete"
	EventError           = "error"
	EventTypingStop      = "typingStop"
)

// Client-facing messages emitted by the protocol itself.
const (
	BusyMessage        = "Please wait for the current reply to finish."
	UnsupportedMessage = "Unsupported event"
	GenericMessage     = "Something went wrong. Please try again."
)

// Event is one server-to-client emission. Data is nil for the typing signals.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// SendMessage is the payload of the client's sendMessage event.
type SendMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// MessagePayload is a persisted message as seen by streaming clients.
type MessagePayload struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type MessageReceived struct {
	SessionID   string         `json:"sessionId"`
	UserMessage MessagePayload `json:"userMessage"`
}

type StreamChunk struct {
	Chunk     string `json:"chunk"`
	MessageID string `json:"messageId"`
}

type StreamComplete struct {
	SessionID string         `json:"sessionId"`
	AIMessage MessagePayload `json:"aiMessage"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewMessagePayload converts a stored message.
func NewMessagePayload(msg conversation.Message) MessagePayload {
	return MessagePayload{
		ID:        msg.ID,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		Timestamp: conversation.FormatTimestamp(msg.Timestamp),
	}
}

// ErrorEvent builds an error event with a client-safe message.
func ErrorEvent(message string) Event {
	return Event{Name: EventError, Data: ErrorPayload{Message: message}}
}

// Emitter delivers events to one connected client. Emit is called from one goroutine per
// turn; implementations serialize with any other writer on the same connection.
type Emitter interface {
	Emit(event Event) error
	// Closed reports whether the peer is gone. Nothing is emitted once it returns true.
	Closed() bool
}

// Observer receives turn outcomes, typically for metrics.
type Observer interface {
	ObserveTurn(channel, outcome string, duration time.Duration)
	ObserveChunk(channel string)
}

// Turn outcomes reported to the Observer.
const (
	OutcomeCompleted       = "completed"
	OutcomeGenerationError = "generation_error"
	OutcomeRejected        = "rejected"
	OutcomeFailed          = "failed"
)

// NopObserver returns an Observer that discards everything.
func NopObserver() Observer {
	return nopObserver{}
}

type nopObserver struct{}

func (nopObserver) ObserveTurn(string, string, time.Duration) {}
func (nopObserver) ObserveChunk(string)                       {}
