package chat_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/generation"
	repo "github.com/janhq/support-chat/internal/infrastructure/repository/conversation"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

type MockGenerator struct {
	GenerateFunc       func(ctx context.Context, history []conversation.Message, userText string) (string, error)
	GenerateStreamFunc func(ctx context.Context, history []conversation.Message, userText string) (generation.Stream, error)
}

func (m *MockGenerator) Generate(ctx context.Context, history []conversation.Message, userText string) (string, error) {
	return m.GenerateFunc(ctx, history, userText)
}

func (m *MockGenerator) GenerateStream(ctx context.Context, history []conversation.Message, userText string) (generation.Stream, error) {
	return m.GenerateStreamFunc(ctx, history, userText)
}

type noopStream struct{}

func (noopStream) Recv() (string, error) { return "", io.EOF }
func (noopStream) Close() error          { return nil }

func newService(t *testing.T, gen *MockGenerator) (chat.Service, *repo.InMemoryRepository) {
	t.Helper()
	store := repo.NewInMemoryRepository()
	history := conversation.NewHistory(store, nil, time.Minute, zerolog.Nop())
	if gen.GenerateStreamFunc == nil {
		gen.GenerateStreamFunc = func(context.Context, []conversation.Message, string) (generation.Stream, error) {
			return noopStream{}, nil
		}
	}
	svc := chat.NewService(store, history, gen, chat.Config{MaxMessageLength: 20}, nil, zerolog.Nop())
	return svc, store
}

func TestHandleTurnStartsConversation(t *testing.T) {
	var seenHistory []conversation.Message
	var seenText string
	gen := &MockGenerator{
		GenerateFunc: func(_ context.Context, history []conversation.Message, userText string) (string, error) {
			seenHistory = history
			seenText = userText
			return "Hi! How can I help?", nil
		},
	}
	svc, store := newService(t, gen)
	ctx := context.Background()

	turn, err := svc.HandleTurn(ctx, chat.TurnInput{Text: "  Hello  ", Channel: chat.ChannelREST})
	require.NoError(t, err)

	assert.True(t, conversation.IsValidID(turn.ConversationID))
	assert.Equal(t, "Hello", seenText)
	assert.Empty(t, seenHistory)
	assert.Equal(t, "Hi! How can I help?", turn.ReplyText)

	conv, err := store.FindConversation(ctx, turn.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, chat.ChannelREST, conv.Metadata["channel"])

	messages, err := store.ListMessages(ctx, turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, conversation.SenderUser, messages[0].Sender)
	assert.Equal(t, "Hello", messages[0].Text)
	assert.Equal(t, conversation.SenderAssistant, messages[1].Sender)
	assert.Equal(t, turn.AssistantMessage.ID, messages[1].ID)
}

func TestHandleTurnContinuesConversation(t *testing.T) {
	calls := 0
	var lastHistory []conversation.Message
	gen := &MockGenerator{
		GenerateFunc: func(_ context.Context, history []conversation.Message, _ string) (string, error) {
			calls++
			lastHistory = history
			return "reply", nil
		},
	}
	svc, store := newService(t, gen)
	ctx := context.Background()

	first, err := svc.HandleTurn(ctx, chat.TurnInput{Text: "first"})
	require.NoError(t, err)

	second, err := svc.HandleTurn(ctx, chat.TurnInput{SessionID: first.ConversationID, Text: "second"})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// The active user message is passed separately, never as history.
	require.Len(t, lastHistory, 2)
	assert.Equal(t, "first", lastHistory[0].Text)
	assert.Equal(t, "reply", lastHistory[1].Text)

	messages, err := store.ListMessages(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
	assert.Equal(t, 2, calls)
}

func TestHandleTurnUnknownSessionStartsNewConversation(t *testing.T) {
	gen := &MockGenerator{
		GenerateFunc: func(context.Context, []conversation.Message, string) (string, error) {
			return "ok", nil
		},
	}
	svc, _ := newService(t, gen)

	for _, session := range []string{conversation.NewID(), "not-a-uuid"} {
		turn, err := svc.HandleTurn(context.Background(), chat.TurnInput{SessionID: session, Text: "hi"})
		require.NoError(t, err)
		assert.NotEqual(t, session, turn.ConversationID)
		assert.True(t, conversation.IsValidID(turn.ConversationID))
	}
}

func TestHandleTurnValidation(t *testing.T) {
	gen := &MockGenerator{
		GenerateFunc: func(context.Context, []conversation.Message, string) (string, error) {
			t.Fatal("generator must not run for invalid input")
			return "", nil
		},
	}
	svc, _ := newService(t, gen)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", chat.MessageEmpty},
		{"whitespace", " \n\t ", chat.MessageEmpty},
		{"too long", strings.Repeat("é", 21), "Message too long (max 20 characters)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.HandleTurn(context.Background(), chat.TurnInput{Text: tt.text})
			require.Error(t, err)
			platformErr := platformerrors.GetPlatformError(err)
			require.NotNil(t, platformErr)
			assert.Equal(t, platformerrors.ErrorTypeValidation, platformErr.Type)
			assert.Equal(t, tt.want, platformErr.Message)
		})
	}
}

func TestHandleTurnGenerationFailureKeepsUserMessage(t *testing.T) {
	gen := &MockGenerator{
		GenerateFunc: func(context.Context, []conversation.Message, string) (string, error) {
			return "", generation.NewError(generation.KindTimeout, errors.New("context deadline exceeded"))
		},
	}
	svc, store := newService(t, gen)
	ctx := context.Background()

	accepted, err := svc.Accept(ctx, chat.TurnInput{Text: "warm up"})
	require.NoError(t, err)

	_, err = svc.HandleTurn(ctx, chat.TurnInput{SessionID: accepted.ConversationID, Text: "are you there?"})
	require.Error(t, err)

	platformErr := platformerrors.GetPlatformError(err)
	require.NotNil(t, platformErr)
	assert.Equal(t, platformerrors.ErrorTypeGeneration, platformErr.Type)
	assert.Equal(t, "Sorry, I'm taking longer than expected. Please try again.", platformErr.Message)
	assert.Equal(t, generation.KindTimeout, generation.KindOf(err))

	messages, err := store.ListMessages(ctx, accepted.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, msg := range messages {
		assert.Equal(t, conversation.SenderUser, msg.Sender)
	}
}

func TestGetHistory(t *testing.T) {
	gen := &MockGenerator{
		GenerateFunc: func(context.Context, []conversation.Message, string) (string, error) {
			return "answer", nil
		},
	}
	svc, _ := newService(t, gen)
	ctx := context.Background()

	turn, err := svc.HandleTurn(ctx, chat.TurnInput{Text: "question"})
	require.NoError(t, err)

	messages, err := svc.GetHistory(ctx, turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "question", messages[0].Text)
	assert.Equal(t, "answer", messages[1].Text)

	_, err = svc.GetHistory(ctx, "abc")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.GetHistory(ctx, conversation.NewID())
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.Equal(t, chat.ConversationNotFound, platformerrors.GetPlatformError(err).Message)
}

func TestReplyContextExcludesActiveMessage(t *testing.T) {
	svc, _ := newService(t, &MockGenerator{})
	ctx := context.Background()

	accepted, err := svc.Accept(ctx, chat.TurnInput{Text: "only message", Channel: chat.ChannelWebSocket})
	require.NoError(t, err)
	assert.True(t, accepted.Created)

	history, err := svc.ReplyContext(ctx, accepted.ConversationID)
	require.NoError(t, err)
	assert.Empty(t, history)

	reply, err := svc.CompleteReply(ctx, accepted.ConversationID, "", "streamed reply")
	require.NoError(t, err)
	assert.Equal(t, conversation.SenderAssistant, reply.Sender)
	assert.False(t, reply.Timestamp.Before(accepted.UserMessage.Timestamp))
}
