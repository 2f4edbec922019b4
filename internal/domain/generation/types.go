package generation

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/janhq/support-chat/internal/domain/conversation"
)

// Generator produces assistant replies from recent history plus the active user text.
type Generator interface {
	// Generate returns the complete reply.
	Generate(ctx context.Context, history []conversation.Message, userText string) (string, error)
	// GenerateStream returns a finite, non-restartable sequence of non-empty fragments.
	GenerateStream(ctx context.Context, history []conversation.Message, userText string) (Stream, error)
}

// Stream is a pull iterator over reply fragments. Recv returns io.EOF after the last
// fragment. Callers stop consuming by calling Close.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Recent returns at most max of the newest history entries. max <= 0 yields no history.
func Recent(history []conversation.Message, max int) []conversation.Message {
	if max <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}

// Collect drains stream and returns the concatenated fragments. The stream is closed.
func Collect(stream Stream) (string, error) {
	defer stream.Close()

	var builder strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return builder.String(), nil
		}
		if err != nil {
			return builder.String(), err
		}
		builder.WriteString(fragment)
	}
}
