package generation

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/domain/conversation"
)

type sliceStream struct {
	fragments []string
	err       error
	closed    bool
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func TestRecent(t *testing.T) {
	history := make([]conversation.Message, 5)
	for i := range history {
		history[i] = conversation.Message{ID: fmt.Sprint(i)}
	}

	assert.Len(t, Recent(history, 10), 5)
	assert.Nil(t, Recent(history, 0))

	last := Recent(history, 2)
	require.Len(t, last, 2)
	assert.Equal(t, "3", last[0].ID)
	assert.Equal(t, "4", last[1].ID)
}

func TestCollect(t *testing.T) {
	stream := &sliceStream{fragments: []string{"Hel", "lo", "!"}}
	text, err := Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.True(t, stream.closed)
}

func TestCollectReturnsPartialTextOnFailure(t *testing.T) {
	boom := NewError(KindTimeout, errors.New("deadline"))
	stream := &sliceStream{fragments: []string{"a", "b"}, err: boom}

	text, err := Collect(stream)
	assert.Equal(t, "ab", text)
	assert.ErrorIs(t, err, boom)
}

func TestUserMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewError(KindAuth, nil), "Our support system is temporarily unavailable. Please try again later."},
		{NewError(KindRateLimit, nil), "We're experiencing high demand. Please try again in a moment."},
		{NewError(KindTimeout, nil), "Sorry, I'm taking longer than expected. Please try again."},
		{NewError(KindNetwork, nil), "Connection error. Please check your internet and try again."},
		{NewError(KindMalformed, nil), "No response from AI"},
		{NewError("bogus", nil), "Something went wrong. Please try again."},
		{fmt.Errorf("wrapped: %w", NewError(KindTimeout, nil)), "Sorry, I'm taking longer than expected. Please try again."},
		{errors.New("raw upstream body with secrets"), "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.err))
	}
}

func TestErrorKeepsCause(t *testing.T) {
	cause := errors.New("401 invalid api key sk-xxx")
	err := NewError(KindAuth, cause)

	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.UserMessage(), "sk-xxx")
	assert.Equal(t, KindAuth, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(cause))
}
