package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/domain/conversation"
)

func TestLRUCacheExpiry(t *testing.T) {
	c, err := NewLRUCache(4)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, conversation.ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c, err := NewLRUCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, conversation.ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, "b"))
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, conversation.ErrCacheMiss)
}

func TestLRUCacheReturnsCopies(t *testing.T) {
	c, err := NewLRUCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
