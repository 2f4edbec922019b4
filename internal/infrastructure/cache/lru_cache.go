package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
)

const backendMemory = "memory"

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUCache is a bounded, process-local cache backend with per-entry expiry.
type LRUCache struct {
	entries *lru.Cache
	now     func() time.Time
}

// NewLRUCache builds a cache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{entries: entries, now: time.Now}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, error) {
	raw, ok := c.entries.Get(key)
	if !ok {
		metrics.RecordCacheOperation(backendMemory, "get", "miss")
		return nil, conversation.ErrCacheMiss
	}

	entry := raw.(lruEntry)
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		metrics.RecordCacheOperation(backendMemory, "get", "miss")
		return nil, conversation.ErrCacheMiss
	}

	metrics.RecordCacheOperation(backendMemory, "get", "hit")
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(key, entry)
	metrics.RecordCacheOperation(backendMemory, "set", "ok")
	return nil
}

func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.entries.Remove(key)
	metrics.RecordCacheOperation(backendMemory, "delete", "ok")
	return nil
}

// Len reports the number of live and expired-but-unevicted entries.
func (c *LRUCache) Len() int {
	return c.entries.Len()
}
