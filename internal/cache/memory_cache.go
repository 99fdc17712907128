package cache

import (
	"context"
	"sync"
	"time"

	"venomshop/backend/internal/domain"
)

type memoryEntry struct {
	reply     domain.AssistantReply
	expiresAt time.Time
}

// MemoryAnswerCache is the in-process fallback used when Redis is not configured.
type MemoryAnswerCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryAnswerCache() *MemoryAnswerCache {
	return &MemoryAnswerCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryAnswerCache) Get(_ context.Context, key string) (*domain.AssistantReply, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	reply := entry.reply
	return &reply, true, nil
}

func (c *MemoryAnswerCache) Set(_ context.Context, key string, value *domain.AssistantReply, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{reply: *value, expiresAt: now.Add(ttl)}
	return nil
}
