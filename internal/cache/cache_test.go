package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venomshop/backend/internal/domain"
)

func TestMemoryAnswerCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryAnswerCache()
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", &domain.AssistantReply{Reply: "profit is 25", Source: "local"}, time.Minute))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "profit is 25", got.Reply)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopAnswerCacheNeverHits(t *testing.T) {
	ctx := context.Background()
	var c AnswerCache = NoopAnswerCache{}
	require.NoError(t, c.Set(ctx, "k", &domain.AssistantReply{Reply: "x"}, time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
