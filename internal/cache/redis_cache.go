package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"venomshop/backend/internal/domain"
)

type RedisAnswerCache struct {
	client redis.UniversalClient
}

// NewRedisAnswerCache wraps a client owned by the caller; closing it is the caller's job.
func NewRedisAnswerCache(client redis.UniversalClient) *RedisAnswerCache {
	return &RedisAnswerCache{client: client}
}

func (c *RedisAnswerCache) Get(ctx context.Context, key string) (*domain.AssistantReply, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var reply domain.AssistantReply
	if err := json.Unmarshal([]byte(val), &reply); err != nil {
		return nil, false, err
	}
	return &reply, true, nil
}

func (c *RedisAnswerCache) Set(ctx context.Context, key string, value *domain.AssistantReply, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
