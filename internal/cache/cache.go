package cache

import (
	"context"
	"time"

	"venomshop/backend/internal/domain"
)

// AnswerCache stores assistant replies keyed by question and ledger snapshot.
type AnswerCache interface {
	Get(ctx context.Context, key string) (*domain.AssistantReply, bool, error)
	Set(ctx context.Context, key string, value *domain.AssistantReply, ttl time.Duration) error
}

type NoopAnswerCache struct{}

func (NoopAnswerCache) Get(_ context.Context, _ string) (*domain.AssistantReply, bool, error) {
	return nil, false, nil
}

func (NoopAnswerCache) Set(_ context.Context, _ string, _ *domain.AssistantReply, _ time.Duration) error {
	return nil
}
