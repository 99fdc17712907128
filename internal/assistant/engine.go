// Package assistant answers natural-language questions over a read-only ledger snapshot.
package assistant

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"venomshop/backend/internal/cache"
	"venomshop/backend/internal/domain"
)

const (
	SourceModel = "model"
	SourceLocal = "local"

	systemPrompt = "You are Osama, a helpful assistant for a mobile accessories shop called VENOM that also runs a laser cutting machine. " +
		"Answer briefly and use Egyptian pounds for money. Use only the provided context data. " +
		"If the information is not in the context, say that you do not have enough data about it."
)

type Engine struct {
	completer Completer
	local     LocalResponder
	cache     cache.AnswerCache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewEngine builds an assistant. A nil completer answers every question locally.
func NewEngine(completer Completer, local LocalResponder, cacheStore cache.AnswerCache, cacheTTL time.Duration, logger *zap.Logger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopAnswerCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		completer: completer,
		local:     local,
		cache:     cacheStore,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func (e *Engine) Answer(ctx context.Context, question string, snap domain.AssistantSnapshot) (domain.AssistantReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.AssistantReply{}, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidTransaction)
	}

	contextJSON, err := json.Marshal(snap)
	if err != nil {
		return domain.AssistantReply{}, err
	}

	cacheKey := buildCacheKey(question, contextJSON)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		cached.Cached = true
		return *cached, nil
	} else if err != nil {
		e.logger.Warn("assistant cache read failed", zap.Error(err))
	}

	reply := domain.AssistantReply{Source: SourceLocal}
	if e.completer != nil {
		user := fmt.Sprintf("Context from the shop database:\n%s\n\nQuestion: %s", contextJSON, question)
		text, err := e.completer.Complete(ctx, systemPrompt, user)
		if err == nil {
			reply = domain.AssistantReply{Reply: text, Source: SourceModel}
		} else {
			e.logger.Warn("model call failed, answering locally", zap.Error(err))
		}
	}
	if reply.Source == SourceLocal {
		reply.Reply = e.local.Respond(question, snap)
	}

	if err := e.cache.Set(ctx, cacheKey, &reply, e.cacheTTL); err != nil {
		e.logger.Warn("assistant cache write failed", zap.Error(err))
	}
	return reply, nil
}

func buildCacheKey(question string, snapshot []byte) string {
	hash := sha1.New()
	hash.Write([]byte(strings.ToLower(question)))
	hash.Write([]byte{0})
	hash.Write(snapshot)
	return "venom:assistant:" + hex.EncodeToString(hash.Sum(nil))
}
