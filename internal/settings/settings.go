// Package settings persists the analyst's chosen analytics date range.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"venomshop/backend/internal/domain"
)

// RangeStore loads and saves the date range. Load reports false when nothing was saved yet.
type RangeStore interface {
	Load(ctx context.Context) (domain.DateRange, bool, error)
	Save(ctx context.Context, r domain.DateRange) error
}

type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (domain.DateRange, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.DateRange{}, false, nil
	}
	if err != nil {
		return domain.DateRange{}, false, err
	}

	var r domain.DateRange
	if err := json.Unmarshal(payload, &r); err != nil {
		return domain.DateRange{}, false, err
	}
	return r, true, nil
}

// Save writes through a temp file and rename so a crash never leaves a torn file.
func (s *FileStore) Save(_ context.Context, r domain.DateRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = "venom:settings:date_range"
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (domain.DateRange, bool, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return domain.DateRange{}, false, nil
	}
	if err != nil {
		return domain.DateRange{}, false, err
	}

	var r domain.DateRange
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return domain.DateRange{}, false, err
	}
	return r, true, nil
}

func (s *RedisStore) Save(ctx context.Context, r domain.DateRange) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, payload, 0).Err()
}

// MemoryStore keeps the range for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	r     domain.DateRange
	saved bool
}

func (s *MemoryStore) Load(_ context.Context) (domain.DateRange, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r, s.saved, nil
}

func (s *MemoryStore) Save(_ context.Context, r domain.DateRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r = r
	s.saved = true
	return nil
}
