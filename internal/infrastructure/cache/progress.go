package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "excel-import-service/internal/pkg/errors"
)

// ProgressStore publishes import progress counters to Redis under the import
// token. The value is the cumulative count of rows attempted; keys carry no
// TTL, so the final counter stays readable after a run ends. It implements
// importer.ProgressStore.
type ProgressStore struct {
	cache *RedisCache
}

// NewProgressStore creates a progress store backed by the given cache.
func NewProgressStore(cache *RedisCache) *ProgressStore {
	return &ProgressStore{cache: cache}
}

// Set writes the latest processed-rows counter for an import token.
func (s *ProgressStore) Set(ctx context.Context, key string, processed int64) error {
	return s.cache.Set(ctx, key, processed, 0)
}

// Get returns the last counter written for an import token, or a
// ProgressNotFound condition if nothing was ever written.
func (s *ProgressStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, apperrors.ProgressNotFound(key)
		}
		return 0, err
	}

	processed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, apperrors.InternalWrap(err, "corrupt progress counter")
	}

	return processed, nil
}
