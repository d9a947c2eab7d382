package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials under "<prefix>:<key>" in Redis.
type RedisStore struct {
	redis      redis.UniversalClient
	prefix     string
	refreshTTL time.Duration
}

// NewRedisStore creates a store. refreshTTL, when positive, expires the refresh
// token key so abandoned workstations eventually fall back to a fresh login; the
// access token key is cleared together with it by the session.
func NewRedisStore(client redis.UniversalClient, prefix string, refreshTTL time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gosession"
	}
	return &RedisStore{
		redis:      client,
		prefix:     prefix,
		refreshTTL: refreshTTL,
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	var ttl time.Duration
	if key == KeyRefreshToken && s.refreshTTL > 0 {
		ttl = s.refreshTTL
	}
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
