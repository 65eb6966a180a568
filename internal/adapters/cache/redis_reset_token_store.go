package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

const resetTokenKeyPrefix = "maijjd:reset:"

// RedisResetTokenStore keeps password reset grants in Redis, shared by every API instance.
type RedisResetTokenStore struct {
	client *redis.Client
}

func NewRedisResetTokenStore(client *redis.Client) *RedisResetTokenStore {
	return &RedisResetTokenStore{client: client}
}

func (s *RedisResetTokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetTokenKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: reset token set: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// GetAndDelete uses GETDEL so concurrent redemptions of one token cannot both succeed.
func (s *RedisResetTokenStore) GetAndDelete(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.GetDel(ctx, resetTokenKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: reset token getdel: %v", domain.ErrUnavailable, err)
	}
	return raw, nil
}
