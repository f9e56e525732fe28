package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
)

// KeyPrefix namespaces user entries in Redis.
const KeyPrefix = "user:"

// UserCache stores users by id. A miss is (nil, nil), never an error.
type UserCache interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}

// RedisUserCache keeps JSON-encoded users in Redis with a fixed TTL.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

var _ UserCache = (*RedisUserCache)(nil)

func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{client: client, ttl: ttl, log: log.Named("user_cache")}
}

// Key returns the Redis key for a user id.
func Key(id int64) string {
	return KeyPrefix + strconv.FormatInt(id, 10)
}

func (c *RedisUserCache) Get(ctx context.Context, id int64) (*domain.User, error) {
	data, err := c.client.Get(ctx, Key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("cache get %s: %w", Key(id), err)
	}

	u := new(domain.User)
	if err := json.Unmarshal(data, u); err != nil {
		// Drop the unreadable entry so the next read repopulates it
		c.log.Warn("discarding corrupt cache entry", zap.Int64("user_id", id), zap.Error(err))
		_ = c.client.Del(ctx, Key(id)).Err()
		return nil, fmt.Errorf("cache decode %s: %w", Key(id), err)
	}
	return u, nil
}

func (c *RedisUserCache) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("cache encode user %d: %w", user.ID, err)
	}
	if err := c.client.Set(ctx, Key(user.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", Key(user.ID), err)
	}

	c.log.Debug("user cached", zap.Int64("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *RedisUserCache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", Key(id), err)
	}
	return nil
}
