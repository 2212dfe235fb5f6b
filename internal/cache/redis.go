package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/muzz-match/internal/config"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL applies to every counter key. Access refreshes it.
const DefaultTTL = time.Hour

// generationTTL outlives any counter it guards.
const generationTTL = 2 * DefaultTTL

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
return 1
`)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForLikeCount generates Redis key for a user's outgoing like count.
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:outgoing:%d", userID)
}

// KeyForUnreadCount generates Redis key for a user's unread message badge.
func (c *RedisCache) KeyForUnreadCount(userID uint64) string {
	return fmt.Sprintf("unread:count:%d", userID)
}

// SetCount stores a counter and refreshes its TTL.
func (c *RedisCache) SetCount(ctx context.Context, key string, count int64) error {
	return c.Client.Set(ctx, key, count, DefaultTTL).Err()
}

// GetCount reads a counter. ok is false on a cache miss.
func (c *RedisCache) GetCount(ctx context.Context, key string) (count int64, ok bool, err error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, DefaultTTL).Err()
	return n, true, nil
}

func generationKey(key string) string { return key + ":gen" }

// Generation reads the invalidation counter guarding key. A missing counter is 0.
func (c *RedisCache) Generation(ctx context.Context, key string) (int64, error) {
	n, err := c.Client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetCountIf stores count only if no Invalidate ran since gen was read.
func (c *RedisCache) SetCountIf(ctx context.Context, key string, gen, count int64) (bool, error) {
	res, err := setIfGeneration.Run(ctx, c.Client,
		[]string{key, generationKey(key)},
		gen, count, int64(DefaultTTL/time.Second)).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Invalidate drops key and bumps its generation, so a fill that counted
// before this call cannot write its stale result back.
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Expire(ctx, generationKey(key), generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

// LoadCount returns the cached counter at key, or runs load and caches its
// result unless key was invalidated while load ran.
func (c *RedisCache) LoadCount(ctx context.Context, key string, load func(ctx context.Context) (int64, error)) (count int64, err error) {
	if n, ok, err := c.GetCount(ctx, key); err == nil && ok {
		return n, nil
	}

	gen, genErr := c.Generation(ctx, key)
	count, err = load(ctx)
	if err != nil {
		return 0, err
	}
	if genErr == nil {
		_, _ = c.SetCountIf(ctx, key, gen, count)
	}
	return count, nil
}
