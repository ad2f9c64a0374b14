package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchchat/internal/config"
)

// LikeCountTTL is how long a cached received-likes counter lives without access.
const LikeCountTTL = time.Hour

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

// KeyForLikeCount generates Redis key for a user's received-likes count
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:received:count:%d", userID)
}

// GetLikeCount returns the cached counter; ok is false on a cache miss.
// A hit refreshes the TTL since the user is active.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (count int64, ok bool, err error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// corrupt entry; treat as a miss so the caller repopulates it
		return 0, false, nil
	}
	_ = c.Client.Expire(ctx, key, LikeCountTTL).Err()
	return n, true, nil
}

// keyForLikeCountVersion counts invalidations of a user's counter.
func (c *RedisCache) keyForLikeCountVersion(userID uint64) string {
	return fmt.Sprintf("likes:received:version:%d", userID)
}

// InvalidateLikeCount drops the counter so the next read goes to the DB,
// and bumps its version so fills that started earlier are discarded.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, userID uint64) error {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.keyForLikeCountVersion(userID))
		pipe.Expire(ctx, c.keyForLikeCountVersion(userID), LikeCountTTL)
		pipe.Del(ctx, c.KeyForLikeCount(userID))
		return nil
	})
	return err
}

// LikeCountVersion returns the current invalidation version; 0 when unset.
// Read it before loading the count from the DB.
func (c *RedisCache) LikeCountVersion(ctx context.Context, userID uint64) (int64, error) {
	v, err := c.Client.Get(ctx, c.keyForLikeCountVersion(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetLikeCountIfVersion stores the counter only while its version still
// equals version. stored is false when an invalidation got in between.
//
// Example:
//
//	v, _ := c.LikeCountVersion(ctx, 7)
//	n := countFromDB(7)
//	c.SetLikeCountIfVersion(ctx, 7, n, v)
func (c *RedisCache) SetLikeCountIfVersion(ctx context.Context, userID uint64, count, version int64) (stored bool, err error) {
	verKey := c.keyForLikeCountVersion(userID)
	err = c.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.KeyForLikeCount(userID), count, LikeCountTTL)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, verKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Publish sends payload on a pub/sub channel.
func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// PSubscribe subscribes to a channel pattern and waits for the server's
// confirmation, so messages published after it returns are not missed.
func (c *RedisCache) PSubscribe(ctx context.Context, pattern string) (*redis.PubSub, error) {
	sub := c.Client.PSubscribe(ctx, pattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("psubscribe %s: %w", pattern, err)
	}
	return sub, nil
}
