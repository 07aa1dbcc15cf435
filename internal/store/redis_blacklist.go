package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKey = "hydration:blacklist"

// RedisBlacklist keeps the operator blacklist in a Redis hash (user id -> reason),
// so several bot instances can share one suppression list.
type RedisBlacklist struct {
	rdb *redis.Client
}

var _ Blacklist = (*RedisBlacklist)(nil)

// OpenRedisBlacklist connects to Redis and verifies the connection with a short ping.
func OpenRedisBlacklist(ctx context.Context, addr, password string, db int) (*RedisBlacklist, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBlacklist{rdb: rdb}, nil
}

// SetBlacklisted adds or removes the user from the blacklist hash.
func (b *RedisBlacklist) SetBlacklisted(ctx context.Context, userID int64, blacklisted bool, reason string) error {
	field := strconv.FormatInt(userID, 10)
	if !blacklisted {
		return b.rdb.HDel(ctx, blacklistKey, field).Err()
	}
	return b.rdb.HSet(ctx, blacklistKey, field, reason).Err()
}

// IsBlacklisted reports whether the user is present in the blacklist hash.
func (b *RedisBlacklist) IsBlacklisted(ctx context.Context, userID int64) (bool, error) {
	return b.rdb.HExists(ctx, blacklistKey, strconv.FormatInt(userID, 10)).Result()
}

// Close releases the Redis connection pool.
func (b *RedisBlacklist) Close() error {
	return b.rdb.Close()
}
