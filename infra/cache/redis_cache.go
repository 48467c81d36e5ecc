// Package cache holds the quote cache implementations: one in memory and
// one on Redis, shared between server and CLI processes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements cache.QuoteCache on a Redis hash per currency: the
// field is the day, the value the JSON quote. Invalidation deletes the hash.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to the Redis server at url (redis://...).
func NewRedisCache(url, prefix string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisCacheWithOptions(opt, prefix, ttl, logger), nil
}

// NewRedisCacheWithOptions creates a RedisCache from redis.Options.
func NewRedisCacheWithOptions(opt *redis.Options, prefix string, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: redis.NewClient(opt),
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("cache", "redis"),
	}
}

func (r *RedisCache) key(code money.Code) string {
	return r.prefix + "quote:" + string(code)
}

// Ping checks the server is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(ctx context.Context, code money.Code, on day.Date) (exchange.Rate, bool, error) {
	val, err := r.client.HGet(ctx, r.key(code), on.String()).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "currency", code, "date", on)
		return exchange.Rate{}, false, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "currency", code, "error", err)
		return exchange.Rate{}, false, err
	}
	var rate exchange.Rate
	if err := json.Unmarshal([]byte(val), &rate); err != nil {
		r.logger.Error("Redis cache unmarshal error", "currency", code, "error", err)
		return exchange.Rate{}, false, err
	}
	return rate, true, nil
}

func (r *RedisCache) Set(ctx context.Context, code money.Code, on day.Date, rate exchange.Rate) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	key := r.key(code)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, on.String(), data)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Redis cache set error", "currency", code, "error", err)
		return err
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, code money.Code) error {
	if err := r.client.Del(ctx, r.key(code)).Err(); err != nil {
		r.logger.Error("Redis cache delete error", "currency", code, "error", err)
		return err
	}
	r.logger.Debug("Redis cache invalidated", "currency", code)
	return nil
}

// Close releases the client connections.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
