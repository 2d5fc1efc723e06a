package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "commission:rate"
	// noRateMarker caches a known-missing configuration.
	noRateMarker = "none"
)

// DefaultCacheTTL applies when NewRedisCache is given a non-positive TTL.
const DefaultCacheTTL = 5 * time.Minute

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rates/redis: ping: %w", err)
	}
	return client, nil
}

// RedisCache is a read-through cache in front of another Provider. Redis
// failures are logged and the lookup falls through to the next provider.
type RedisCache struct {
	next   Provider
	client redis.UniversalClient
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCache(next Provider, client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{next: next, client: client, ttl: ttl, log: log}
}

func cacheKey(k Key) string {
	return cacheKeyPrefix + ":" + k.String()
}

func (c *RedisCache) GetRate(ctx context.Context, roleTypeID string, commitmentMonths int, liquidity commission.Liquidity) (decimal.Decimal, error) {
	key := cacheKey(Key{RoleTypeID: roleTypeID, CommitmentMonths: commitmentMonths, Liquidity: liquidity})

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == noRateMarker {
			return decimal.Zero, ErrNoRate
		}
		if rate, perr := decimal.NewFromString(raw); perr == nil {
			return rate, nil
		}
		c.log.Warn("discarding malformed cached rate", zap.String("key", key), zap.String("value", raw))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
	}

	rate, err := c.next.GetRate(ctx, roleTypeID, commitmentMonths, liquidity)
	switch {
	case err == nil:
		c.store(ctx, key, rate.String())
	case errors.Is(err, ErrNoRate):
		c.store(ctx, key, noRateMarker)
	}
	return rate, err
}

func (c *RedisCache) store(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn("rate cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached value of k, after its configuration changed.
func (c *RedisCache) Invalidate(ctx context.Context, k Key) error {
	return c.client.Del(ctx, cacheKey(k)).Err()
}
