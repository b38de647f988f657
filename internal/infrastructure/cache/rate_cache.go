package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/config"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// RateCache stores spot rate observations in Redis with a short TTL, keyed by
// directed pair. A missing key is a miss, not an error.
type RateCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

const rateKeyPrefix = "portfolio:rate:"

// NewRateCache connects to Redis and returns a rate cache. ttl bounds how
// stale a served spot rate can be.
func NewRateCache(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RateCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}, nil
}

func rateKey(pair entities.AssetPair) string {
	return fmt.Sprintf("%s%d:%d", rateKeyPrefix, pair.From, pair.To)
}

// Get returns the cached rate for the pair, or nil on a miss.
func (c *RateCache) Get(ctx context.Context, pair entities.AssetPair) (*entities.AssetRate, error) {
	start := time.Now()
	payload, err := c.client.Get(ctx, rateKey(pair)).Result()
	metrics.RecordRedisOperation("get", time.Since(start).Seconds())

	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate from cache: %w", err)
	}

	var rate entities.AssetRate
	if err := json.Unmarshal([]byte(payload), &rate); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten.
		c.logger.Warn("dropping corrupt rate cache entry",
			zap.Error(err),
			zap.Int32("from", pair.From),
			zap.Int32("to", pair.To),
		)
		return nil, nil
	}
	return &rate, nil
}

// Set stores the rate for the pair under the cache TTL.
func (c *RateCache) Set(ctx context.Context, pair entities.AssetPair, rate entities.AssetRate) error {
	payload, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal rate: %w", err)
	}

	start := time.Now()
	err = c.client.Set(ctx, rateKey(pair), payload, c.ttl).Err()
	metrics.RecordRedisOperation("set", time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("failed to write rate to cache: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (c *RateCache) Close() error {
	return c.client.Close()
}
