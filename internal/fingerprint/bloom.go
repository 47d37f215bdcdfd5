package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"storydesk/internal/logger"
)

// BloomConfig configures the RedisBloom pre-filter
type BloomConfig struct {
	URL       string // redis://host:port/db
	Key       string
	TTL       time.Duration
	Capacity  int
	ErrorRate float64
}

// RedisBloom is a Redis-backed Bloom filter using the RedisBloom BF.* commands
type RedisBloom struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisBloom connects to Redis and reserves the filter if it does not exist yet
func NewRedisBloom(ctx context.Context, cfg BloomConfig) (*RedisBloom, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	rb := &RedisBloom{client: client, key: cfg.Key, ttl: cfg.TTL, log: logger.Get()}

	exists, err := client.Exists(pingCtx, cfg.Key).Result()
	if err == nil && exists == 0 {
		// BF.RESERVE <key> <error_rate> <capacity>
		errorRate := strconv.FormatFloat(cfg.ErrorRate, 'f', -1, 64)
		if err := client.Do(pingCtx, "BF.RESERVE", cfg.Key, errorRate, cfg.Capacity).Err(); err != nil {
			// BF.ADD auto-creates the filter with module defaults
			rb.log.Warn("BF.RESERVE failed, relying on BF.ADD auto-create", "key", cfg.Key, "error", err)
		}
	}

	return rb, nil
}

// Close closes the underlying Redis client
func (r *RedisBloom) Close() error {
	return r.client.Close()
}

// MightContain reports whether the fingerprint may have been added before.
// False means definitely absent.
func (r *RedisBloom) MightContain(ctx context.Context, fp string) (bool, error) {
	res, err := r.client.Do(ctx, "BF.EXISTS", r.key, fp).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case bool:
		return v, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Add inserts the fingerprint and slides the key's TTL forward
func (r *RedisBloom) Add(ctx context.Context, fp string) error {
	if err := r.client.Do(ctx, "BF.ADD", r.key, fp).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, r.key, r.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}
