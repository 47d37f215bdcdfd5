package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/logger"
)

// RedisQueue is a FIFO list of intake records: producers LPUSH and the worker BRPOPs
type RedisQueue struct {
	client     *redis.Client
	key        string
	deadKey    string
	popTimeout time.Duration
	log        *slog.Logger
}

// NewRedisQueue connects to the configured Redis
func NewRedisQueue(ctx context.Context, cfg config.Redis) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	popTimeout := cfg.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	return &RedisQueue{
		client:     client,
		key:        cfg.QueueKey,
		deadKey:    cfg.DeadLetterKey,
		popTimeout: popTimeout,
		log:        logger.Get(),
	}, nil
}

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Enqueue pushes articles onto the queue
func (q *RedisQueue) Enqueue(ctx context.Context, articles ...core.IncomingArticle) error {
	if len(articles) == 0 {
		return nil
	}
	values := make([]any, 0, len(articles))
	for _, a := range articles {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode article %s: %w", a.URL, err)
		}
		values = append(values, data)
	}
	return q.client.LPush(ctx, q.key, values...).Err()
}

// Len returns the number of queued records
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// DeadLetters returns the number of dead-lettered records
func (q *RedisQueue) DeadLetters(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.deadKey).Result()
}

// Run pops records until ctx is cancelled. Records that fail to decode or ingest are
// pushed to the dead-letter list.
func (q *RedisQueue) Run(ctx context.Context, p Processor) error {
	q.log.Info("Redis worker started", "queue", q.key, "dead_letter", q.deadKey)
	for {
		if ctx.Err() != nil {
			q.log.Info("Redis worker stopped")
			return nil
		}

		res, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			q.log.Info("Redis worker stopped")
			return nil
		case err != nil:
			q.log.Error("Failed to pop from queue", "queue", q.key, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		payload := []byte(res[1])
		result, err := dispatch(ctx, p, payload)
		if err != nil {
			q.deadLetter(ctx, payload, err)
			continue
		}
		q.log.Debug("Processed queued article", "url", result.URL, "status", result.Status)
	}
}

// DeadLetter pushes a failed record onto the dead-letter list
func (q *RedisQueue) DeadLetter(ctx context.Context, payload []byte, cause error) error {
	data, err := encodeFailed(payload, cause)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}
	if err := q.client.LPush(context.WithoutCancel(ctx), q.deadKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push dead letter to %s: %w", q.deadKey, err)
	}
	return nil
}

func (q *RedisQueue) deadLetter(ctx context.Context, payload []byte, cause error) {
	if err := q.DeadLetter(ctx, payload, cause); err != nil {
		q.log.Error("Failed to dead-letter article", "error", err)
		return
	}
	q.log.Warn("Article moved to dead letter queue", "queue", q.deadKey, "error", cause)
}
