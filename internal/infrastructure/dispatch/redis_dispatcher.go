package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apporder "github.com/salepoint/backend/internal/application/order"
	"github.com/salepoint/backend/internal/infrastructure/config"
)

// RedisDispatcher pushes side-effect jobs onto a Redis list consumed by
// workers. A dispatch failure is retried a bounded number of times and then
// logged and dropped: the financial transaction already committed, so the
// order must not fail because a notification could not be queued.
type RedisDispatcher struct {
	client     *redis.Client
	queue      string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewRedisDispatcher creates a new RedisDispatcher
func NewRedisDispatcher(client *redis.Client, cfg *config.DispatchConfig, logger *zap.Logger) *RedisDispatcher {
	return &RedisDispatcher{
		client:     client,
		queue:      cfg.Queue,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Dispatch enqueues jobs. Delivery is at-least-once; consumers deduplicate on
// the identifying data each job carries.
func (d *RedisDispatcher) Dispatch(ctx context.Context, jobs ...apporder.Job) {
	for _, job := range jobs {
		payload, err := json.Marshal(job)
		if err != nil {
			d.logger.Error("failed to marshal job",
				zap.String("code", job.Code),
				zap.Error(err))
			continue
		}
		d.push(ctx, job.Code, payload)
	}
}

func (d *RedisDispatcher) push(ctx context.Context, code string, payload []byte) {
	var err error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				d.logger.Warn("job dispatch abandoned",
					zap.String("code", code),
					zap.Error(ctx.Err()))
				return
			case <-time.After(d.retryDelay):
			}
		}
		if err = d.client.LPush(ctx, d.queue, payload).Err(); err == nil {
			return
		}
		d.logger.Warn("job dispatch failed",
			zap.String("code", code),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	d.logger.Error("job dropped after retries",
		zap.String("code", code),
		zap.String("queue", d.queue),
		zap.Error(err))
}

var _ apporder.Dispatcher = (*RedisDispatcher)(nil)
