package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apporder "github.com/salepoint/backend/internal/application/order"
	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/infrastructure/config"
)

// RedisTransactionCache implements the order engine's TransactionCache using
// Redis. Snapshots are transaction-scoped and short-lived; the TTL guards
// against keys leaked by crashed transactions.
type RedisTransactionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTransactionCache creates a cache backed by an existing Redis client
func NewRedisTransactionCache(client *redis.Client, ttl time.Duration) *RedisTransactionCache {
	return &RedisTransactionCache{client: client, ttl: ttl}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func transactionKey(businessID uuid.UUID, transactionID string) string {
	return fmt.Sprintf("order:tx:%s:%s", businessID, transactionID)
}

// Set writes (or overwrites) the snapshot, refreshing its expiry
func (c *RedisTransactionCache) Set(ctx context.Context, snap *apporder.OrderSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal order snapshot: %w", err)
	}
	key := transactionKey(snap.BusinessID, snap.TransactionID)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return shared.NewInfrastructureError("TX_CACHE_WRITE_FAILED", "Could not store the order snapshot")
	}
	return nil
}

// Get reads the snapshot. A missing key means the snapshot expired mid
// transaction, which is an infrastructure fault rather than a user error.
func (c *RedisTransactionCache) Get(ctx context.Context, businessID uuid.UUID, transactionID string) (*apporder.OrderSnapshot, error) {
	payload, err := c.client.Get(ctx, transactionKey(businessID, transactionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.NewInfrastructureError("TX_CACHE_EXPIRED", "The order snapshot is no longer available")
	}
	if err != nil {
		return nil, shared.NewInfrastructureError("TX_CACHE_READ_FAILED", "Could not read the order snapshot")
	}

	var snap apporder.OrderSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order snapshot: %w", err)
	}
	return &snap, nil
}

// Expire drops the key once the transaction is done with it
func (c *RedisTransactionCache) Expire(ctx context.Context, businessID uuid.UUID, transactionID string) error {
	return c.client.Del(ctx, transactionKey(businessID, transactionID)).Err()
}

var _ apporder.TransactionCache = (*RedisTransactionCache)(nil)
