package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coachpay/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// CheckoutStatusCache implements ports.CheckoutStatusCache using Redis.
// It keeps the latest checkout artifacts per subscription so polling
// clients never hit the database.
type CheckoutStatusCache struct {
	client *goredis.Client
	prefix string
}

// NewCheckoutStatusCache creates a Redis-backed checkout status cache.
func NewCheckoutStatusCache(client *goredis.Client) *CheckoutStatusCache {
	return &CheckoutStatusCache{
		client: client,
		prefix: "checkout:",
	}
}

// Upsert stores the checkout artifacts with TTL, overwriting any previous
// value for the same subscription.
func (c *CheckoutStatusCache) Upsert(ctx context.Context, ready domain.PaymentReady, ttl time.Duration) error {
	data, err := json.Marshal(ready)
	if err != nil {
		return fmt.Errorf("marshal checkout status: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+ready.SubscriptionID.String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis checkout status set: %w", err)
	}
	return nil
}

// Get retrieves the checkout artifacts for a subscription.
// Returns nil, nil if the key does not exist or has expired.
func (c *CheckoutStatusCache) Get(ctx context.Context, subscriptionID uuid.UUID) (*domain.PaymentReady, error) {
	val, err := c.client.Get(ctx, c.prefix+subscriptionID.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis checkout status get: %w", err)
	}
	ready := &domain.PaymentReady{}
	if err := json.Unmarshal(val, ready); err != nil {
		return nil, fmt.Errorf("unmarshal checkout status: %w", err)
	}
	return ready, nil
}
