package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryDeduper implements usecase.DeliveryDeduper using Redis SETNX.
// It only short-circuits repeated webhook deliveries; a lost key never
// leads to double crediting because reconciliation is idempotent.
type DeliveryDeduper struct {
	client redis.UniversalClient
	prefix string
}

// NewDeliveryDeduper creates a new DeliveryDeduper.
func NewDeliveryDeduper(client redis.UniversalClient) *DeliveryDeduper {
	return &DeliveryDeduper{
		client: client,
		prefix: "creditledger:delivery:",
	}
}

// FirstSeen records id and reports whether it was new.
func (d *DeliveryDeduper) FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+id, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Forget removes id so the delivery can be processed again.
func (d *DeliveryDeduper) Forget(ctx context.Context, id string) error {
	return d.client.Del(ctx, d.prefix+id).Err()
}
