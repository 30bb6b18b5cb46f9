package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers webhook deliveries that were already applied. It is an
// optimization only; the reconciler stays idempotent without it.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// DeliveryKey names a delivery by the provider's delivery id, or by a hash of
// the raw body when the provider sends none.
func DeliveryKey(provider, deliveryID string, rawBody []byte) string {
	if deliveryID != "" {
		return fmt.Sprintf("webhook:%s:id:%s", provider, deliveryID)
	}
	sum := sha256.Sum256(rawBody)
	return fmt.Sprintf("webhook:%s:body:%s", provider, hex.EncodeToString(sum[:]))
}

// RedisDeduper stores delivery keys in Redis with a TTL
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a new RedisDeduper
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// Seen reports whether key was marked and has not expired
func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records key for the configured TTL
func (d *RedisDeduper) Mark(ctx context.Context, key string) error {
	return d.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}

// NopDeduper never reports a delivery as seen
type NopDeduper struct{}

// Seen always returns false
func (NopDeduper) Seen(ctx context.Context, key string) (bool, error) { return false, nil }

// Mark does nothing
func (NopDeduper) Mark(ctx context.Context, key string) error { return nil }
