// Package idempotency provides a redis-backed seen-before check used to
// skip duplicate Kafka deliveries and duplicate payment-provider webhooks.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// OffsetKey identifies a Kafka message by its coordinates.
func (s *Store) OffsetKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// EventKey identifies a payment-provider webhook delivery by its event id.
func (s *Store) EventKey(eventID string) string {
	return "idem:stripe:" + eventID
}

// Seen records the key and reports whether it had already been recorded.
// Suited to at-least-once consumers that commit after processing; for
// flows where processing can fail after the check, use WasSeen and only
// MarkSeen once the work is durable.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// WasSeen reports whether the key has been recorded, without recording it.
func (s *Store) WasSeen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSeen records the key.
func (s *Store) MarkSeen(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
