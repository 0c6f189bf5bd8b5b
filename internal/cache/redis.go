package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryLog remembers processed webhook delivery IDs in Redis so replayed
// deliveries can be dropped early. Entries expire after the TTL; the booking
// coordinator's own idempotency covers anything that slips past.
type DeliveryLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeliveryLog(addr string, ttl time.Duration) (*DeliveryLog, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &DeliveryLog{
		client: client,
		ttl:    ttl,
	}, nil
}

func (l *DeliveryLog) Seen(ctx context.Context, providerEventID string) (bool, error) {
	n, err := l.client.Exists(ctx, deliveryKey(providerEventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *DeliveryLog) Record(ctx context.Context, providerEventID string) error {
	return l.client.Set(ctx, deliveryKey(providerEventID), 1, l.ttl).Err()
}

func (l *DeliveryLog) Close() error {
	return l.client.Close()
}

func deliveryKey(providerEventID string) string {
	return "webhook:delivered:" + providerEventID
}
