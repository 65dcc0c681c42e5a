package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/brandlab/exchange/internal/domain"
)

// SignalBus implements domain.SignalBus using Redis Pub/Sub. Every listing
// write publishes a change event here; the live feed and the websocket hub
// subscribe so that all sessions see writes from anywhere, not just their
// own.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription and returns a read-only
// channel that emits raw byte payloads. The subscription is closed when the
// context is cancelled; the returned channel is closed at that point as well.
// go-redis reconnects the underlying pub/sub internally, so a Redis outage
// stalls this channel rather than closing it; the feed's stop-on-error
// contract is carried by its snapshot query path, not by the bus.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := sb.rdb.Subscribe(ctx, channel)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
