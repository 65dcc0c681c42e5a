package domain

import (
	"context"
	"time"
)

// ListingCache provides fast single-listing lookups in front of the store.
type ListingCache interface {
	Set(ctx context.Context, listing Listing) error
	Get(ctx context.Context, id string) (Listing, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub fan-out of change events between the service
// layer, the live feed, and the websocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
