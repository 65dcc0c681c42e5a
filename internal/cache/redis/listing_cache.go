package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brandlab/exchange/internal/domain"
)

const listingTTL = 5 * time.Minute

// ListingCache implements domain.ListingCache using Redis hashes with
// JSON-serialized listing data.
//
// Key schema:
//
//	listing:{id} - hash with field "data" containing JSON
type ListingCache struct {
	rdb *redis.Client
}

// NewListingCache creates a ListingCache backed by the given Client.
func NewListingCache(c *Client) *ListingCache {
	return &ListingCache{rdb: c.Underlying()}
}

func listingKey(id string) string { return "listing:" + id }

// Set stores a listing in the cache with a 5-minute TTL.
func (lc *ListingCache) Set(ctx context.Context, l domain.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("redis: marshal listing %s: %w", l.ID, err)
	}

	key := listingKey(l.ID)

	pipe := lc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, listingTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set listing %s: %w", l.ID, err)
	}
	return nil
}

// Get retrieves a listing by its id. Returns domain.ErrNotFound when the key
// does not exist.
func (lc *ListingCache) Get(ctx context.Context, id string) (domain.Listing, error) {
	data, err := lc.rdb.HGet(ctx, listingKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("redis: get listing %s: %w", id, err)
	}

	var l domain.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return domain.Listing{}, fmt.Errorf("redis: unmarshal listing %s: %w", id, err)
	}
	return l, nil
}

// Invalidate removes a listing from the cache. Removing a missing key is not
// an error.
func (lc *ListingCache) Invalidate(ctx context.Context, id string) error {
	if err := lc.rdb.Del(ctx, listingKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate listing %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ListingCache = (*ListingCache)(nil)
