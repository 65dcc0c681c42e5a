package domain

import "context"

// FeedCap is the maximum number of listings a live snapshot carries. It is a
// display cap, not a storage cap: older listings stay persisted.
const FeedCap = 48

// ListingEvent is the change notification published on the listings bus after
// every successful write.
type ListingEvent struct {
	Op        string `json:"op"` // "create", "update", or "delete"
	ListingID string `json:"listingId"`
	OwnerID   string `json:"ownerId,omitempty"`
}

// Bus channel for listing change events.
const ListingsChannel = "listings"

// ListingStore persists marketplace listings.
//
// Update is a full-document replace that preserves the prior record's owner
// and creation timestamps; it returns ErrNotFound when the record no longer
// exists. Delete is idempotent. ListRecent orders by the store-assigned
// creation timestamp descending, ties broken by id, and never returns more
// than limit rows.
type ListingStore interface {
	Create(ctx context.Context, listing Listing) (id string, err error)
	Update(ctx context.Context, id string, listing Listing) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Listing, error)
	ListRecent(ctx context.Context, limit int) ([]Listing, error)
	Count(ctx context.Context) (int64, error)
	// ImageURLs returns the image URL of every listing that has one, across
	// the whole table. Used to reconcile object storage against the records
	// that reference it.
	ImageURLs(ctx context.Context) ([]string, error)
}
