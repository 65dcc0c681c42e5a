// Package feed implements the live listing subscription: a cancellable
// stream of ordered result-set snapshots, re-pushed whenever any listing
// changes anywhere in the collection.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brandlab/exchange/internal/domain"
)

// Subscription is one live view over the listing collection. Consume
// Snapshots until it closes; a transport or query failure is reported once on
// Errs and the stream stops. There is no auto-retry, callers re-subscribe.
type Subscription struct {
	snapshots chan []domain.Listing
	errs      chan error
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Snapshots emits the full, ordered, capped result set: one initial snapshot,
// then one per change event. Slow consumers see coalesced snapshots rather
// than a backlog.
func (s *Subscription) Snapshots() <-chan []domain.Listing {
	return s.snapshots
}

// Errs reports the terminal error of the stream, if any.
func (s *Subscription) Errs() <-chan error {
	return s.errs
}

// Close cancels the subscription and releases its bus resources immediately.
// Safe to call multiple times.
func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
}

// Feed produces listing subscriptions backed by the store and the change-
// event bus.
type Feed struct {
	store  domain.ListingStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// New creates a Feed.
func New(store domain.ListingStore, bus domain.SignalBus, logger *slog.Logger) *Feed {
	return &Feed{
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "feed")),
	}
}

// Subscribe establishes a live view capped at limit listings (clamped to the
// display cap), ordered newest first. The initial snapshot is pushed before
// any events are processed.
func (f *Feed) Subscribe(ctx context.Context, limit int) (*Subscription, error) {
	if limit <= 0 || limit > domain.FeedCap {
		limit = domain.FeedCap
	}

	ctx, cancel := context.WithCancel(ctx)

	events, err := f.bus.Subscribe(ctx, domain.ListingsChannel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("feed: subscribe bus: %w", err)
	}

	sub := &Subscription{
		snapshots: make(chan []domain.Listing, 1),
		errs:      make(chan error, 1),
		cancel:    cancel,
	}

	go f.run(ctx, sub, events, limit)

	return sub, nil
}

// run drives one subscription: initial snapshot, then a fresh snapshot per
// change event, until cancellation or the first failure.
func (f *Feed) run(ctx context.Context, sub *Subscription, events <-chan []byte, limit int) {
	defer close(sub.snapshots)
	defer close(sub.errs)

	if !f.push(ctx, sub, limit) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				// Bus dropped us: report and stop, the caller re-subscribes.
				sub.errs <- fmt.Errorf("feed: %w", domain.ErrContextDone)
				return
			}
			if !f.push(ctx, sub, limit) {
				return
			}
		}
	}
}

// push queries the current result set and delivers it, coalescing over an
// unconsumed previous snapshot. Returns false when the stream must stop.
func (f *Feed) push(ctx context.Context, sub *Subscription, limit int) bool {
	listings, err := f.store.ListRecent(ctx, limit)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		f.logger.Error("snapshot query failed", slog.String("error", err.Error()))
		sub.errs <- err
		return false
	}
	if listings == nil {
		listings = []domain.Listing{}
	}

	for {
		select {
		case sub.snapshots <- listings:
			return true
		case <-ctx.Done():
			return false
		default:
			// Drop the stale unconsumed snapshot and retry with the fresh one.
			select {
			case <-sub.snapshots:
			default:
			}
		}
	}
}
