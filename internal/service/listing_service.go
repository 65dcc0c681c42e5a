package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brandlab/exchange/internal/domain"
)

// ListingService implements the listing repository semantics: validated
// writes against the store, change-event publication on the bus, cache
// maintenance, and cleanup of replaced image objects.
type ListingService struct {
	store  domain.ListingStore
	cache  domain.ListingCache
	bus    domain.SignalBus
	images domain.ImageStore
	logger *slog.Logger
}

// NewListingService creates a ListingService with all required dependencies.
func NewListingService(
	store domain.ListingStore,
	cache domain.ListingCache,
	bus domain.SignalBus,
	images domain.ImageStore,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		store:  store,
		cache:  cache,
		bus:    bus,
		images: images,
		logger: logger.With(slog.String("component", "listing_service")),
	}
}

// Create persists a new, pre-validated listing owned by the given session and
// returns its assigned id. The client-stamped creation time is filled in when
// the caller left it empty.
func (s *ListingService) Create(ctx context.Context, session domain.Session, l domain.Listing) (string, error) {
	if !session.Valid() {
		return "", domain.ErrNotAuthenticated
	}

	l.OwnerID = session.ID
	if l.CreatedAt == "" {
		l.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	id, err := s.store.Create(ctx, l)
	if err != nil {
		return "", fmt.Errorf("listing_service: create: %w", err)
	}

	s.publish(ctx, domain.ListingEvent{Op: "create", ListingID: id, OwnerID: session.ID})
	return id, nil
}

// Update replaces a listing's mutable fields. Owner and creation timestamps
// are preserved by the store; when the image was replaced, the previous
// stored object is removed best-effort afterwards.
func (s *ListingService) Update(ctx context.Context, session domain.Session, id string, l domain.Listing) error {
	if !session.Valid() {
		return domain.ErrNotAuthenticated
	}

	prior, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("listing_service: update read prior %s: %w", id, err)
	}

	if err := s.store.Update(ctx, id, l); err != nil {
		return fmt.Errorf("listing_service: update %s: %w", id, err)
	}

	s.dropReplacedImage(ctx, prior.ImageURL, l.ImageURL)
	s.invalidate(ctx, id)
	s.publish(ctx, domain.ListingEvent{Op: "update", ListingID: id, OwnerID: prior.OwnerID})
	return nil
}

// Delete removes a listing and its stored image. Idempotent: deleting an id
// that is already gone succeeds and publishes nothing.
func (s *ListingService) Delete(ctx context.Context, id string) error {
	prior, err := s.store.GetByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("listing_service: delete read prior %s: %w", id, err)
	}
	existed := err == nil

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("listing_service: delete %s: %w", id, err)
	}

	if !existed {
		return nil
	}

	if prior.ImageURL != nil {
		s.removeImage(ctx, *prior.ImageURL)
	}
	s.invalidate(ctx, id)
	s.publish(ctx, domain.ListingEvent{Op: "delete", ListingID: id, OwnerID: prior.OwnerID})
	return nil
}

// Get retrieves a listing by id, checking the cache first and falling back
// to the store on a miss.
func (s *ListingService) Get(ctx context.Context, id string) (domain.Listing, error) {
	l, err := s.cache.Get(ctx, id)
	if err == nil {
		return l, nil
	}

	l, err = s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("listing_service: get %s: %w", id, err)
	}

	if cacheErr := s.cache.Set(ctx, l); cacheErr != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("listing_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return l, nil
}

// ListRecent returns the newest listings up to the display cap.
func (s *ListingService) ListRecent(ctx context.Context, limit int) ([]domain.Listing, error) {
	listings, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing_service: list recent: %w", err)
	}
	return listings, nil
}

// Count returns the total number of persisted listings.
func (s *ListingService) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// publish emits a change event; failures are logged, not propagated, since
// the write itself already succeeded.
func (s *ListingService) publish(ctx context.Context, ev domain.ListingEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal event failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.ListingsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("op", ev.Op),
			slog.String("listing_id", ev.ListingID),
			slog.String("error", err.Error()),
		)
	}
}

// dropReplacedImage removes the previous image object after an update swapped
// it for a new one.
func (s *ListingService) dropReplacedImage(ctx context.Context, prior, current *string) {
	if prior == nil || *prior == "" {
		return
	}
	if current != nil && *current == *prior {
		return
	}
	s.removeImage(ctx, *prior)
}

// removeImage is best-effort: a stale object costs storage, not correctness.
func (s *ListingService) removeImage(ctx context.Context, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.RemoveListingImage(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "remove image failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ListingService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
	}
}
