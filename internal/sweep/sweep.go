// Package sweep reconciles the image bucket against the listing table.
// Listing writes clean up replaced and deleted images best effort; a crash
// between the upload and the record write, or a failed cleanup, leaves an
// object behind with nothing referencing it. The sweeper removes those
// orphans on an interval.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brandlab/exchange/internal/domain"
)

// Store is the slice of the listing store the sweeper needs.
type Store interface {
	ImageURLs(ctx context.Context) ([]string, error)
}

// KeyResolver maps a public image URL back to its object key, reporting false
// for URLs outside the managed key space.
type KeyResolver interface {
	Key(rawURL string) (string, bool)
}

// Sweeper periodically deletes image objects no listing references.
type Sweeper struct {
	store   Store
	reader  domain.BlobReader
	deleter domain.BlobDeleter
	keys    KeyResolver

	prefix   string
	interval time.Duration
	// minAge protects objects uploaded moments before their listing write
	// lands; anything younger is never touched.
	minAge time.Duration

	logger *slog.Logger
}

// New creates a Sweeper over the objects under prefix.
func New(store Store, reader domain.BlobReader, deleter domain.BlobDeleter, keys KeyResolver, prefix string, interval, minAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		reader:   reader,
		deleter:  deleter,
		keys:     keys,
		prefix:   prefix,
		interval: interval,
		minAge:   minAge,
		logger:   logger.With(slog.String("component", "sweep")),
	}
}

// Run sweeps on the configured interval until the context is cancelled. A
// failed pass is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("sweep failed", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				s.logger.Info("removed orphaned images", slog.Int("count", removed))
			}
		}
	}
}

// SweepOnce runs a single reconciliation pass and returns how many objects it
// removed. Individual delete failures are logged and skipped; the pass keeps
// going so one bad object cannot wedge the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	urls, err := s.store.ImageURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep: load referenced urls: %w", err)
	}
	referenced := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if key, ok := s.keys.Key(u); ok {
			referenced[key] = struct{}{}
		}
	}

	objects, err := s.reader.List(ctx, s.prefix)
	if err != nil {
		return 0, fmt.Errorf("sweep: list objects: %w", err)
	}

	cutoff := time.Now().Add(-s.minAge)
	removed := 0
	for _, obj := range objects {
		if _, ok := referenced[obj.Path]; ok {
			delete(referenced, obj.Path)
			continue
		}
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := s.deleter.Delete(ctx, obj.Path); err != nil {
			s.logger.Warn("failed to remove orphaned image",
				slog.String("key", obj.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	// Keys still in the set are referenced by a listing but missing from the
	// bucket. Nothing to fix here, but it is worth surfacing.
	for key := range referenced {
		s.logger.Warn("listing references missing image object", slog.String("key", key))
	}

	return removed, nil
}
