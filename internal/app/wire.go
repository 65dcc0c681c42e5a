package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brandlab/exchange/internal/assist"
	s3blob "github.com/brandlab/exchange/internal/blob/s3"
	"github.com/brandlab/exchange/internal/cache/redis"
	"github.com/brandlab/exchange/internal/config"
	"github.com/brandlab/exchange/internal/domain"
	"github.com/brandlab/exchange/internal/feed"
	"github.com/brandlab/exchange/internal/form"
	"github.com/brandlab/exchange/internal/identity"
	"github.com/brandlab/exchange/internal/service"
	"github.com/brandlab/exchange/internal/store/postgres"
	"github.com/brandlab/exchange/internal/sweep"
	"github.com/brandlab/exchange/internal/wallet"
)

// Dependencies bundles everything the server needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	ListingStore domain.ListingStore
	ListingCache domain.ListingCache
	RateLimiter  domain.RateLimiter
	SignalBus    domain.SignalBus
	ImageStore   domain.ImageStore

	Identities *identity.Provider
	Listings   *service.ListingService
	Forms      *form.Registry
	Feed       *feed.Feed
	Wallet     *wallet.Wallet
	Assistant  *assist.Assistant // nil when assist is disabled
	Sweeper    *sweep.Sweeper    // nil when the sweep is disabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.ListingStore = postgres.NewListingStore(pgClient.Pool(), cfg.App.AppID)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.ListingCache = redis.NewListingCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage ---
	s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: s3: %w", err)
	}
	closers = append(closers, func() { _ = s3Client.Close() })
	if err := s3Client.Health(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: s3 bucket probe: %w", err)
	}
	imageStore := s3blob.NewImageStore(s3Client, cfg.S3.PublicBaseURL)
	deps.ImageStore = imageStore

	// --- Domain services ---
	deps.Identities = identity.NewProvider(cfg.Identity.Token, logger)
	deps.Listings = service.NewListingService(deps.ListingStore, deps.ListingCache, deps.SignalBus, deps.ImageStore, logger)
	deps.Forms = form.NewRegistry(deps.Listings, deps.ImageStore, logger)
	deps.Feed = feed.New(deps.ListingStore, deps.SignalBus, logger)
	deps.Wallet = wallet.New(cfg.Wallet.SettleDelay.Duration, logger)

	if cfg.Sweep.Enabled {
		deps.Sweeper = sweep.New(
			deps.ListingStore,
			s3blob.NewReader(s3Client),
			s3blob.NewDeleter(s3Client),
			imageStore,
			s3blob.ImageKeyPrefix+"/",
			cfg.Sweep.Interval.Duration,
			cfg.Sweep.MinAge.Duration,
			logger,
		)
	}

	if cfg.Assist.Enabled {
		assistant, err := assist.New(ctx, cfg.Assist.APIKey, cfg.Assist.Model, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: assist: %w", err)
		}
		deps.Assistant = assistant
	}

	return deps, cleanup, nil
}
