// Package app provides the top-level application lifecycle for the exchange
// backend. It wires together all dependencies (store, cache, blob storage,
// identity, wallet, assist, feed) and runs the HTTP + WebSocket server until
// the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brandlab/exchange/internal/config"
	"github.com/brandlab/exchange/internal/server"
	"github.com/brandlab/exchange/internal/server/handler"
	"github.com/brandlab/exchange/internal/server/ws"
)

// shutdownGrace bounds how long in-flight requests get on shutdown.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the hub and
// the HTTP server, and blocks until the context is cancelled or a component
// fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("app_id", a.cfg.App.AppID),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	hub := ws.NewHub(deps.Feed, a.logger)

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Listings, a.logger),
		Session:  handler.NewSessionHandler(deps.Identities, a.logger),
		Listings: handler.NewListingHandler(deps.Listings, deps.Forms, deps.Identities, deps.ImageStore, a.logger),
		Wallet:   handler.NewWalletHandler(deps.Wallet, deps.Identities, a.logger),
		Assist:   newAssistHandler(deps, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	if deps.Sweeper != nil {
		g.Go(func() error {
			err := deps.Sweeper.Run(gctx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newAssistHandler keeps the handler's interface value nil when assist is
// disabled, so the routes answer 503 instead of panicking on a typed nil.
func newAssistHandler(deps *Dependencies, logger *slog.Logger) *handler.AssistHandler {
	if deps.Assistant == nil {
		return handler.NewAssistHandler(nil, logger)
	}
	return handler.NewAssistHandler(deps.Assistant, logger)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
