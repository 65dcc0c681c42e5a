package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brandlab/exchange/internal/domain"
	"github.com/brandlab/exchange/internal/server/handler"
	"github.com/brandlab/exchange/internal/server/middleware"
	"github.com/brandlab/exchange/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Session  *handler.SessionHandler
	Listings *handler.ListingHandler
	Wallet   *handler.WalletHandler
	Assist   *handler.AssistHandler
}

// Server is the HTTP + WebSocket API server for the exchange.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (CORS, logging, rate limiting, auth) and attaches
// the WebSocket hub. The limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Session establishment.
	mux.HandleFunc("POST /api/session", handlers.Session.Establish)

	// Listing endpoints.
	mux.HandleFunc("GET /api/listings", handlers.Listings.List)
	mux.HandleFunc("GET /api/listings/{id}", handlers.Listings.Get)
	mux.HandleFunc("POST /api/listings", handlers.Listings.Create)
	mux.HandleFunc("PUT /api/listings/{id}", handlers.Listings.Update)
	mux.HandleFunc("DELETE /api/listings/{id}", handlers.Listings.Delete)
	mux.HandleFunc("POST /api/listings/{id}/image", handlers.Listings.UploadImage)

	// Wallet endpoints.
	mux.HandleFunc("GET /api/wallet/balances", handlers.Wallet.Balances)
	mux.HandleFunc("GET /api/wallet/transactions", handlers.Wallet.Transactions)
	mux.HandleFunc("POST /api/wallet/transactions", handlers.Wallet.Submit)

	// Assist endpoints.
	mux.HandleFunc("POST /api/assist/description", handlers.Assist.ImproveDescription)
	mux.HandleFunc("POST /api/assist/price", handlers.Assist.SuggestPrice)
	mux.HandleFunc("POST /api/assist/alt-text", handlers.Assist.AltText)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil {
		h = middleware.RateLimit(limiter, 120, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
