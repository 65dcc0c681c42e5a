package form

import (
	"log/slog"
	"sync"

	"github.com/brandlab/exchange/internal/domain"
)

// Registry hands out one Controller per session so each connected client has
// its own edit buffer.
type Registry struct {
	repo   Repository
	images domain.ImageStore
	logger *slog.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty Registry.
func NewRegistry(repo Repository, images domain.ImageStore, logger *slog.Logger) *Registry {
	return &Registry{
		repo:        repo,
		images:      images,
		logger:      logger,
		controllers: make(map[string]*Controller),
	}
}

// For returns the session's controller, creating it on first use.
func (r *Registry) For(session domain.Session) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[session.ID]; ok {
		return c
	}
	c := NewController(r.repo, r.images, session, r.logger)
	r.controllers[session.ID] = c
	return c
}

// Drop discards the session's controller and any buffered edit.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, sessionID)
}
