package handler

import (
	"log/slog"
	"net/http"

	"github.com/brandlab/exchange/internal/domain"
)

// IdentityProvider is the slice of the identity provider the handlers need.
type IdentityProvider interface {
	Establish() domain.Session
	Lookup(id string) domain.Session
}

// SessionHandler establishes caller identities.
type SessionHandler struct {
	identities IdentityProvider
	logger     *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(identities IdentityProvider, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		identities: identities,
		logger:     logHandler(logger, "session"),
	}
}

// Establish creates or resumes the caller's session: a deterministic identity
// when a session token is configured, an anonymous one otherwise. The caller
// sends the returned userId in the X-Session-ID header on later requests.
// POST /api/session
func (h *SessionHandler) Establish(w http.ResponseWriter, r *http.Request) {
	session := h.identities.Establish()
	h.logger.Info("session established",
		slog.String("session_id", session.ID),
		slog.Bool("anonymous", session.Anonymous),
	)
	writeJSON(w, http.StatusOK, session)
}

// sessionFromRequest resolves the caller's session from the X-Session-ID
// header. The zero Session is returned when the header is absent or unknown.
func sessionFromRequest(r *http.Request, identities IdentityProvider) domain.Session {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		return domain.Session{}
	}
	return identities.Lookup(id)
}
