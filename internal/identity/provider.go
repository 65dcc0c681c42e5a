// Package identity establishes session identities for the exchange. A
// pre-provisioned token takes precedence; otherwise anonymous sessions are
// minted. Identity is an explicit value handed to callers, never ambient
// state.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/brandlab/exchange/internal/domain"
)

// Provider issues session identities. It is safe for concurrent use.
type Provider struct {
	token  string
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]domain.Session
}

// NewProvider creates a Provider. token may be empty, in which case every
// session is anonymous.
func NewProvider(token string, logger *slog.Logger) *Provider {
	return &Provider{
		token:    token,
		logger:   logger.With(slog.String("component", "identity")),
		sessions: make(map[string]domain.Session),
	}
}

// Establish returns a session identity. With a pre-provisioned token the id
// is derived deterministically from it, so restarts keep the same identity;
// otherwise a fresh anonymous id is minted.
func (p *Provider) Establish() domain.Session {
	var s domain.Session
	if p.token != "" {
		sum := sha256.Sum256([]byte(p.token))
		s = domain.Session{ID: hex.EncodeToString(sum[:16])}
	} else {
		s = domain.Session{ID: uuid.NewString(), Anonymous: true}
	}

	p.mu.Lock()
	p.sessions[s.ID] = s
	p.mu.Unlock()

	p.logger.Info("session established",
		slog.String("session_id", s.ID),
		slog.Bool("anonymous", s.Anonymous),
	)
	return s
}

// Lookup resolves a previously established session id. The zero Session is
// returned for unknown ids; callers must treat it as "no identity yet".
func (p *Provider) Lookup(id string) domain.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[id]
}
