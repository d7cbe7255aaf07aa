package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/model"
)

// Identities lists and activates backend identities.
type Identities interface {
	Identities(ctx context.Context) ([]model.Identity, error)
	SelectIdentity(ctx context.Context, path string) (model.Identity, error)
}

// Manager owns the current session and replaces it when the identity changes.
type Manager struct {
	ctx   context.Context
	ids   Identities
	build func(model.Identity) *Session

	mu  sync.RWMutex
	cur *Session
}

// NewManager creates a manager whose sessions run under ctx. build must return
// an unstarted session for the identity.
func NewManager(ctx context.Context, ids Identities, build func(model.Identity) *Session) *Manager {
	return &Manager{ctx: ctx, ids: ids, build: build}
}

// Current returns the active session, or nil before the first Activate.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Activate tears down the current session and starts a fresh one for id.
func (m *Manager) Activate(id model.Identity) (*Session, error) {
	next := m.build(id)
	m.mu.Lock()
	prev := m.cur
	m.cur = next
	m.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	if err := next.Start(m.ctx); err != nil {
		return nil, err
	}
	log.Info().Str("session", next.ID()).Str("identity", id.IdentityHash).Msg("identity activated")
	return next, nil
}

func (m *Manager) ListIdentities(ctx context.Context) ([]model.Identity, error) {
	return m.ids.Identities(ctx)
}

// SelectIdentity switches the backend to the identity stored at path and
// rebuilds the session around it.
func (m *Manager) SelectIdentity(ctx context.Context, path string) (*Session, error) {
	id, err := m.ids.SelectIdentity(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("select identity %s: %w", path, err)
	}
	return m.Activate(id)
}

// Close stops the current session.
func (m *Manager) Close() {
	m.mu.Lock()
	cur := m.cur
	m.cur = nil
	m.mu.Unlock()
	if cur != nil {
		cur.Close()
	}
}
