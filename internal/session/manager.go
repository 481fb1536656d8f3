package session

import (
	"context"
	"log"
	"sync"

	"github.com/livepreview/swing"
	"github.com/livepreview/swing/internal/config"
)

// Manager owns the active session. At most one session is live at a time:
// opening a playground disposes the previous session first, so stale
// debounced work can never reach the new preview.
type Manager struct {
	mu     sync.Mutex
	store  swing.Store
	cfg    *config.Config
	active *Session
}

// NewManager creates a manager backed by the given store and configuration.
func NewManager(store swing.Store, cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Manager{store: store, cfg: cfg}
}

// Open starts a session for the bundle on the given surface, replacing any
// active session.
func (m *Manager) Open(ctx context.Context, bundle *swing.Bundle, surface swing.PreviewSurface, opts ...Option) (*Session, error) {
	// Dispose outside the lock (onDispose re-enters clear), then re-check:
	// a concurrent Open may have installed another session in the window.
	m.mu.Lock()
	for m.active != nil {
		prev := m.active
		m.active = nil
		m.mu.Unlock()
		prev.Dispose()
		m.mu.Lock()
	}

	s := newSession(bundle, m.store, surface, m.cfg.Playgrounds, opts...)
	s.onDispose = func() { m.clear(s) }
	m.active = s
	m.mu.Unlock()

	if err := s.open(ctx); err != nil {
		s.Dispose()
		return nil, err
	}
	log.Printf("[Session] Opened %s for bundle %q", s.ID(), bundle.ID())
	return s, nil
}

// Active returns the current session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Close disposes the active session if any.
func (m *Manager) Close() {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()
	if s != nil {
		s.Dispose()
	}
}

func (m *Manager) clear(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}
