package session

import (
	"errors"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/scheduler"
	"github.com/couchcryptid/odor-dispersion-service/internal/weather"
	"github.com/couchcryptid/odor-dispersion-service/internal/worker"
)

// ErrSessionNotFound is returned for operations on an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live sessions, keyed by id.
type Manager struct {
	board     *weather.Board
	factory   worker.Factory
	publisher PlumePublisher
	cfg       Config
	sessions  *xsync.Map[string, *Session]
}

// NewManager creates a Manager. Sessions share the weather board.
func NewManager(board *weather.Board, factory worker.Factory, publisher PlumePublisher, cfg Config) *Manager {
	return &Manager{
		board:     board,
		factory:   factory,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		sessions:  xsync.NewMap[string, *Session](),
	}
}

// GetOrCreate returns the session for id, creating it on first use.
func (m *Manager) GetOrCreate(id string) *Session {
	s, loaded := m.sessions.LoadOrCompute(id, func() (*Session, bool) {
		return New(id, m.board, m.factory, m.publisher, m.cfg), false
	})
	if !loaded {
		m.cfg.Logger.Info("session opened", "session_id", id, "worker", s.Available())
		m.observe()
	}
	return s
}

// Get returns an existing session.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Apply routes an update to the session, creating it if needed.
func (m *Manager) Apply(id string, u domain.SessionUpdate) (scheduler.Decision, error) {
	return m.GetOrCreate(id).Apply(u)
}

// Close removes and tears down one session.
func (m *Manager) Close(id string) error {
	s, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	m.observe()
	return nil
}

// CloseAll tears down every session.
func (m *Manager) CloseAll() {
	m.sessions.Range(func(id string, _ *Session) bool {
		if s, ok := m.sessions.LoadAndDelete(id); ok {
			s.Close()
		}
		return true
	})
	m.observe()
}

// RefreshAll asks every session to recompute, typically after the shared
// weather changed. It returns the number of dispatches.
func (m *Manager) RefreshAll() int {
	dispatched := 0
	m.sessions.Range(func(_ string, s *Session) bool {
		if s.Refresh() == scheduler.Dispatched {
			dispatched++
		}
		return true
	})
	return dispatched
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.Size()
}

func (m *Manager) observe() {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSessions.Set(float64(m.sessions.Size()))
	}
}
