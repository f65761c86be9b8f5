package wizard

import (
	"context"
	"sync"
	"time"

	"app/internal/gateway"
	"app/internal/model"

	"github.com/rs/zerolog"
)

// Manager is the in-memory registry of active wizard sessions. Idle sessions
// are evicted by a janitor tick so abandoned editors do not leak timers.
type Manager struct {
	gw      gateway.Gateway
	opts    Options
	ttl     time.Duration
	logger  zerolog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	byID    map[string]*Session
	stopped bool
}

// NewManager starts a registry. ttl bounds how long an untouched session
// survives; zero disables eviction.
func NewManager(gw gateway.Gateway, opts Options, ttl time.Duration, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		gw:     gw,
		opts:   opts,
		ttl:    ttl,
		logger: logger.With().Str("service", "SessionManager").Logger(),
		cancel: cancel,
		done:   make(chan struct{}),
		byID:   map[string]*Session{},
	}
	go m.janitor(ctx)
	return m
}

// Open creates a session for a new course, or loads an existing one by slug.
func (m *Manager) Open(ctx context.Context, slug string) (*Session, error) {
	var existing *model.Course
	if slug != "" {
		course, err := m.gw.GetCourseBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		existing = course
	}

	s := NewSession(existing, m.gw, m.opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		s.Close()
		return nil, ErrSessionClosed
	}
	m.byID[s.ID()] = s
	m.logger.Info().Str("session_id", s.ID()).Str("slug", slug).Msg("Session opened")
	return s, nil
}

// Get returns the session with the given id, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// CloseSession tears down and removes the session. Reports whether it existed.
func (m *Manager) CloseSession(id string) bool {
	m.mu.Lock()
	s, ok := m.byID[id]
	delete(m.byID, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Shutdown closes every session and stops the janitor.
func (m *Manager) Shutdown() {
	m.cancel()
	<-m.done

	m.mu.Lock()
	m.stopped = true
	sessions := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		sessions = append(sessions, s)
	}
	m.byID = map[string]*Session{}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) janitor(ctx context.Context) {
	defer close(m.done)
	if m.ttl <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.byID {
		if s.IdleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.byID, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		m.logger.Info().Str("session_id", s.ID()).Msg("Idle session evicted")
	}
}
