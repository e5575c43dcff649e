package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
)

// CursorFactory creates a fresh cursor, with its own cache and index map,
// for each new session.
type CursorFactory func(ctx context.Context) (*cursor.Cursor, error)

// Manager opens sessions and tracks them until they end.
type Manager struct {
	factory CursorFactory
	opts    Options

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a Manager whose sessions share opts.
func NewManager(factory CursorFactory, opts Options) *Manager {
	return &Manager{
		factory:  factory,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session with a new cursor. The session ends with ctx.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	cur, err := m.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s := New(ctx, uuid.NewString(), cur, m.opts)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.Close()

		return nil, ErrClosed
	}

	m.sessions[s.ID()] = s
	m.mu.Unlock()

	go func() {
		<-s.Done()

		m.mu.Lock()
		delete(m.sessions, s.ID())
		m.mu.Unlock()
	}()

	return s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]

	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Close ends every session and rejects new ones.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true

	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}
