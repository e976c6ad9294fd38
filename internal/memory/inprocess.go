package memory

import (
	"context"
	"sync"
	"time"
)

// InProcess is a map-backed session store with lazy expiry.
//
// Expired sessions are dropped on access, so a quiet session's memory is
// reclaimed the next time anything touches it. There is no background
// sweeper; the number of concurrent sessions bounds worst-case residency.
type InProcess struct {
	mu       sync.RWMutex
	sessions map[string]*session
	opts     Options

	// now is swappable for expiry tests.
	now func() time.Time
}

type session struct {
	turns     []Turn
	expiresAt time.Time
}

// NewInProcess creates an in-process session store.
func NewInProcess(opts Options) *InProcess {
	return &InProcess{
		sessions: make(map[string]*session),
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// Append records a turn, evicting the oldest turns beyond the window.
func (m *InProcess) Append(_ context.Context, sessionID string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sess, ok := m.sessions[sessionID]
	if !ok || now.After(sess.expiresAt) {
		sess = &session{}
		m.sessions[sessionID] = sess
	}

	sess.turns = append(sess.turns, turn)
	if max := m.opts.MaxTurns; max > 0 && len(sess.turns) > max {
		sess.turns = sess.turns[len(sess.turns)-max:]
	}
	sess.expiresAt = now.Add(m.opts.TTL)
	return nil
}

// History returns retained turns oldest first. Expired sessions read as empty.
func (m *InProcess) History(_ context.Context, sessionID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if m.now().After(sess.expiresAt) {
		delete(m.sessions, sessionID)
		return nil, nil
	}

	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

// Clear discards a session. Clearing an unknown session is a no-op.
func (m *InProcess) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
