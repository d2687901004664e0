// Package session provides session lifecycle management for nova.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sosagent/nova/pkg/models"
)

const (
	// SessionTimeout is how long a session may sit idle before eviction.
	SessionTimeout = 30 * time.Minute

	// CleanupInterval is how often the eviction loop scans for idle sessions.
	CleanupInterval = 5 * time.Minute
)

// ActiveSession is one live conversation held in memory.
// Respond calls are serialized through the session mutex so concurrent
// requests cannot interleave dialogue state updates.
type ActiveSession struct {
	ID        string
	State     *models.Session
	StartTime time.Time

	conversationID atomic.Int64

	mu         sync.Mutex
	lastActive time.Time
}

// SetConversationID links the session to its persisted conversation row.
func (s *ActiveSession) SetConversationID(id int64) {
	s.conversationID.Store(id)
}

// ConversationID returns the persisted conversation row ID, 0 when the
// session has not been linked to the transcript store.
func (s *ActiveSession) ConversationID() int64 {
	return s.conversationID.Load()
}

// Lock serializes responder access to the session state.
func (s *ActiveSession) Lock() { s.mu.Lock() }

// Unlock releases the session for the next responder.
func (s *ActiveSession) Unlock() { s.mu.Unlock() }

// Touch marks the session as recently used.
func (s *ActiveSession) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive returns the last time the session handled a message.
func (s *ActiveSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Manager tracks active sessions and evicts the ones that go idle.
type Manager struct {
	sessions map[string]*ActiveSession
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	timeout  time.Duration

	onCreated func(sess *ActiveSession)
	onDeleted func(sess *ActiveSession)
}

// NewManager creates a session manager. A non-positive timeout falls back
// to SessionTimeout.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = SessionTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions: make(map[string]*ActiveSession),
		ctx:      ctx,
		cancel:   cancel,
		timeout:  timeout,
	}
}

// Start launches the idle eviction loop.
func (m *Manager) Start() {
	go m.cleanupLoop()
}

// SetOnSessionCreated sets the callback invoked after a session is created.
func (m *Manager) SetOnSessionCreated(fn func(sess *ActiveSession)) {
	m.onCreated = fn
}

// SetOnSessionDeleted sets the callback invoked after a session is removed.
func (m *Manager) SetOnSessionDeleted(fn func(sess *ActiveSession)) {
	m.onDeleted = fn
}

// CreateSession registers a new session with a fresh UUID and dialogue state.
func (m *Manager) CreateSession() *ActiveSession {
	now := time.Now()
	sess := &ActiveSession{
		ID:         uuid.NewString(),
		State:      models.NewSession(),
		StartTime:  now,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	log.Debug().
		Str("sessionId", sess.ID).
		Int("activeSessions", count).
		Msg("Session created")

	if m.onCreated != nil {
		m.onCreated(sess)
	}

	return sess
}

// GetSession returns the session with the given ID.
func (m *Manager) GetSession(id string) (*ActiveSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// DeleteSession removes a session. Deleting an unknown ID is a no-op.
func (m *Manager) DeleteSession(id string) {
	m.mu.Lock()
	sess, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !exists {
		return
	}

	log.Debug().
		Str("sessionId", id).
		Int("activeSessions", count).
		Msg("Session deleted")

	if m.onDeleted != nil {
		m.onDeleted(sess)
	}
}

// GetActiveSessionCount returns the number of live sessions.
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns a snapshot of all live sessions.
func (m *Manager) GetAllSessions() []*ActiveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*ActiveSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// ShutdownAll deletes every session and stops the eviction loop.
// Deletion callbacks run for each session so transcripts can be closed.
func (m *Manager) ShutdownAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		m.DeleteSession(id)
	}

	m.cancel()
}

// cleanupLoop periodically evicts sessions idle past the timeout.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

// evictIdle removes sessions whose last activity is older than the timeout.
func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.timeout)

	m.mu.RLock()
	var expired []string
	for id, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		log.Info().Str("sessionId", id).Msg("Evicting idle session")
		m.DeleteSession(id)
	}
}
