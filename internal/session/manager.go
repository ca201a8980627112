package session

import (
	"sync"

	"go.uber.org/zap"
)

// Manager owns the mapping from user identity to in-progress session.
// Lifecycle is explicit: Start creates (or resets) on /start, Delete removes
// on every terminal outcome. Sessions are strictly per-user; the map is the
// only shared state and is guarded by a single mutex.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	logger   *zap.Logger
}

// NewManager creates an empty session manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		logger:   logger,
	}
}

// Start creates a fresh session for the user, discarding any previous one.
func (m *Manager) Start(userID int64, userName string) *Session {
	s := &Session{
		UserID:   userID,
		UserName: userName,
		State:    StateChooseOperation,
	}

	m.mu.Lock()
	_, existed := m.sessions[userID]
	m.sessions[userID] = s
	m.mu.Unlock()

	if existed {
		m.logger.Debug("session.reset", zap.Int64("user_id", userID))
	}
	return s
}

// Get returns the user's active session, or nil when none exists.
func (m *Manager) Get(userID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

// Delete discards the user's session. Safe to call when none exists.
func (m *Manager) Delete(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// Active returns the number of in-progress sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
