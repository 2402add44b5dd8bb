package chat

import (
	"sync"
	"time"

	"github.com/calder-ops/toolbridge/pkg/metrics"
)

// Store tracks the independent sessions running against one tool host. Each
// session still owns its own history exclusively; the store only indexes them.
type Store struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	expiryDuration time.Duration
}

// NewStore creates a session store. Sessions idle longer than expiryDuration
// are dropped by CleanupExpired.
func NewStore(expiryDuration time.Duration) (result *Store) {
	result = &Store{
		sessions:       make(map[string]*Session),
		expiryDuration: expiryDuration,
	}

	return result
}

// Add registers a session.
func (st *Store) Add(session *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions[session.ID] = session
	metrics.SessionsActive.Set(float64(len(st.sessions)))
}

// Get retrieves a session by ID.
func (st *Store) Get(id string) (result *Session, exists bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result, exists = st.sessions[id]
	return result, exists
}

// Remove drops a session.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, id)
	metrics.SessionsActive.Set(float64(len(st.sessions)))
}

// Count returns the number of tracked sessions.
func (st *Store) Count() (result int) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result = len(st.sessions)
	return result
}

// CleanupExpired removes sessions that have been idle longer than the expiry
// duration.
func (st *Store) CleanupExpired() (removed int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()

	for id, session := range st.sessions {
		if now.Sub(session.LastActivity) > st.expiryDuration {
			delete(st.sessions, id)
			removed++
		}
	}

	metrics.SessionsActive.Set(float64(len(st.sessions)))
	return removed
}
