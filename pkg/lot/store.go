package lot

import (
	"sync"
	"time"
)

// Session is an in-memory aggregation buffer for one conversation's lot.
// It exists exactly while an aggregation is in progress.
type Session struct {
	ConversationID string
	Items          [][]byte
	CreatedAt      time.Time
}

// Store holds the process-wide map of active lot sessions. It is in-memory
// only; sessions do not survive a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create adds a session with an empty buffer. It returns false without
// touching the existing session when one is already active.
func (s *Store) Create(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[conversationID]; exists {
		return false
	}

	s.sessions[conversationID] = &Session{
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
	}
	return true
}

// Exists reports whether an aggregation is in progress for the conversation.
func (s *Store) Exists(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.sessions[conversationID]
	return exists
}

// Append adds an item to the end of the session buffer and returns the new
// buffer length. The second return is false when no session exists.
func (s *Store) Append(conversationID string, item []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[conversationID]
	if !exists {
		return 0, false
	}

	sess.Items = append(sess.Items, item)
	return len(sess.Items), true
}

// Len returns the current buffer length for the conversation.
func (s *Store) Len(conversationID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[conversationID]
	if !exists {
		return 0, false
	}
	return len(sess.Items), true
}

// Items returns a snapshot of the buffered items in arrival order.
func (s *Store) Items(conversationID string) ([][]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[conversationID]
	if !exists {
		return nil, false
	}

	items := make([][]byte, len(sess.Items))
	copy(items, sess.Items)
	return items, true
}

// Delete removes the session. Safe to call when absent.
func (s *Store) Delete(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[conversationID]; !exists {
		return false
	}
	delete(s.sessions, conversationID)
	return true
}

// Active returns the number of sessions currently in progress.
func (s *Store) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
