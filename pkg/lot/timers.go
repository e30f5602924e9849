package lot

import (
	"sync"
	"time"
)

// Default delays for the debounce notify and the flush timeout.
const (
	DefaultNotifyAfter = 15 * time.Second
	DefaultFlushAfter  = 25 * time.Second
)

type timerPair struct {
	notify *time.Timer
	flush  *time.Timer
}

// TimerRegistry owns at most one pending notify and one pending flush timer
// per conversation. Callbacks receive only the conversation id; live state
// must be re-fetched at fire time.
type TimerRegistry struct {
	notifyAfter time.Duration
	flushAfter  time.Duration
	mu          sync.Mutex
	pairs       map[string]*timerPair
}

// NewTimerRegistry creates a registry with the given global delays. The
// flush delay is expected to be greater than the notify delay.
func NewTimerRegistry(notifyAfter, flushAfter time.Duration) *TimerRegistry {
	if notifyAfter <= 0 {
		notifyAfter = DefaultNotifyAfter
	}
	if flushAfter <= notifyAfter {
		flushAfter = notifyAfter + DefaultFlushAfter - DefaultNotifyAfter
	}

	return &TimerRegistry{
		notifyAfter: notifyAfter,
		flushAfter:  flushAfter,
		pairs:       make(map[string]*timerPair),
	}
}

// Reset cancels any pending pair for the conversation and arms a fresh one.
func (r *TimerRegistry) Reset(conversationID string, onNotify, onFlush func(conversationID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pair, exists := r.pairs[conversationID]; exists {
		pair.notify.Stop()
		pair.flush.Stop()
	}

	r.pairs[conversationID] = &timerPair{
		notify: time.AfterFunc(r.notifyAfter, func() { onNotify(conversationID) }),
		flush:  time.AfterFunc(r.flushAfter, func() { onFlush(conversationID) }),
	}
}

// Clear cancels both timers and removes the registry entry. No-op when the
// conversation has no pending pair.
func (r *TimerRegistry) Clear(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair, exists := r.pairs[conversationID]
	if !exists {
		return
	}

	pair.notify.Stop()
	pair.flush.Stop()
	delete(r.pairs, conversationID)
}

// Pending reports whether a timer pair is registered for the conversation.
func (r *TimerRegistry) Pending(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.pairs[conversationID]
	return exists
}

// Size returns the number of registered timer pairs.
func (r *TimerRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pairs)
}
