package handlers

import (
	"log"
	"sync"
	"time"

	"competitive-intel/internal/session"

	"github.com/google/uuid"
)

type storeEntry struct {
	ctrl      *session.Controller
	expiresAt time.Time
}

// SessionStore keeps live dashboard sessions in memory. A session expires
// after ttl without requests; expired sessions are closed by a background
// sweep, which cancels their in-flight backend calls.
type SessionStore struct {
	mu    sync.Mutex
	store map[string]*storeEntry
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionStore creates a store and starts its cleanup goroutine.
// Call Close to stop it.
func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		store: make(map[string]*storeEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go s.cleanup(time.Minute)
	return s
}

// Add registers ctrl under a new random ID.
func (s *SessionStore) Add(ctrl *session.Controller) (string, time.Time) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &storeEntry{ctrl: ctrl, expiresAt: s.now().Add(s.ttl)}
	s.store[id] = e
	return id, e.expiresAt
}

// Get returns the session and extends its expiry.
func (s *SessionStore) Get(id string) (*session.Controller, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.store[id]
	if !ok || s.now().After(e.expiresAt) {
		return nil, time.Time{}, false
	}
	e.expiresAt = s.now().Add(s.ttl)
	return e.ctrl, e.expiresAt, true
}

// Delete closes and removes a session. It reports whether it existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.store[id]
	delete(s.store, id)
	s.mu.Unlock()
	if ok {
		e.ctrl.Close()
	}
	return ok
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store)
}

// Close stops the cleanup goroutine and closes every session.
func (s *SessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	entries := s.store
	s.store = make(map[string]*storeEntry)
	s.mu.Unlock()
	for _, e := range entries {
		e.ctrl.Close()
	}
}

// sweep removes expired sessions.
func (s *SessionStore) sweep() int {
	s.mu.Lock()
	now := s.now()
	var expired []*session.Controller
	for id, e := range s.store {
		if now.After(e.expiresAt) {
			expired = append(expired, e.ctrl)
			delete(s.store, id)
		}
	}
	s.mu.Unlock()
	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

// cleanup periodically removes expired entries
func (s *SessionStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				log.Printf("[Session] expired %d session(s)", n)
			}
		case <-s.stop:
			return
		}
	}
}
