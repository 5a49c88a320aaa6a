package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one wizard run. Sessions are independent: no mutable state
// crosses session boundaries.
type Session struct {
	ID        uuid.UUID
	Kind      string
	Machine   *Machine
	CreatedAt time.Time
}

// Store holds active wizard sessions in memory, keyed by UUID, and evicts
// sessions idle longer than the TTL. An abandoned session simply expires;
// nothing needs compensating server-side because a wizard mutates nothing
// until its commit step.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[uuid.UUID]*storeEntry
	stop     chan struct{}
	stopOnce sync.Once
}

type storeEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewStore creates a session store with the given idle TTL and starts the
// background sweeper.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*storeEntry),
		stop:     make(chan struct{}),
	}
	go s.sweeper()
	return s
}

// Create registers a new session for the definition and executor.
func (s *Store) Create(def Definition, exec Executor) *Session {
	session := &Session{
		ID:        uuid.New(),
		Kind:      def.Kind,
		Machine:   New(def, exec),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &storeEntry{session: session, lastSeen: time.Now()}
	return session
}

// Get returns the session and refreshes its idle timer.
func (s *Store) Get(id uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = time.Now()
	return entry.session, true
}

// Delete removes a session.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweeper() {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
