package session

import "sync"

// Store holds at most one active session per user. All operations are
// atomic per key; Remove reports whether this caller actually removed the
// session so that a racing timeout check and message handler never both
// act on the same removal.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Lock serializes event handling for one user and returns the unlock func:
//
//	defer store.Lock(userID)()
//
// Sessions are mutated in place as a conversation advances, so anything
// that reads or writes a stored session must hold that user's lock. Lock
// entries live for the life of the store; the map is bounded by the number
// of distinct users seen.
func (s *Store) Lock(userID int64) func() {
	s.lockMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.lockMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *Store) Put(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// Remove deletes the session for userID. Removing an absent key is a no-op
// and returns false.
func (s *Store) Remove(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	delete(s.sessions, userID)
	return sess, true
}

// RemoveIf deletes the session for userID only when pred holds for it.
// The check and the removal happen under one lock, which is what lets a
// stale expiry timer verify it is still looking at the session that
// scheduled it.
func (s *Store) RemoveIf(userID int64, pred func(*Session) bool) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || !pred(sess) {
		return nil, false
	}
	delete(s.sessions, userID)
	return sess, true
}

func (s *Store) Exists(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
