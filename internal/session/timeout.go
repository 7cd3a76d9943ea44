package session

import (
	"sync"
	"time"

	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

// ExpiryNotifier delivers the "session expired" notice. Delivery failures
// are swallowed; the removal is never rolled back.
type ExpiryNotifier func(sess *Session)

// Supervisor keeps one pending expiry timer per user. Scheduling again for
// the same user replaces the previous timer, so a session that was replaced
// by a fresh one can only be expired by its own timer. At fire time the
// session's CreatedAt is re-checked under the store lock: a timer that
// outlived its session does nothing.
type Supervisor struct {
	store  *Store
	window time.Duration
	notify ExpiryNotifier

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func NewSupervisor(store *Store, window time.Duration, notify ExpiryNotifier) *Supervisor {
	return &Supervisor{
		store:  store,
		window: window,
		notify: notify,
		timers: make(map[int64]*time.Timer),
	}
}

// Schedule arms (or re-arms) the expiry timer for userID. createdAt must be
// the CreatedAt of the session being guarded.
func (sv *Supervisor) Schedule(userID int64, createdAt time.Time) {
	sv.mu.Lock()
	if old, ok := sv.timers[userID]; ok {
		old.Stop()
	}
	sv.timers[userID] = time.AfterFunc(sv.window, func() {
		sv.fire(userID, createdAt)
	})
	sv.mu.Unlock()
}

// Cancel drops any pending timer for userID. The session itself is untouched.
func (sv *Supervisor) Cancel(userID int64) {
	sv.mu.Lock()
	if t, ok := sv.timers[userID]; ok {
		t.Stop()
		delete(sv.timers, userID)
	}
	sv.mu.Unlock()
}

// Stop cancels every pending timer.
func (sv *Supervisor) Stop() {
	sv.mu.Lock()
	for id, t := range sv.timers {
		t.Stop()
		delete(sv.timers, id)
	}
	sv.mu.Unlock()
}

func (sv *Supervisor) fire(userID int64, createdAt time.Time) {
	sv.mu.Lock()
	delete(sv.timers, userID)
	sv.mu.Unlock()

	// Hold the user's handling lock so the expiry never interleaves with an
	// in-flight handler reading or advancing the same session.
	defer sv.store.Lock(userID)()

	sess, removed := sv.store.RemoveIf(userID, func(s *Session) bool {
		// The stored session may be newer than the one that armed this
		// timer. Only the session with the matching window start expires.
		return !s.CreatedAt.After(createdAt) && time.Since(s.CreatedAt) >= sv.window
	})
	if !removed {
		return
	}

	logger.Info("Session expired", "user", userID, "platform", sess.Platform, "state", sess.State)
	if sv.notify != nil {
		sv.notify(sess)
	}
}
