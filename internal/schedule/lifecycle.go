// Lifecycle/reset protocol — flushes caches, memos, and scheduler
// bookkeeping when a region unloads or a new session starts, and notifies
// observers so collaborating subsystems can do their own cleanup.
package schedule

import (
	"log/slog"

	"github.com/google/uuid"
)

// Observer receives reset notifications for cross-cutting cleanup.
type Observer interface {
	RegionReset(region RegionID)
	AllReset()
}

// Lifecycle coordinates resets across the cache, memo, and scheduler.
type Lifecycle struct {
	cache     *CandidateCache
	memo      *ReachMemo
	sched     *Scheduler
	observers []Observer
	sessionID uuid.UUID
}

// NewLifecycle creates a lifecycle manager and mints the initial session id.
func NewLifecycle(cache *CandidateCache, memo *ReachMemo, sched *Scheduler) *Lifecycle {
	return &Lifecycle{
		cache:     cache,
		memo:      memo,
		sched:     sched,
		sessionID: uuid.New(),
	}
}

// AddObserver registers an observer for reset notifications.
func (l *Lifecycle) AddObserver(o Observer) {
	if o == nil {
		return
	}
	l.observers = append(l.observers, o)
}

// SessionID returns the id of the current scheduling session.
func (l *Lifecycle) SessionID() uuid.UUID {
	return l.sessionID
}

// ResetRegion clears every cache entry, memo row, and execution stamp for
// one region, then notifies observers. Called by the host on region
// teardown.
func (l *Lifecycle) ResetRegion(region RegionID) {
	l.cache.DropRegion(region)
	l.memo.DropRegion(region)
	l.sched.ResetRegion(region)

	for _, o := range l.observers {
		o.RegionReset(region)
	}

	slog.Info("region scheduling state reset", "region", region)
}

// ResetAll clears everything globally and mints a new session id. Called
// on new-session start so no cached candidates or reachability verdicts
// leak across sessions.
func (l *Lifecycle) ResetAll() {
	l.cache.DropAll()
	l.memo.DropAll()
	l.sched.ResetAll()
	l.sessionID = uuid.New()

	for _, o := range l.observers {
		o.AllReset()
	}

	slog.Info("all scheduling state reset", "session", l.sessionID)
}
