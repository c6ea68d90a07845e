package quota

import (
	"sync"
	"time"
)

// Defaults match the bot's public quota: 60 requests per rolling hour.
const (
	DefaultLimit  = 60
	DefaultWindow = time.Hour
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// record holds one user's request timestamps inside the trailing window,
// oldest first. Each record carries its own lock so admits for the same
// user serialize while distinct users proceed in parallel.
type record struct {
	mu       sync.Mutex
	stamps   []time.Time
	lastSeen time.Time
}

// Limiter enforces a per-user sliding-window quota. State is process-local
// and lost on restart.
type Limiter struct {
	Limit  int
	Window time.Duration
	Clock  func() time.Time

	mu    sync.RWMutex
	users map[int64]*record
}

// New returns a limiter with the given limit and window, falling back to
// defaults for non-positive values.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		Limit:  limit,
		Window: window,
		users:  make(map[int64]*record),
	}
}

// Admit checks and, when allowed, charges one quota slot for the user.
// Denials report how long until the oldest retained request exits the
// window. Absence of a record is equivalent to zero recent requests.
func (l *Limiter) Admit(userID int64) Decision {
	now := l.now()
	rec := l.record(userID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.lastSeen = now
	rec.stamps = prune(rec.stamps, now.Add(-l.Window))

	if len(rec.stamps) >= l.Limit {
		retry := rec.stamps[0].Add(l.Window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}

	rec.stamps = append(rec.stamps, now)
	return Decision{Allowed: true, Remaining: l.Limit - len(rec.stamps)}
}

// Count reports the user's current in-window request count without
// charging a slot.
func (l *Limiter) Count(userID int64) int {
	l.mu.RLock()
	rec, ok := l.users[userID]
	l.mu.RUnlock()
	if !ok {
		return 0
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.stamps = prune(rec.stamps, l.now().Add(-l.Window))
	return len(rec.stamps)
}

// Sweep evicts records for users inactive longer than the window. Intended
// to be called periodically; safe to call concurrently with Admit.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for id, rec := range l.users {
		rec.mu.Lock()
		idle := rec.lastSeen.Before(cutoff)
		rec.mu.Unlock()
		if idle {
			delete(l.users, id)
			evicted++
		}
	}
	return evicted
}

// Users reports the number of tracked user records.
func (l *Limiter) Users() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.users)
}

func (l *Limiter) record(userID int64) *record {
	l.mu.RLock()
	rec, ok := l.users[userID]
	l.mu.RUnlock()
	if ok {
		return rec
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok = l.users[userID]; ok {
		return rec
	}
	if l.users == nil {
		l.users = make(map[int64]*record)
	}
	rec = &record{}
	l.users[userID] = rec
	return rec
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

// prune drops timestamps at or before the cutoff. Stamps are appended in
// order, so a single scan from the front suffices.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
