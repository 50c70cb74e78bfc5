// Package attempts tracks per-subject failed attempt counts and lockout
// windows in memory.
//
// Nothing here is persisted: a process restart forgives in-flight counters
// and active lockouts. The durable store only holds verified records and
// pending affordances.
package attempts

import (
	"sync"
	"time"
)

type window struct {
	expiresAt time.Time
	timer     *time.Timer
}

// Tracker owns the mutable attempt state. All methods are safe for concurrent
// use; callers serialize per-subject flows at a higher level.
type Tracker struct {
	mu      sync.Mutex
	counts  map[string]int
	windows map[string]window
}

func NewTracker() *Tracker {
	return &Tracker{
		counts:  make(map[string]int),
		windows: make(map[string]window),
	}
}

// IncrementAndGet bumps the failed attempt counter for a subject and returns
// the new count.
func (t *Tracker) IncrementAndGet(subjectID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[subjectID]++
	return t.counts[subjectID]
}

// Peek returns the current count without mutating it.
func (t *Tracker) Peek(subjectID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[subjectID]
}

// Reset removes the counter for a subject.
func (t *Tracker) Reset(subjectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, subjectID)
}

// LockOut starts a timeout window for a subject and clears its counter. The
// window self-clears after the duration elapses even if the subject never
// interacts again; the scheduled clear is cancellable via Clear.
func (t *Tracker) LockOut(subjectID string, now time.Time, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.counts, subjectID)
	if w, ok := t.windows[subjectID]; ok && w.timer != nil {
		w.timer.Stop()
	}
	t.windows[subjectID] = window{
		expiresAt: now.Add(d),
		timer: time.AfterFunc(d, func() {
			t.Clear(subjectID)
		}),
	}
}

// LockedRemaining reports whether a subject is inside an active timeout
// window and how long remains. Expired windows are cleared on read.
func (t *Tracker) LockedRemaining(subjectID string, now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[subjectID]
	if !ok {
		return 0, false
	}
	remaining := w.expiresAt.Sub(now)
	if remaining <= 0 {
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(t.windows, subjectID)
		delete(t.counts, subjectID)
		return 0, false
	}
	return remaining, true
}

// Clear removes both the counter and any active window for a subject,
// cancelling the scheduled self-clear.
func (t *Tracker) Clear(subjectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.counts, subjectID)
	if w, ok := t.windows[subjectID]; ok {
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(t.windows, subjectID)
	}
}
