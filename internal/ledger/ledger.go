// Package ledger tracks per-session compaction state: the single-flight
// in-progress flag, the cooldown clock, the pending-continue flag, and the
// set of milestone percentages already announced.
//
// The ledger is in-memory only. A process restart clears any stuck
// in-progress state, which is the desired recovery behavior.
package ledger

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between compactions of one session,
// measured from the end of the previous compaction.
const DefaultCooldown = 120 * time.Second

// Compaction records one compaction window for a session.
type Compaction struct {
	Timestamp        time.Time
	Trigger          string
	UsageRatioBefore float64
	UsageRatioAfter  float64 // 0 until MarkEnd reports it
}

type entry struct {
	inProgress      bool
	pendingContinue bool
	last            *Compaction
	notified        map[int]bool
}

// Ledger coordinates compaction across sessions. All methods are synchronous
// and in-memory; it is safe for concurrent use from event handlers.
type Ledger struct {
	mu       sync.Mutex
	cooldown time.Duration
	entries  map[string]*entry

	now func() time.Time // swapped in tests
}

// New creates a Ledger with the given cooldown. Zero disables the cooldown
// window entirely; negative means DefaultCooldown.
func New(cooldown time.Duration) *Ledger {
	if cooldown < 0 {
		cooldown = DefaultCooldown
	}
	return &Ledger{
		cooldown: cooldown,
		entries:  make(map[string]*entry),
		now:      time.Now,
	}
}

func (l *Ledger) get(sessionID string) *entry {
	e, ok := l.entries[sessionID]
	if !ok {
		e = &entry{notified: make(map[int]bool)}
		l.entries[sessionID] = e
	}
	return e
}

// Allowed reports whether a new compaction may start for the session:
// false while one is in progress, false inside the cooldown window after
// the last one, true otherwise. A session with no history is always allowed.
func (l *Ledger) Allowed(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[sessionID]
	if !ok {
		return true
	}
	if e.inProgress {
		return false
	}
	if e.last != nil && l.now().Sub(e.last.Timestamp) < l.cooldown {
		return false
	}
	return true
}

// MarkStart flags the session as having a compaction in flight and records
// a new compaction entry. Callers must invoke this before dispatching any
// async work so the decision-to-dispatch window cannot race.
func (l *Ledger) MarkStart(sessionID, trigger string, usageRatioBefore float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markStart(sessionID, trigger, usageRatioBefore)
}

// TryStart atomically checks the Allowed conditions and, if they hold, marks
// the compaction started. Concurrent callers racing on the same session see
// exactly one true.
func (l *Ledger) TryStart(sessionID, trigger string, usageRatioBefore float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[sessionID]; ok {
		if e.inProgress {
			return false
		}
		if e.last != nil && l.now().Sub(e.last.Timestamp) < l.cooldown {
			return false
		}
	}
	l.markStart(sessionID, trigger, usageRatioBefore)
	return true
}

func (l *Ledger) markStart(sessionID, trigger string, usageRatioBefore float64) {
	e := l.get(sessionID)
	e.inProgress = true
	e.last = &Compaction{
		Timestamp:        l.now(),
		Trigger:          trigger,
		UsageRatioBefore: usageRatioBefore,
	}
}

// MarkEnd clears the in-flight flag, records the post-compaction usage ratio
// (0 means unknown), and re-stamps the compaction timestamp so the cooldown
// runs from completion rather than start. The timestamp only moves forward.
// A no-op when the session was cleaned up while the compaction ran; ending a
// compaction must never bring a deleted entry back.
func (l *Ledger) MarkEnd(sessionID string, usageRatioAfter float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[sessionID]
	if !ok {
		return
	}
	e.inProgress = false
	if e.last == nil {
		e.last = &Compaction{}
	}
	if usageRatioAfter > 0 {
		e.last.UsageRatioAfter = usageRatioAfter
	}
	if ts := l.now(); ts.After(e.last.Timestamp) {
		e.last.Timestamp = ts
	}
}

// MarkPendingContinue flags that the session should be prompted to continue
// once the caller is ready. A no-op for sessions already cleaned up.
func (l *Ledger) MarkPendingContinue(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[sessionID]; ok {
		e.pendingContinue = true
	}
}

// ClearPendingContinue resets the continue flag.
func (l *Ledger) ClearPendingContinue(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[sessionID]; ok {
		e.pendingContinue = false
	}
}

// HasPendingContinue reports whether a post-compaction continuation is owed.
func (l *Ledger) HasPendingContinue(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[sessionID]
	return ok && e.pendingContinue
}

// NotifyThreshold records that the given milestone percentage has been
// announced for the session. Returns true only on the first call per
// percentage — the notified set never shrinks.
func (l *Ledger) NotifyThreshold(sessionID string, pct int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.get(sessionID)
	if e.notified[pct] {
		return false
	}
	e.notified[pct] = true
	return true
}

// InProgress reports whether a compaction is currently in flight.
func (l *Ledger) InProgress(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[sessionID]
	return ok && e.inProgress
}

// LastCompaction returns a copy of the most recent compaction record.
func (l *Ledger) LastCompaction(sessionID string) (Compaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[sessionID]
	if !ok || e.last == nil {
		return Compaction{}, false
	}
	return *e.last, true
}

// Cleanup removes all state for a session. Called on session deletion.
func (l *Ledger) Cleanup(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, sessionID)
}
