// Package collect queues context fragments for injection into a session.
// Producers (recall, pre-compaction memory injection, notifications) register
// fragments; the host drains them per session when it next builds context.
package collect

import (
	"sort"
	"sync"
)

// Fragment is one piece of content to inject into a session's context.
type Fragment struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Priority int    `json:"priority"` // higher drains first
}

// Collector receives fragments for a session and discards them when the
// session goes away.
type Collector interface {
	Register(sessionID string, f Fragment)
	Cleanup(sessionID string)
}

// Queue is an in-memory Collector. Fragments accumulate per session until
// drained; session deletion discards anything pending.
type Queue struct {
	mu      sync.Mutex
	pending map[string][]Fragment
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string][]Fragment)}
}

// Register appends a fragment for the session.
func (q *Queue) Register(sessionID string, f Fragment) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[sessionID] = append(q.pending[sessionID], f)
}

// Drain returns and clears the session's pending fragments, highest
// priority first. Registration order breaks ties.
func (q *Queue) Drain(sessionID string) []Fragment {
	q.mu.Lock()
	defer q.mu.Unlock()

	frags := q.pending[sessionID]
	delete(q.pending, sessionID)

	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].Priority > frags[j].Priority
	})
	return frags
}

// Pending returns the number of fragments waiting for a session.
func (q *Queue) Pending(sessionID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[sessionID])
}

// Cleanup discards all pending fragments for a session.
func (q *Queue) Cleanup(sessionID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, sessionID)
}
