package alarm

import (
	"slices"
	"sync"
)

// Queue is the shared, mutex-protected collection of pending alarms,
// ordered ascending by fire time.
//
// Exactly two goroutines touch it at runtime: the input producer (Insert)
// and the single worker (RemoveEarliest). The lock is never held across a
// wait, so producer stalls are bounded by the O(n) insert scan.
type Queue struct {
	mu      sync.Mutex
	entries []Request
}

func NewQueue() *Queue {
	return &Queue{}
}

// Insert splices r into the queue before the first entry whose fire time is
// greater than or equal to r's, appending at the tail if no such entry
// exists. Equal fire times therefore order newest-first.
//
// Insert never fails; the queue is unbounded.
func (q *Queue) Insert(r Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := 0
	for i < len(q.entries) && q.entries[i].FireAt.Before(r.FireAt) {
		i++
	}
	q.entries = slices.Insert(q.entries, i, r)
}

// RemoveEarliest detaches and returns the head entry (smallest fire time).
// The second return is false when the queue is empty. A detached entry is
// never visible to any other caller.
func (q *Queue) RemoveEarliest() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Request{}, false
	}
	head := q.entries[0]
	// Zero the slot before advancing so the backing array doesn't pin the
	// fired message alive. Detaching stays O(1); Insert reallocates the
	// backing array as it grows, reclaiming the dead prefix.
	q.entries[0] = Request{}
	q.entries = q.entries[1:]
	return head, true
}

// Len reports the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a front-to-back copy of the pending entries.
// Intended for status logging and tests; the copy is detached from the queue.
func (q *Queue) Snapshot() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}
