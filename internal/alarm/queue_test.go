package alarm

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

func sortedAscending(entries []Request) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].FireAt.Before(entries[i-1].FireAt) {
			return false
		}
	}
	return true
}

func TestQueueInsertKeepsOrder(t *testing.T) {
	t.Parallel()
	base := time.Now()
	q := NewQueue()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		q.Insert(Request{FireAt: base.Add(time.Duration(rng.Intn(50)) * time.Second), Message: "m"})
	}

	snap := q.Snapshot()
	if len(snap) != 200 {
		t.Fatalf("Len = %d, want 200", len(snap))
	}
	if !sortedAscending(snap) {
		t.Fatal("queue snapshot not sorted ascending by fire time")
	}
}

func TestQueueTieBreakNewestFirst(t *testing.T) {
	t.Parallel()
	at := time.Now().Add(3 * time.Second)
	q := NewQueue()

	q.Insert(Request{FireAt: at, Message: "first"})
	q.Insert(Request{FireAt: at, Message: "second"})

	snap := q.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Len = %d, want 2", len(snap))
	}
	if snap[0].Message != "second" || snap[1].Message != "first" {
		t.Fatalf("tie order = [%s, %s], want [second, first]", snap[0].Message, snap[1].Message)
	}
}

func TestQueueRemoveEarliest(t *testing.T) {
	t.Parallel()
	base := time.Now()
	q := NewQueue()

	if _, ok := q.RemoveEarliest(); ok {
		t.Fatal("RemoveEarliest on empty queue reported an entry")
	}

	q.Insert(Request{FireAt: base.Add(5 * time.Second), Message: "late"})
	q.Insert(Request{FireAt: base.Add(2 * time.Second), Message: "early"})

	head, ok := q.RemoveEarliest()
	if !ok || head.Message != "early" {
		t.Fatalf("RemoveEarliest = (%q, %v), want (early, true)", head.Message, ok)
	}
	head, ok = q.RemoveEarliest()
	if !ok || head.Message != "late" {
		t.Fatalf("RemoveEarliest = (%q, %v), want (late, true)", head.Message, ok)
	}
	if _, ok := q.RemoveEarliest(); ok {
		t.Fatal("drained queue still returned an entry")
	}
}

func TestQueueConcurrentInsertStaysSorted(t *testing.T) {
	t.Parallel()
	base := time.Now()
	q := NewQueue()

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < perProducer; i++ {
				q.Insert(Request{FireAt: base.Add(time.Duration(rng.Intn(1000)) * time.Millisecond), Message: "m"})
			}
		}(int64(p))
	}
	wg.Wait()

	snap := q.Snapshot()
	if len(snap) != producers*perProducer {
		t.Fatalf("Len = %d, want %d", len(snap), producers*perProducer)
	}
	if !sortedAscending(snap) {
		t.Fatal("queue not sorted after concurrent inserts")
	}
}

func TestQueueAtMostOnceDelivery(t *testing.T) {
	t.Parallel()
	base := time.Now()
	q := NewQueue()

	const n = 500
	for i := 0; i < n; i++ {
		q.Insert(Request{FireAt: base.Add(time.Duration(i) * time.Millisecond), Message: "m"})
	}

	var mu sync.Mutex
	seen := make(map[time.Time]int)

	var wg sync.WaitGroup
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				r, ok := q.RemoveEarliest()
				if !ok {
					return
				}
				mu.Lock()
				seen[r.FireAt]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("delivered %d distinct entries, want %d", len(seen), n)
	}
	for at, count := range seen {
		if count != 1 {
			t.Fatalf("entry %v delivered %d times", at, count)
		}
	}
}
