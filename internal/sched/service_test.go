package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"alarmd/internal/alarm"
	logx "alarmd/pkg/logx"
)

// recorder collects fired alarms and signals each one on a channel.
type recorder struct {
	mu    sync.Mutex
	fired []alarm.Request
	times []time.Time
	ch    chan alarm.Request
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan alarm.Request, 32)}
}

func (r *recorder) Emit(req alarm.Request, firedAt time.Time) {
	r.mu.Lock()
	r.fired = append(r.fired, req)
	r.times = append(r.times, firedAt)
	r.mu.Unlock()
	r.ch <- req
}

func (r *recorder) wait(t *testing.T, n int, timeout time.Duration) []alarm.Request {
	t.Helper()
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-r.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for alarm %d of %d", i+1, n)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]alarm.Request, len(r.fired))
	copy(out, r.fired)
	return out
}

func startWorker(t *testing.T, q *alarm.Queue, rec *recorder, poll time.Duration) *Service {
	t.Helper()
	s := New(Config{PollInterval: poll}, q, rec, logx.Nop(), nil)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestWorkerFiresInFireTimeOrder(t *testing.T) {
	t.Parallel()
	q := alarm.NewQueue()
	rec := newRecorder()
	now := time.Now()

	// "5 hello" then "2 world", scaled down: world must fire first, each
	// after its own delay.
	q.Insert(alarm.Request{FireAt: now.Add(250 * time.Millisecond), Message: "hello"})
	q.Insert(alarm.Request{FireAt: now.Add(100 * time.Millisecond), Message: "world"})

	startWorker(t, q, rec, 10*time.Millisecond)

	fired := rec.wait(t, 2, 3*time.Second)
	if fired[0].Message != "world" || fired[1].Message != "hello" {
		t.Fatalf("fired order = [%s, %s], want [world, hello]", fired[0].Message, fired[1].Message)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, at := range rec.times {
		if at.Before(rec.fired[i].FireAt) {
			t.Fatalf("alarm %q fired %v early", rec.fired[i].Message, rec.fired[i].FireAt.Sub(at))
		}
	}
}

func TestWorkerFiresDueAlarmWithoutPollDelay(t *testing.T) {
	t.Parallel()
	q := alarm.NewQueue()
	rec := newRecorder()

	// Long poll interval: a due alarm must still fire on the next iteration,
	// not after a poll sleep.
	s := New(Config{PollInterval: 5 * time.Second}, q, rec, logx.Nop(), nil)

	q.Insert(alarm.Request{FireAt: time.Now(), Message: "now"})
	start := time.Now()
	s.Start(context.Background())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	rec.wait(t, 1, 2*time.Second)
	if took := time.Since(start); took > time.Second {
		t.Fatalf("due alarm took %v to fire; poll interval leaked into the path", took)
	}
}

func TestWorkerTieBreakSecondSubmissionFirst(t *testing.T) {
	t.Parallel()
	q := alarm.NewQueue()
	rec := newRecorder()
	at := time.Now().Add(100 * time.Millisecond)

	// "3 x" twice in immediate succession, scaled down: the second
	// submission fires first.
	q.Insert(alarm.Request{FireAt: at, Message: "x1"})
	q.Insert(alarm.Request{FireAt: at, Message: "x2"})

	startWorker(t, q, rec, 10*time.Millisecond)

	fired := rec.wait(t, 2, 3*time.Second)
	if fired[0].Message != "x2" || fired[1].Message != "x1" {
		t.Fatalf("fired order = [%s, %s], want [x2, x1]", fired[0].Message, fired[1].Message)
	}
}

func TestWorkerFiringOrderMatchesQueueOrder(t *testing.T) {
	t.Parallel()
	q := alarm.NewQueue()
	rec := newRecorder()
	now := time.Now()

	q.Insert(alarm.Request{FireAt: now.Add(150 * time.Millisecond), Message: "c"})
	q.Insert(alarm.Request{FireAt: now.Add(50 * time.Millisecond), Message: "a"})
	q.Insert(alarm.Request{FireAt: now.Add(100 * time.Millisecond), Message: "b"})

	want := q.Snapshot()
	startWorker(t, q, rec, 10*time.Millisecond)

	fired := rec.wait(t, len(want), 3*time.Second)
	for i := range want {
		if fired[i].Message != want[i].Message {
			t.Fatalf("fired[%d] = %s, want %s (queue order)", i, fired[i].Message, want[i].Message)
		}
	}
}

func TestWorkerTimingLowerBound(t *testing.T) {
	t.Parallel()
	q := alarm.NewQueue()
	rec := newRecorder()

	const delay = 200 * time.Millisecond
	poll := 20 * time.Millisecond
	startWorker(t, q, rec, poll)

	submitted := time.Now()
	q.Insert(alarm.Request{FireAt: submitted.Add(delay), Message: "bound"})

	rec.wait(t, 1, 3*time.Second)
	rec.mu.Lock()
	firedAt := rec.times[0]
	rec.mu.Unlock()

	// Never earlier than the requested delay (minus nothing); allow the poll
	// interval as documented slack on top.
	if firedAt.Sub(submitted) < delay {
		t.Fatalf("fired after %v, want >= %v", firedAt.Sub(submitted), delay)
	}
}

// countingQueue stays empty and counts how often the worker asks for work.
type countingQueue struct {
	calls atomic.Int64
}

func (c *countingQueue) RemoveEarliest() (alarm.Request, bool) {
	c.calls.Add(1)
	return alarm.Request{}, false
}

func (c *countingQueue) Len() int { return 0 }

func TestWorkerIdlePollingIsBounded(t *testing.T) {
	t.Parallel()
	q := &countingQueue{}
	const poll = 10 * time.Millisecond
	const window = 150 * time.Millisecond

	s := New(Config{PollInterval: poll}, q, newRecorder(), logx.Nop(), nil)
	s.Start(context.Background())
	time.Sleep(window)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	calls := q.calls.Load()
	// Roughly one dequeue attempt per poll interval. A busy spin over an
	// empty queue would make thousands of calls in the window; allow generous
	// scheduling slack both ways.
	if limit := 3 * int64(window/poll); calls > limit {
		t.Fatalf("worker polled %d times in %v with poll interval %v, want <= %d", calls, window, poll, limit)
	}
	if calls < 2 {
		t.Fatalf("worker polled only %d times in %v, want at least 2", calls, window)
	}
}

func TestWorkerStopAbandonsWait(t *testing.T) {
	t.Parallel()
	q := alarm.NewQueue()
	rec := newRecorder()

	s := New(Config{PollInterval: 10 * time.Millisecond}, q, rec, logx.Nop(), nil)
	q.Insert(alarm.Request{FireAt: time.Now().Add(time.Hour), Message: "never"})
	s.Start(context.Background())

	// Give the worker time to detach the entry and enter its wait.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Stop(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the in-flight wait")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.fired) != 0 {
		t.Fatalf("alarm fired during shutdown: %v", rec.fired)
	}
}

func TestWorkerStartIdempotent(t *testing.T) {
	t.Parallel()
	q := alarm.NewQueue()
	rec := newRecorder()

	s := New(Config{PollInterval: 10 * time.Millisecond}, q, rec, logx.Nop(), nil)
	s.Start(context.Background())
	s.Start(context.Background()) // second Start is a no-op, not a second worker

	at := time.Now().Add(50 * time.Millisecond)
	q.Insert(alarm.Request{FireAt: at, Message: "once"})

	rec.wait(t, 1, 2*time.Second)
	// A second worker would race RemoveEarliest; with one worker there is
	// nothing further to fire.
	select {
	case r := <-rec.ch:
		t.Fatalf("unexpected extra firing: %v", r)
	case <-time.After(100 * time.Millisecond):
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
