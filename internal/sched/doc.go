// Package sched runs the single background worker that fires due alarms.
//
// # Loop
//
// Each iteration the worker detaches the earliest queued alarm. If the queue
// is empty it sleeps one poll interval and retries; an empty queue costs one
// wakeup per interval, never a busy spin. If the detached alarm is not yet
// due the worker sleeps for exactly the remaining time; if it is already due
// the worker yields once so the producer can take the queue lock, then fires
// without added latency.
//
// # Bounded preemption
//
// The earliest entry is detached BEFORE the wait. An insert that arrives
// during the wait with an even earlier fire time cannot preempt the wait in
// progress; it is picked up on the next iteration. This is a deliberate
// property of the single-worker design. Do not add workers to "fix" it: one
// worker is what keeps at most one firing in flight.
//
// # Shutdown
//
// Stopping the worker abandons any wait in progress and silently drops
// pending alarms. There is no drain.
package sched
