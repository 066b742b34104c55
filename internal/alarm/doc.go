// Package alarm holds the core scheduling types: the one-shot alarm Request
// and the time-ordered Queue shared between the input producer and the
// firing worker.
//
// # Ordering contract
//
// The Queue is kept ascending by fire time at all times. Ties break LIFO: a
// newly inserted request with a fire time equal to an already-queued request
// is placed ahead of the existing one. All reads and mutations happen under a
// single internal mutex; callers never see a partially sorted sequence.
//
// # Ownership
//
// A Request is a plain value. The producer owns it until Insert, the Queue
// owns it while queued, and the worker owns it from RemoveEarliest until it
// is fired and discarded.
package alarm
