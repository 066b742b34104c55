package sched

import (
	"context"
	"runtime"
	"time"

	"alarmd/internal/alarm"
	"alarmd/internal/eventbus"
	logx "alarmd/pkg/logx"
)

func (s *Service) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		// Fast-exit check so a closed stopCh wins over pending work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		entry, ok := s.queue.RemoveEarliest()
		if !ok {
			if s.idleLog.Allow() {
				s.log.Trace("queue empty; polling", logx.Duration("poll_interval", s.PollInterval()))
			}
			if !s.sleep(ctx, stopCh, s.PollInterval()) {
				return
			}
			continue
		}

		// remaining = fireTime - now. The entry stays detached for the whole
		// wait: a later insert with an earlier fire time is picked up on the
		// next iteration, never by preempting this one.
		remaining := entry.Remaining(s.now())
		if remaining > 0 {
			if !s.sleep(ctx, stopCh, remaining) {
				// Shutdown mid-wait drops the detached entry; there is no drain.
				return
			}
		} else {
			// Already due. Yield once so the producer can take the queue
			// lock, without adding wait latency.
			runtime.Gosched()
		}

		s.fire(entry)
	}
}

// sleep is a genuine timed wait. It returns false when the worker should
// exit instead of continuing the loop.
func (s *Service) sleep(ctx context.Context, stopCh <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	case <-t.C:
		return true
	}
}

func (s *Service) fire(entry alarm.Request) {
	firedAt := s.now()
	s.emit.Emit(entry, firedAt)

	s.log.Debug("alarm fired",
		logx.String("message", entry.Message),
		logx.Time("scheduled_at", entry.FireAt),
		logx.Duration("late", firedAt.Sub(entry.FireAt)),
	)

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventAlarmFired,
			Time: firedAt,
			Data: eventbus.Fired{ScheduledAt: entry.FireAt, FiredAt: firedAt, Message: entry.Message},
		})
	}
}
