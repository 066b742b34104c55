package history

import (
	"context"
	"sync"
	"time"

	"alarmd/internal/eventbus"
	logx "alarmd/pkg/logx"
)

// Recorder subscribes to fired events and appends them to the store.
type Recorder struct {
	store Store
	bus   eventbus.Bus
	log   logx.Logger

	mu     sync.Mutex
	unsub  func()
	doneCh chan struct{}
}

func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	return &Recorder{store: store, bus: bus, log: log}
}

// Start begins consuming fired events. A nil store makes Start a no-op.
func (r *Recorder) Start(ctx context.Context) {
	if r.store == nil || r.bus == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doneCh != nil {
		return
	}

	ch, unsub := r.bus.Subscribe(64)
	r.unsub = unsub
	r.doneCh = make(chan struct{})

	go r.consume(ctx, ch, r.doneCh)
}

// Stop unsubscribes and waits for buffered events to be written or ctx to
// expire.
func (r *Recorder) Stop(ctx context.Context) {
	r.mu.Lock()
	unsub, doneCh := r.unsub, r.doneCh
	r.unsub, r.doneCh = nil, nil
	r.mu.Unlock()

	if unsub == nil {
		return
	}
	unsub()
	select {
	case <-doneCh:
	case <-ctx.Done():
	}
}

func (r *Recorder) consume(ctx context.Context, ch <-chan eventbus.Event, doneCh chan<- struct{}) {
	defer close(doneCh)
	for ev := range ch {
		if ev.Type != eventbus.EventAlarmFired {
			continue
		}
		fired, ok := ev.Data.(eventbus.Fired)
		if !ok {
			continue
		}

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		err := r.store.Append(wctx, Entry{
			ScheduledAt: fired.ScheduledAt,
			FiredAt:     fired.FiredAt,
			Message:     fired.Message,
		})
		cancel()
		if err != nil {
			r.log.Warn("history append failed", logx.Err(err), logx.String("message", fired.Message))
		}
	}
}
