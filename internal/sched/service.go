package sched

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"alarmd/internal/alarm"
	"alarmd/internal/eventbus"
	logx "alarmd/pkg/logx"
)

// DefaultPollInterval is the empty-queue wait and the firing slack an alarm
// may observe.
const DefaultPollInterval = time.Second

type Config struct {
	// PollInterval is how long the worker sleeps when the queue is empty.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration
}

// Emitter renders a fired alarm to the user-visible output, exactly once,
// synchronously with firing.
type Emitter interface {
	Emit(r alarm.Request, firedAt time.Time)
}

// Dequeuer is the slice of the queue the worker consumes.
// *alarm.Queue satisfies it.
type Dequeuer interface {
	RemoveEarliest() (alarm.Request, bool)
	Len() int
}

// Service owns the worker goroutine. It is the only consumer of
// Queue.RemoveEarliest.
type Service struct {
	mu  sync.Mutex
	cfg Config

	log   logx.Logger
	queue Dequeuer
	emit  Emitter
	bus   eventbus.Bus

	// now is swappable for tests.
	now func() time.Time

	// idleLog throttles empty-queue trace logging so a small poll interval
	// cannot flood the log.
	idleLog *rate.Limiter

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(cfg Config, queue Dequeuer, emit Emitter, log logx.Logger, bus eventbus.Bus) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Service{
		cfg:     cfg,
		log:     log,
		queue:   queue,
		emit:    emit,
		bus:     bus,
		now:     time.Now,
		idleLog: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

func (s *Service) PollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.PollInterval
}

// Start launches the worker goroutine. Calling Start on a running service is
// a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx, s.stopCh, s.doneCh)
	s.log.Info("worker started", logx.Duration("poll_interval", s.cfg.PollInterval))
}

// Stop halts the worker, abandoning any wait in progress. It waits for the
// goroutine to exit or ctx to expire.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-doneCh:
	case <-ctx.Done():
	}
	s.log.Info("worker stopped", logx.Int("pending_dropped", s.queue.Len()))
}
