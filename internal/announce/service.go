// Package announce turns config-defined cron schedules into ordinary one-shot
// alarms. Each trigger builds a Request and inserts it through the same
// protocol the interactive producer uses; firing stays entirely the worker's
// business.
package announce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"alarmd/internal/alarm"
	logx "alarmd/pkg/logx"
)

// Submitter is the slice of the queue the service needs.
// *alarm.Queue satisfies it.
type Submitter interface {
	Insert(r alarm.Request)
}

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ; empty means time.Local

	Entries []Entry
}

// Entry is one recurring announcement.
type Entry struct {
	Name    string
	Spec    string // cron expression or descriptor ("@hourly", "@every 30m")
	Message string
	Delay   time.Duration // shifts the alarm past the trigger instant
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log   logx.Logger
	queue Submitter

	parser cron.Parser
	c      *cron.Cron

	now func() time.Time
}

func New(cfg Config, queue Submitter, log logx.Logger) *Service {
	return &Service{
		cfg:    cfg,
		log:    log,
		queue:  queue,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:    time.Now,
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Validate checks every entry without starting anything. Used both at
// startup and as the config-reload gate.
func Validate(cfg Config) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for i, e := range cfg.Entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = fmt.Sprintf("entry %d", i)
		}
		if _, err := parser.Parse(e.Spec); err != nil {
			return fmt.Errorf("announce %s: invalid spec %q: %w", name, e.Spec, err)
		}
		if _, err := alarm.NewRequest(time.Now(), e.Delay, e.Message); err != nil {
			return fmt.Errorf("announce %s: %w", name, err)
		}
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("announce: invalid timezone %q: %w", tz, err)
		}
	}
	return nil
}

// Start registers the entries and launches the cron runner. Disabled configs
// and empty entry lists are a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || len(s.cfg.Entries) == 0 {
		return nil
	}
	if s.c != nil {
		return errors.New("announce already started")
	}
	return s.startLocked()
}

func (s *Service) startLocked() error {
	loc := s.loadLocationLocked()
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	for i, e := range s.cfg.Entries {
		e := e
		if strings.TrimSpace(e.Name) == "" {
			e.Name = fmt.Sprintf("entry-%d", i)
		}
		if _, err := c.AddFunc(e.Spec, func() { s.trigger(e) }); err != nil {
			return fmt.Errorf("announce %s: %w", e.Name, err)
		}
	}

	s.c = c
	c.Start()
	s.log.Info("announce started",
		logx.Int("entries", len(s.cfg.Entries)),
		logx.String("tz", loc.String()),
	)
	return nil
}

// Stop halts the cron runner and waits for in-flight triggers.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("announce stopped")
}

// Apply replaces the entry set at runtime (config hot reload).
func (s *Service) Apply(cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	running := s.c != nil
	if running {
		<-s.c.Stop().Done()
		s.c = nil
	}
	s.cfg = cfg
	if !cfg.Enabled || len(cfg.Entries) == 0 {
		if running {
			s.log.Info("announce disabled by config reload")
		}
		return nil
	}
	return s.startLocked()
}

func (s *Service) trigger(e Entry) {
	req, err := alarm.NewRequest(s.now(), e.Delay, e.Message)
	if err != nil {
		// Entries are validated before registration; this only fires if the
		// clock misbehaves badly enough to matter.
		s.log.Warn("announce trigger rejected", logx.String("entry", e.Name), logx.Err(err))
		return
	}
	s.queue.Insert(req)
	s.log.Debug("announce queued",
		logx.String("entry", e.Name),
		logx.Time("fire_at", req.FireAt),
	)
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
