// Package app wires alarmd together: config, logging, the queue, the worker,
// the input loop, and the optional history and announce services.
package app

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"alarmd/internal/alarm"
	"alarmd/internal/announce"
	"alarmd/internal/config"
	"alarmd/internal/emit"
	"alarmd/internal/eventbus"
	"alarmd/internal/history"
	"alarmd/internal/input"
	"alarmd/internal/sched"
	logx "alarmd/pkg/logx"
	"alarmd/pkg/systemd"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	queue  *alarm.Queue
	store  history.Store
	rec    *history.Recorder
	worker *sched.Service
	ann    *announce.Service
	reader *input.Reader
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if errors.Is(err, fs.ErrNotExist) {
		// A missing config file is not fatal: run on defaults and let the
		// watcher pick the file up if it appears later.
		cfg = defaultConfig()
		cfgm.Commit(cfg)
		logx.NewConsole("INFO").Warn("config file not found; using defaults",
			logx.String("path", cfgPath))
	} else if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()
	queue := alarm.NewQueue()

	// History (optional)
	var store history.Store
	hcfg, err := mapHistoryConfig(cfg)
	if err != nil {
		return nil, err
	}
	if hcfg.Driver != "" {
		st, err := history.Open(hcfg, log.With(logx.String("comp", "history")))
		if err != nil {
			return nil, err
		}
		store = st
		if store != nil {
			log.Info("history enabled", logx.String("driver", hcfg.Driver))
		}
	}
	rec := history.NewRecorder(store, bus, log.With(logx.String("comp", "history")))

	pollInterval, err := config.ParseDurationOrDefault("alarms.poll_interval", cfg.Alarms.PollInterval, sched.DefaultPollInterval)
	if err != nil {
		return nil, err
	}

	// Fired alarms go to stdout; everything else (prompt aside) stays off it.
	emitter := emit.NewConsole(logx.Stdout())
	worker := sched.New(sched.Config{PollInterval: pollInterval},
		queue, emitter, log.With(logx.String("comp", "worker")), bus)

	acfg, err := mapAnnounceConfig(cfg)
	if err != nil {
		return nil, err
	}
	ann := announce.New(acfg, queue, log.With(logx.String("comp", "announce")))

	reader := input.New(input.Config{Prompt: cfg.Alarms.PromptEnabled()},
		queue, os.Stdin, logx.Stdout(), logx.Stderr(),
		log.With(logx.String("comp", "input")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		queue:   queue,
		store:   store,
		rec:     rec,
		worker:  worker,
		ann:     ann,
		reader:  reader,
	}, nil
}

// Done is closed when the app supervisor context is canceled (end of input,
// fatal error, or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	runCtx := a.sup.Context()

	a.worker.Start(runCtx)
	a.rec.Start(runCtx)
	if err := a.ann.Start(runCtx); err != nil {
		a.sup.Cancel()
		return err
	}

	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("config.apply", a.applyUpdates)
	a.sup.Go("input.read", func(ctx context.Context) error {
		err := a.reader.Run(ctx)
		// End of input terminates the process immediately; pending alarms
		// are dropped, not drained.
		a.sup.Cancel()
		return err
	})

	if systemd.NotifyReady() {
		a.log.Debug("systemd readiness notified")
	}
	a.log.Info("alarmd started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	systemd.NotifyStopping()

	if a.ann != nil {
		a.ann.Stop(ctx)
	}
	if a.worker != nil {
		a.worker.Stop(ctx)
	}
	if a.rec != nil {
		a.rec.Stop(ctx)
	}
	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("alarmd stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// applyUpdates consumes republished configs from the watcher and applies the
// hot-reloadable parts: logging sinks/level and announce entries. The poll
// interval, history driver, and prompt flag stay as loaded at startup.
func (a *App) applyUpdates(ctx context.Context) error {
	ch := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-ch:
			if !ok {
				return nil
			}
			if cfg == nil {
				continue
			}
			a.applyOne(cfg)
		}
	}
}

func (a *App) applyOne(cfg *config.Config) {
	a.logs.Apply(mapLoggingConfig(cfg))

	acfg, err := mapAnnounceConfig(cfg)
	if err != nil {
		// The validator runs before publish; only a racing edit gets here.
		a.log.Warn("announce config not applied", logx.Err(err))
	} else if err := a.ann.Apply(acfg); err != nil {
		a.log.Warn("announce config not applied", logx.Err(err))
	}

	if interval, err := config.ParseDurationOrDefault("alarms.poll_interval", cfg.Alarms.PollInterval, sched.DefaultPollInterval); err == nil {
		if interval != a.worker.PollInterval() {
			a.log.Info("alarms.poll_interval change requires a restart")
		}
	}
}
