package app

import (
	"alarmd/internal/announce"
	"alarmd/internal/config"
	"alarmd/internal/history"
	"alarmd/internal/sched"
	logx "alarmd/pkg/logx"
)

// The config package stays transport-shaped (strings, pointers); these
// helpers map it onto each service's typed Config.

// defaultConfig is what alarmd runs on when no config file exists.
func defaultConfig() *config.Config {
	return &config.Config{
		Logging: config.LoggingConfig{Level: "INFO", Console: true},
	}
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapHistoryConfig(cfg *config.Config) (history.Config, error) {
	if cfg.History == nil {
		return history.Config{}, nil
	}
	busy, err := config.ParseDurationField("history.busy_timeout", cfg.History.BusyTimeout)
	if err != nil {
		return history.Config{}, err
	}
	return history.Config{
		Driver:      cfg.History.Driver,
		Path:        cfg.History.Path,
		BusyTimeout: busy,
	}, nil
}

func mapAnnounceConfig(cfg *config.Config) (announce.Config, error) {
	if cfg.Announce == nil {
		return announce.Config{}, nil
	}
	out := announce.Config{
		Enabled:  cfg.Announce.Enabled,
		Timezone: cfg.Announce.Timezone,
		Entries:  make([]announce.Entry, 0, len(cfg.Announce.Entries)),
	}
	for _, e := range cfg.Announce.Entries {
		delay, err := config.ParseDurationField("announce.entries.delay", e.Delay)
		if err != nil {
			return announce.Config{}, err
		}
		out.Entries = append(out.Entries, announce.Entry{
			Name:    e.Name,
			Spec:    e.Spec,
			Message: e.Message,
			Delay:   delay,
		})
	}
	return out, nil
}

// validateConfig is the shared gate for startup and hot reload.
func validateConfig(cfg *config.Config) error {
	if _, err := config.ParseDurationOrDefault("alarms.poll_interval", cfg.Alarms.PollInterval, sched.DefaultPollInterval); err != nil {
		return err
	}
	if _, err := mapHistoryConfig(cfg); err != nil {
		return err
	}
	acfg, err := mapAnnounceConfig(cfg)
	if err != nil {
		return err
	}
	return announce.Validate(acfg)
}
