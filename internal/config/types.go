package config

// Config is the root of alarmd's configuration file (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "1s", "1m").
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Alarms controls the core scheduling loop.
	Alarms AlarmsConfig `json:"alarms"`

	// History optionally records fired alarms to a local store.
	History *HistoryConfig `json:"history,omitempty"`

	// Announce optionally injects recurring announcement alarms from cron
	// specs. Each trigger inserts a normal one-shot alarm into the queue.
	Announce *AnnounceConfig `json:"announce,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// AlarmsConfig controls the worker loop.
//
// Defaults (when fields are omitted/zero):
//   - poll_interval: "1s"
//   - prompt: true
type AlarmsConfig struct {
	// PollInterval is how long the worker sleeps between checks while the
	// queue is empty. It is also the firing slack an alarm may observe.
	PollInterval string `json:"poll_interval,omitempty"`

	// Prompt is a pointer so we can distinguish "omitted" (default true)
	// from an explicit false.
	Prompt *bool `json:"prompt,omitempty"`
}

// HistoryConfig controls the optional fired-alarm record.
//
// Driver values:
//   - "none" (or empty): disabled
//   - "sqlite": SQLite database file
type HistoryConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite busy_timeout pragma
}

type AnnounceConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"

	Entries []AnnounceEntry `json:"entries"`
}

// AnnounceEntry is one recurring announcement.
//
// Spec accepts cron expressions ("55 * * * *") and descriptors ("@hourly",
// "@every 30m"). Delay shifts the resulting alarm past the trigger instant;
// "0s" or omitted means immediately due.
type AnnounceEntry struct {
	Name    string `json:"name"`
	Spec    string `json:"spec"`
	Message string `json:"message"`
	Delay   string `json:"delay,omitempty"`
}

// PromptEnabled resolves the tri-state prompt flag.
func (a AlarmsConfig) PromptEnabled() bool {
	return a.Prompt == nil || *a.Prompt
}
