package config

// Config is jobd's on-disk configuration (YAML or JSON).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	API       APIConfig       `json:"api,omitempty"`
	Pprof     PprofConfig     `json:"pprof,omitempty"`
	History   HistoryConfig   `json:"history,omitempty"`
	Jobs      JobsConfig      `json:"jobs"`
}

type LoggingConfig struct {
	Level   string         `json:"level,omitempty"` // TRACE..ERROR, default INFO
	Console bool           `json:"console"`
	File    LogFileConfig  `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// SchedulerConfig controls the cron trigger loop.
//
// Enabled can be overridden per process with the JOBD_SCHEDULER env var,
// which is how scheduler-only and API-only deployments share one config.
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"; default host local

	// RetryDelay is the fixed delay between attempts of a failing job.
	// Default "10s". There is no jitter and no backoff growth.
	RetryDelay string `json:"retry_delay,omitempty"`
}

// APIConfig controls the read-only HTTP API (jobs, runs, metrics).
//
// Enabled can be overridden per process with the JOBD_API env var.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:8080"

	// Token-bucket request limiting. 0 disables limiting.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	Burst      int `json:"burst,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:6060"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}

// HistoryConfig controls the optional run-history store.
//
// Driver values:
//   - "" or "none": history recording disabled
//   - "sqlite": SQLite database file
type HistoryConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite; 0 means default

	// Retention is how long the history-prune job keeps rows. Default "168h".
	Retention string `json:"retention,omitempty"`
}

// JobsConfig declares the static job list. It is read once at startup;
// edits require a restart (there is no runtime job registration).
type JobsConfig struct {
	Heartbeat    BuiltinJob   `json:"heartbeat,omitempty"`
	HistoryPrune BuiltinJob   `json:"history_prune,omitempty"`
	Commands     []CommandJob `json:"commands,omitempty"`
}

// BuiltinJob toggles one of the built-in jobs and overrides its defaults.
//
// Enabled is a pointer so "omitted" keeps the built-in's default
// (heartbeat on, history_prune on only when history is enabled).
type BuiltinJob struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Schedule string `json:"schedule,omitempty"` // 5-field cron
	Retries  int    `json:"retries,omitempty"`
}

// CommandJob runs a shell command on a cron schedule.
type CommandJob struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"` // 5-field cron
	Command  string `json:"command"`  // passed to "sh -c"
	Retries  int    `json:"retries,omitempty"`
}
