package app

import (
	"jobd/internal/config"
	"jobd/internal/executor"
	"jobd/internal/history"
	"jobd/internal/httpapi"
	"jobd/internal/observability/pprof"
	logx "jobd/pkg/logx"
)

// Small adapters from file config to per-service configs, so service
// packages never depend on internal/config.

func mapLoggingConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
	}
}

func mapHistoryConfig(c config.HistoryConfig) (history.Config, error) {
	busy, err := config.ParseDurationField("history.busy_timeout", c.BusyTimeout)
	if err != nil {
		return history.Config{}, err
	}
	return history.Config{
		Driver:      c.Driver,
		Path:        c.Path,
		BusyTimeout: busy,
	}, nil
}

func mapExecutorConfig(c config.SchedulerConfig) (executor.Config, error) {
	delay, err := config.ParseDurationOrDefault("scheduler.retry_delay", c.RetryDelay, executor.DefaultRetryDelay)
	if err != nil {
		return executor.Config{}, err
	}
	return executor.Config{RetryDelay: delay}, nil
}

func mapAPIConfig(c config.APIConfig) (httpapi.Config, error) {
	read, err := config.ParseDurationField("api.read_timeout", c.ReadTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	write, err := config.ParseDurationField("api.write_timeout", c.WriteTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	idle, err := config.ParseDurationField("api.idle_timeout", c.IdleTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Enabled:      c.Enabled,
		Addr:         c.Addr,
		RatePerSec:   c.RatePerSec,
		Burst:        c.Burst,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}

func mapPprofConfig(c config.PprofConfig) pprof.Config {
	return pprof.Config{
		Enabled:       c.Enabled,
		Addr:          c.Addr,
		Token:         c.Token,
		AllowInsecure: c.AllowInsecure,
	}
}
