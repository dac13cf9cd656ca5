// Package jobs builds the static job registry from config. Everything
// here is decided once at startup; the scheduler never sees a job that
// is not in the returned registry.
package jobs

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"jobd/internal/config"
	"jobd/internal/history"
	"jobd/internal/registry"
	logx "jobd/pkg/logx"
)

const (
	defaultHeartbeatSchedule = "*/5 * * * *"
	defaultPruneSchedule     = "30 3 * * *"
	defaultRetention         = 7 * 24 * time.Hour
)

// Build assembles the registry: built-ins first (stable order), then
// config-declared command jobs in file order.
func Build(cfg config.JobsConfig, hist config.HistoryConfig, rec history.Recorder, log logx.Logger) (registry.Registry, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	var reg registry.Registry

	if enabled(cfg.Heartbeat.Enabled, true) {
		reg = append(reg, registry.Job{
			Name:     "Heartbeat",
			Slug:     "heartbeat",
			Schedule: schedule(cfg.Heartbeat.Schedule, defaultHeartbeatSchedule),
			Retries:  cfg.Heartbeat.Retries,
			Task:     heartbeatTask(log),
		})
	}

	// History pruning only makes sense when a recorder exists.
	if rec != nil && enabled(cfg.HistoryPrune.Enabled, true) {
		retention, err := config.ParseDurationOrDefault("history.retention", hist.Retention, defaultRetention)
		if err != nil {
			return nil, err
		}
		reg = append(reg, registry.Job{
			Name:     "History Prune",
			Slug:     "history-prune",
			Schedule: schedule(cfg.HistoryPrune.Schedule, defaultPruneSchedule),
			Retries:  cfg.HistoryPrune.Retries,
			Task:     pruneTask(rec, retention, log),
		})
	}

	for i, cj := range cfg.Commands {
		name := strings.TrimSpace(cj.Name)
		if name == "" {
			return nil, fmt.Errorf("jobs.commands[%d]: name required", i)
		}
		if strings.TrimSpace(cj.Command) == "" {
			return nil, fmt.Errorf("jobs.commands[%d] (%s): command required", i, name)
		}
		reg = append(reg, registry.Job{
			Name:     name,
			Slug:     registry.Slugify(name),
			Schedule: cj.Schedule,
			Retries:  cj.Retries,
			Task:     commandTask(cj.Command),
		})
	}

	reg = reg.WithDefaults()
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func enabled(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func schedule(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

var processStart = time.Now()

func heartbeatTask(log logx.Logger) registry.Task {
	return func(ctx context.Context) error {
		log.Info("heartbeat",
			logx.Duration("uptime", time.Since(processStart).Round(time.Second)),
			logx.Int("goroutines", runtime.NumGoroutine()),
		)
		return nil
	}
}

func pruneTask(rec history.Recorder, retention time.Duration, log logx.Logger) registry.Task {
	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-retention)
		n, err := rec.PruneBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		log.Info("history pruned", logx.Int64("rows", n), logx.Time("cutoff", cutoff))
		return nil
	}
}

func commandTask(command string) registry.Task {
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		out, err := cmd.CombinedOutput()
		if err != nil {
			msg := strings.TrimSpace(string(out))
			if msg != "" {
				return fmt.Errorf("%w: %s", err, truncate(msg, 512))
			}
			return err
		}
		return nil
	}
}

func truncate(s string, maxN int) string {
	if len(s) <= maxN {
		return s
	}
	return s[:maxN-3] + "..."
}
