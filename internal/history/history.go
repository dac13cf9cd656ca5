package history

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "jobd/pkg/logx"
)

// Config configures the run-history store.
//
// If Driver is empty or "none", history recording is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Run records one execution attempt of a scheduled job.
// Keep it compact and schema-stable.
type Run struct {
	RunID    string        `json:"run_id"` // identifies the retry chain (one per trigger firing)
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	Attempt  int           `json:"attempt"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Final    bool          `json:"final"` // no further attempt follows
	Success  bool          `json:"success"`
}

// Recorder is the minimal persistence API used by the executor and the
// HTTP API. Recording is best-effort diagnostics: the scheduler never
// reads history back to resume or recover work.
type Recorder interface {
	Append(ctx context.Context, r Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if history is disabled.
func Open(cfg Config, log logx.Logger) (Recorder, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown history driver: " + driver)
	}
}
