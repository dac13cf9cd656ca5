// Package scheduler owns the cron timer wheel. It binds the static job
// registry at startup and triggers the executor on schedule matches;
// execution (and retrying) lives in internal/executor.
package scheduler
