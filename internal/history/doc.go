// Package history records job execution attempts for diagnostics.
//
// Recording is a side channel: nothing schedules or retries based on
// stored rows, and a process restart starts from a clean slate as far
// as the scheduler is concerned.
package history
