// Package executor drives one trigger firing of a job to success or
// final failure, retrying failed attempts a fixed number of times with
// a fixed delay.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"jobd/internal/history"
	"jobd/internal/metrics"
	"jobd/internal/registry"
	logx "jobd/pkg/logx"
)

// DefaultRetryDelay is the fixed wait between attempts of a failing job.
const DefaultRetryDelay = 10 * time.Second

type Config struct {
	// RetryDelay overrides DefaultRetryDelay when > 0. There is no
	// jitter and no backoff growth: attempt N+1 starts exactly one
	// delay after attempt N failed.
	RetryDelay time.Duration
}

// Executor is the retry-wrapped dispatcher invoked by cron triggers.
//
// Retry semantics: Job.Retries is the total attempt budget, checked
// AFTER an attempt has already failed (attempt < retries). The first
// attempt therefore consumes the budget, so Retries of 0 and 1 both
// mean a failing task runs exactly once. Kept as-is on purpose; see
// DESIGN.md before "fixing" it.
type Executor struct {
	log   logx.Logger
	delay time.Duration
	rec   history.Recorder // may be nil
	met   *metrics.Set     // may be nil
}

func New(cfg Config, rec history.Recorder, met *metrics.Set, log logx.Logger) *Executor {
	if log.IsZero() {
		log = logx.Nop()
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return &Executor{log: log, delay: delay, rec: rec, met: met}
}

// RetryDelay reports the fixed delay in effect.
func (e *Executor) RetryDelay() time.Duration { return e.delay }

// Run executes attempt 1 of job and returns when that attempt finishes.
// If the attempt fails and budget remains, the next attempt is a
// detached timer firing; the caller (the cron trigger callback) never
// waits on it and never observes its outcome. Once scheduled, a retry
// cannot be cancelled: on shutdown it either fires into a dying process
// or is lost with it.
func (e *Executor) Run(ctx context.Context, job registry.Job) {
	e.attempt(ctx, job, uuid.NewString(), 1)
}

func (e *Executor) attempt(ctx context.Context, job registry.Job, runID string, attempt int) {
	log := e.log.With(
		logx.String("job", job.Name),
		logx.String("run_id", runID),
		logx.Int("attempt", attempt),
	)

	start := time.Now()
	log.Info("job.started")

	err := runTask(ctx, job.Task, log)
	dur := time.Since(start)

	if err == nil {
		log.Info("job.succeeded", logx.Duration("dur", dur))
		e.record(ctx, job, runID, attempt, start, dur, nil, true)
		return
	}

	log.Warn("job.attempt_failed", logx.Err(err), logx.Duration("dur", dur))

	if job.Retries > 0 && attempt < job.Retries {
		e.record(ctx, job, runID, attempt, start, dur, err, false)
		e.met.IncRetry(job.Slug)
		log.Debug("job.retry_scheduled",
			logx.Int("next_attempt", attempt+1),
			logx.Duration("delay", e.delay),
		)
		// Fire-and-forget: the trigger callback returns now; the timer
		// owns the rest of the chain.
		time.AfterFunc(e.delay, func() {
			e.attempt(ctx, job, runID, attempt+1)
		})
		return
	}

	log.Error("job.gave_up", logx.Err(err), logx.Int("attempts", attempt), logx.Int("retries", job.Retries))
	e.record(ctx, job, runID, attempt, start, dur, err, true)
}

func runTask(ctx context.Context, task registry.Task, log logx.Logger) (err error) {
	// Guard against task panics: convert to error so one bad job can't
	// crash the whole daemon.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Error("job.panic", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	return task(ctx)
}

func (e *Executor) record(ctx context.Context, job registry.Job, runID string, attempt int, start time.Time, dur time.Duration, taskErr error, final bool) {
	success := taskErr == nil
	e.met.ObserveRun(job.Slug, success, float64(dur.Milliseconds()))

	if e.rec == nil {
		return
	}
	errStr := ""
	if taskErr != nil {
		errStr = taskErr.Error()
	}
	run := history.Run{
		RunID:    runID,
		Name:     job.Name,
		Slug:     job.Slug,
		Attempt:  attempt,
		Started:  start,
		Duration: dur,
		Error:    errStr,
		Final:    final,
		Success:  success,
	}
	if err := e.rec.Append(ctx, run); err != nil {
		e.log.Warn("history append failed", logx.String("job", job.Name), logx.Err(err))
	}
}
