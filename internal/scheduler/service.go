package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobd/internal/executor"
	"jobd/internal/registry"
	logx "jobd/pkg/logx"
)

// Config controls the cron trigger service.
type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means host local
}

type boundJob struct {
	job     registry.Job
	entryID cron.EntryID
}

// Service binds the static job registry to a cron timer wheel and hands
// every firing to the retry-wrapped executor.
type Service struct {
	mu sync.Mutex

	log  logx.Logger
	cfg  Config
	loc  *time.Location
	exec *executor.Executor

	parser cron.Parser
	c      *cron.Cron
	bound  []boundJob

	started bool
}

func New(cfg Config, exec *executor.Executor, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:  cfg,
		log:  log,
		exec: exec,
		// Standard 5-field grammar plus @hourly-style descriptors.
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	s.loc = s.loadLocation()
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	return s
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// RunAll binds every descriptor in reg to the cron timer: on each
// wall-clock match of a job's expression the executor runs that job
// with its retry budget. One log line per job.
//
// Deliberately NOT idempotent: calling RunAll twice double-registers
// every job, and each tick then fires each job twice. It is expected
// to be called exactly once per process lifetime.
func (s *Service) RunAll(ctx context.Context, reg registry.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, job := range reg {
		job := job
		id, err := s.c.AddFunc(job.Schedule, func() {
			s.exec.Run(ctx, job)
		})
		if err != nil {
			s.log.Error("job register failed",
				logx.String("job", job.Name),
				logx.String("spec", job.Schedule),
				logx.Err(err),
			)
			errs = append(errs, err)
			continue
		}
		s.bound = append(s.bound, boundJob{job: job, entryID: id})
		s.log.Info("job scheduled",
			logx.String("job", job.Name),
			logx.String("slug", job.Slug),
			logx.String("spec", job.Schedule),
			logx.Int("retries", job.Retries),
		)
	}
	return errors.Join(errs...)
}

// Registered reports how many schedule bindings exist. A second RunAll
// doubles this.
func (s *Service) Registered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bound)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.c.Start()
	s.log.Info("scheduler started",
		logx.Int("jobs", len(s.bound)),
		logx.String("tz", s.loc.String()),
		logx.Duration("retry_delay", s.exec.RetryDelay()),
	)
}

// Stop halts the timer wheel and waits for in-flight trigger callbacks.
// Detached retry timers are NOT cancelled or awaited (there is no
// mechanism to): a pending retry fires into the dying process or is
// lost when it exits.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

func (s *Service) loadLocation() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
