// Package app is jobd's composition root: it loads config, applies the
// deployment env gates, wires services together, and owns their
// lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"jobd/internal/config"
	"jobd/internal/executor"
	"jobd/internal/history"
	"jobd/internal/httpapi"
	"jobd/internal/jobs"
	"jobd/internal/metrics"
	"jobd/internal/observability/pprof"
	"jobd/internal/scheduler"
	logx "jobd/pkg/logx"
)

type App struct {
	cfgPath string
	cfg     *config.Config
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service

	rec   history.Recorder
	met   *metrics.Set
	exec  *executor.Executor
	sched *scheduler.Service
	api   *httpapi.Service
	pprof *pprof.Service

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
	reloadCh    chan *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// Deployment gates: JOBD_SCHEDULER / JOBD_API, read exactly once, here.
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	met := metrics.New("jobd")

	histCfg, err := mapHistoryConfig(cfg.History)
	if err != nil {
		return nil, err
	}
	rec, err := history.Open(histCfg, log.With(logx.String("comp", "history")))
	if err != nil {
		return nil, err
	}
	if rec != nil {
		log.Info("history enabled", logx.String("driver", cfg.History.Driver))
	}

	execCfg, err := mapExecutorConfig(cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	exec := executor.New(execCfg, rec, met, log.With(logx.String("comp", "executor")))

	sched := scheduler.New(scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: cfg.Scheduler.Timezone,
	}, exec, log.With(logx.String("comp", "scheduler")))

	apiCfg, err := mapAPIConfig(cfg.API)
	if err != nil {
		return nil, err
	}
	api := httpapi.New(apiCfg, sched, rec, met, log.With(logx.String("comp", "api")))

	pprofSvc := pprof.New(mapPprofConfig(cfg.Pprof), log.With(logx.String("comp", "pprof")))

	return &App{
		cfgPath: cfgPath,
		cfg:     cfg,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		rec:     rec,
		met:     met,
		exec:    exec,
		sched:   sched,
		api:     api,
		pprof:   pprofSvc,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	if a.sched.Enabled() {
		reg, err := jobs.Build(a.cfg.Jobs, a.cfg.History, a.rec, a.log.With(logx.String("comp", "jobs")))
		if err != nil {
			return err
		}
		a.met.SetRegistered(len(reg))
		// Exactly once per process lifetime; RunAll double-registers if repeated.
		if err := a.sched.RunAll(ctx, reg); err != nil {
			return err
		}
		a.sched.Start(ctx)
	} else {
		a.log.Info("scheduler disabled for this instance")
	}

	if a.api.Enabled() {
		if err := a.api.Start(ctx); err != nil {
			return err
		}
	} else {
		a.log.Info("api disabled for this instance")
	}

	if a.pprof.Enabled() {
		_ = a.pprof.Start(ctx)
	}

	a.startWatch(ctx)

	// No-op outside systemd.
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify: ready")
	}
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.watchCancel != nil {
		a.watchCancel()
		a.watchCancel = nil
	}
	a.watchWG.Wait()

	a.api.Stop(ctx)
	a.pprof.Stop(ctx)
	a.sched.Stop(ctx)

	if a.rec != nil {
		_ = a.rec.Close()
	}
	a.log.Info("jobd stopped")
	_ = a.logs.Close()
	return nil
}

// startWatch hot-reloads the sections that can change without a restart
// (logging, api, pprof). The job registry and scheduler stay as built:
// jobd has no runtime job registration.
func (a *App) startWatch(ctx context.Context) {
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.reloadCh = a.cfgm.Subscribe(1)

	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		if err := a.cfgm.Watch(wctx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		defer a.watchWG.Done()
		for {
			select {
			case <-wctx.Done():
				return
			case cfg, ok := <-a.reloadCh:
				if !ok || cfg == nil {
					return
				}
				a.applyReload(wctx, cfg)
			}
		}
	}()
}

func (a *App) applyReload(ctx context.Context, cfg *config.Config) {
	// The env gates also win over reloaded files: a gated-off service
	// cannot be resurrected by editing config.
	if err := config.ApplyEnv(cfg); err != nil {
		a.log.Warn("config reload rejected", logx.Err(err))
		return
	}

	a.logs.Apply(mapLoggingConfig(cfg.Logging))
	if apiCfg, err := mapAPIConfig(cfg.API); err != nil {
		a.log.Warn("api config invalid; keeping previous", logx.Err(err))
	} else {
		a.api.Reconfigure(ctx, apiCfg)
	}
	a.pprof.Reconfigure(ctx, mapPprofConfig(cfg.Pprof))
	a.log.Info("config reloaded", logx.String("path", a.cfgPath))
}
