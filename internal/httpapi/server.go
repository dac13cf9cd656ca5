// Package httpapi serves jobd's read-only HTTP surface: health, the
// schedule snapshot, recent run history, and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"jobd/internal/history"
	"jobd/internal/metrics"
	"jobd/internal/scheduler"
	logx "jobd/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string

	// Token-bucket request limiting; 0 disables it.
	RatePerSec int
	Burst      int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ScheduleSource is the slice of the scheduler the API reads.
type ScheduleSource interface {
	Snapshot() []scheduler.ScheduleInfo
}

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	sched ScheduleSource
	rec   history.Recorder // may be nil
	met   *metrics.Set     // may be nil

	ln  net.Listener
	srv *http.Server
}

func New(cfg Config, sched ScheduleSource, rec history.Recorder, met *metrics.Set, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log, sched: sched, rec: rec, met: met}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Router builds the gin engine. Exposed so tests can drive it with
// httptest without binding a port.
func (s *Service) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.accessLog())
	r.Use(s.requestMetrics())
	if s.cfg.RatePerSec > 0 {
		r.Use(s.rateLimit())
	}

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.met.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/jobs", s.handleJobs)
	v1.GET("/runs", s.handleRuns)
	return r
}

// Reconfigure applies cfg, restarting the listener when the serving
// config changed. Safe to call during hot-reload.
func (s *Service) Reconfigure(ctx context.Context, cfg Config) {
	s.mu.Lock()
	prev := s.cfg
	running := s.srv != nil
	s.cfg = cfg
	s.mu.Unlock()

	if !cfg.Enabled {
		if running {
			s.Stop(ctx)
		}
		return
	}
	if !running {
		_ = s.Start(ctx)
		return
	}
	if prev != cfg {
		s.Stop(ctx)
		_ = s.Start(ctx)
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.ln = ln
	s.srv = srv

	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server exited", logx.Err(err))
		}
	}()

	s.log.Info("api started", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	ln := s.ln
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
	if ln != nil {
		_ = ln.Close()
	}
	s.log.Info("api stopped")
}
