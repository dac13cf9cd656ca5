package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobd/internal/history"
	"jobd/internal/metrics"
	"jobd/internal/scheduler"
	logx "jobd/pkg/logx"
)

type stubSchedule struct {
	infos []scheduler.ScheduleInfo
}

func (s *stubSchedule) Snapshot() []scheduler.ScheduleInfo { return s.infos }

type stubRecorder struct {
	runs []history.Run
	err  error

	lastLimit int
}

func (r *stubRecorder) Append(context.Context, history.Run) error { return nil }
func (r *stubRecorder) Recent(_ context.Context, limit int) ([]history.Run, error) {
	r.lastLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	if limit > len(r.runs) {
		limit = len(r.runs)
	}
	return r.runs[:limit], nil
}
func (r *stubRecorder) PruneBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (r *stubRecorder) Close() error { return nil }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, nil, nil, logx.Nop())
	rr := get(t, s.Router(), "/healthz")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rr.Code, rr.Body.String())
	}
}

func TestJobsSnapshot(t *testing.T) {
	t.Parallel()

	src := &stubSchedule{infos: []scheduler.ScheduleInfo{
		{Name: "Heartbeat", Slug: "heartbeat", Spec: "*/5 * * * *"},
		{Name: "Backup", Slug: "backup", Spec: "0 2 * * *", Retries: 3},
	}}
	s := New(Config{}, src, nil, nil, logx.Nop())
	rr := get(t, s.Router(), "/api/v1/jobs")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var body struct {
		Jobs []scheduler.ScheduleInfo `json:"jobs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Jobs) != 2 || body.Jobs[1].Slug != "backup" || body.Jobs[1].Retries != 3 {
		t.Fatalf("unexpected jobs payload: %+v", body.Jobs)
	}
}

func TestJobsWithoutScheduler(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, nil, nil, logx.Nop())
	rr := get(t, s.Router(), "/api/v1/jobs")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Jobs []scheduler.ScheduleInfo `json:"jobs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Jobs) != 0 {
		t.Fatalf("expected empty jobs, got %+v", body.Jobs)
	}
}

func TestRuns(t *testing.T) {
	t.Parallel()

	rec := &stubRecorder{runs: []history.Run{
		{RunID: "r1", Slug: "backup", Attempt: 1, Success: true, Final: true},
		{RunID: "r2", Slug: "backup", Attempt: 1},
	}}
	s := New(Config{}, nil, rec, nil, logx.Nop())
	router := s.Router()

	rr := get(t, router, "/api/v1/runs")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rec.lastLimit != 50 {
		t.Fatalf("default limit = %d, want 50", rec.lastLimit)
	}

	rr = get(t, router, "/api/v1/runs?limit=1")
	var body struct {
		Runs []history.Run `json:"runs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != 1 || body.Runs[0].RunID != "r1" {
		t.Fatalf("unexpected runs payload: %+v", body.Runs)
	}

	// Oversized limits clamp instead of erroring.
	get(t, router, "/api/v1/runs?limit=99999")
	if rec.lastLimit != maxRunsLimit {
		t.Fatalf("clamped limit = %d, want %d", rec.lastLimit, maxRunsLimit)
	}
}

func TestRunsBadLimit(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, &stubRecorder{}, nil, logx.Nop())
	router := s.Router()
	for _, raw := range []string{"0", "-3", "abc"} {
		rr := get(t, router, "/api/v1/runs?limit="+raw)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit=%q status = %d, want 400", raw, rr.Code)
		}
	}
}

func TestRunsHistoryDisabled(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, nil, nil, logx.Nop())
	rr := get(t, s.Router(), "/api/v1/runs")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestRunsQueryError(t *testing.T) {
	t.Parallel()

	rec := &stubRecorder{err: errors.New("boom")}
	s := New(Config{}, nil, rec, nil, logx.Nop())
	rr := get(t, s.Router(), "/api/v1/runs")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	s := New(Config{RatePerSec: 1, Burst: 1}, nil, nil, nil, logx.Nop())
	router := s.Router()

	if rr := get(t, router, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", rr.Code)
	}
	if rr := get(t, router, "/healthz"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	met := metrics.New("jobd")
	met.SetRegistered(4)
	s := New(Config{}, nil, nil, met, logx.Nop())
	rr := get(t, s.Router(), "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("expected metrics exposition output")
	}
}

func TestReconfigure(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, nil, nil, logx.Nop())
	ctx := context.Background()

	s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})
	if s.srv == nil {
		t.Fatal("enable via Reconfigure should start the server")
	}
	addr := s.ln.Addr().String()
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()

	s.Reconfigure(ctx, Config{Enabled: false})
	if s.srv != nil {
		t.Fatal("disable via Reconfigure should stop the server")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, nil, nil, nil, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := s.ln.Addr().String()

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)

	if _, err := http.Get("http://" + addr + "/healthz"); err == nil {
		t.Fatal("expected connection error after Stop")
	}
}
