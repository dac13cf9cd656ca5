package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"jobd/internal/config"
	"jobd/internal/history"
	logx "jobd/pkg/logx"
)

type memRecorder struct {
	pruned int64
}

func (m *memRecorder) Append(context.Context, history.Run) error { return nil }
func (m *memRecorder) Recent(context.Context, int) ([]history.Run, error) {
	return nil, nil
}
func (m *memRecorder) PruneBefore(context.Context, time.Time) (int64, error) {
	m.pruned++
	return 5, nil
}
func (m *memRecorder) Close() error { return nil }

func boolPtr(v bool) *bool { return &v }

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	// No recorder: heartbeat only, prune has nothing to prune.
	reg, err := Build(config.JobsConfig{}, config.HistoryConfig{}, nil, logx.Nop())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(reg) != 1 || reg[0].Slug != "heartbeat" {
		t.Fatalf("unexpected registry: %+v", reg)
	}
	if reg[0].Schedule != defaultHeartbeatSchedule {
		t.Fatalf("schedule = %q, want default", reg[0].Schedule)
	}
}

func TestBuildWithHistory(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	reg, err := Build(config.JobsConfig{}, config.HistoryConfig{Retention: "48h"}, rec, logx.Nop())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(reg) != 2 {
		t.Fatalf("registry len = %d, want 2", len(reg))
	}
	if reg[1].Slug != "history-prune" {
		t.Fatalf("unexpected second job: %+v", reg[1])
	}

	// The prune task actually prunes.
	if err := reg[1].Task(context.Background()); err != nil {
		t.Fatalf("prune task error: %v", err)
	}
	if rec.pruned != 1 {
		t.Fatalf("PruneBefore calls = %d, want 1", rec.pruned)
	}
}

func TestBuildDisabledBuiltins(t *testing.T) {
	t.Parallel()

	cfg := config.JobsConfig{
		Heartbeat:    config.BuiltinJob{Enabled: boolPtr(false)},
		HistoryPrune: config.BuiltinJob{Enabled: boolPtr(false)},
	}
	reg, err := Build(cfg, config.HistoryConfig{}, &memRecorder{}, logx.Nop())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(reg) != 0 {
		t.Fatalf("registry len = %d, want 0", len(reg))
	}
}

func TestBuildCommandJobs(t *testing.T) {
	t.Parallel()

	cfg := config.JobsConfig{
		Heartbeat: config.BuiltinJob{Enabled: boolPtr(false)},
		Commands: []config.CommandJob{
			{Name: "Tmp Sweep", Schedule: "0 4 * * *", Command: "true", Retries: 2},
		},
	}
	reg, err := Build(cfg, config.HistoryConfig{}, nil, logx.Nop())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(reg) != 1 {
		t.Fatalf("registry len = %d, want 1", len(reg))
	}
	j := reg[0]
	if j.Slug != "tmp-sweep" || j.Retries != 2 || j.Schedule != "0 4 * * *" {
		t.Fatalf("unexpected job: %+v", j)
	}
	if err := j.Task(context.Background()); err != nil {
		t.Fatalf("command task error: %v", err)
	}
}

func TestBuildCommandValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cmd  config.CommandJob
		want string
	}{
		{"missing name", config.CommandJob{Schedule: "* * * * *", Command: "true"}, "name required"},
		{"missing command", config.CommandJob{Name: "X", Schedule: "* * * * *"}, "command required"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Build(config.JobsConfig{Commands: []config.CommandJob{tt.cmd}}, config.HistoryConfig{}, nil, logx.Nop())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBuildRejectsDuplicateSlugs(t *testing.T) {
	t.Parallel()
	cfg := config.JobsConfig{
		Heartbeat: config.BuiltinJob{Enabled: boolPtr(false)},
		Commands: []config.CommandJob{
			{Name: "Sweep", Schedule: "* * * * *", Command: "true"},
			{Name: "sweep", Schedule: "0 0 * * *", Command: "true"},
		},
	}
	if _, err := Build(cfg, config.HistoryConfig{}, nil, logx.Nop()); err == nil {
		t.Fatal("expected duplicate slug error")
	}
}

func TestCommandTaskFailure(t *testing.T) {
	t.Parallel()

	task := commandTask("echo oops >&2; exit 3")
	err := task(context.Background())
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("error %q should carry command output", err)
	}
}

func TestHeartbeatTask(t *testing.T) {
	t.Parallel()
	if err := heartbeatTask(logx.Nop())(context.Background()); err != nil {
		t.Fatalf("heartbeat error: %v", err)
	}
}
