package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "jobd/pkg/logx"
)

func openTestRecorder(t *testing.T) Recorder {
	t.Helper()
	rec, err := Open(Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "jobd.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		rec, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if rec != nil {
			t.Fatalf("Open(%q) = %T, want nil recorder", driver, rec)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestAppendRecent(t *testing.T) {
	t.Parallel()
	rec := openTestRecorder(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 3; i++ {
		err := rec.Append(ctx, Run{
			RunID:    "chain-1",
			Name:     "A",
			Slug:     "a",
			Attempt:  i,
			Started:  base.Add(time.Duration(i) * time.Minute),
			Duration: 15 * time.Millisecond,
			Error:    "boom",
			Final:    i == 3,
		})
		if err != nil {
			t.Fatalf("Append attempt %d: %v", i, err)
		}
	}

	runs, err := rec.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Recent returned %d rows, want 2", len(runs))
	}
	// Newest first.
	if runs[0].Attempt != 3 || runs[1].Attempt != 2 {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if !runs[0].Final || runs[0].Success {
		t.Fatalf("unexpected flags: %+v", runs[0])
	}
	if runs[0].Error != "boom" {
		t.Fatalf("error = %q, want boom", runs[0].Error)
	}
}

func TestPruneBefore(t *testing.T) {
	t.Parallel()
	rec := openTestRecorder(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	for _, started := range []time.Time{old, old.Add(time.Minute), fresh} {
		if err := rec.Append(ctx, Run{RunID: "x", Name: "A", Slug: "a", Attempt: 1, Started: started, Success: true, Final: true}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	n, err := rec.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore error: %v", err)
	}
	if n != 2 {
		t.Fatalf("pruned %d rows, want 2", n)
	}

	runs, err := rec.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("remaining rows = %d, want 1", len(runs))
	}
}
