package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "jobd/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteRecorder struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Recorder, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &sqliteRecorder{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *sqliteRecorder) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, string(b))
	return err
}

func (r *sqliteRecorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *sqliteRecorder) Append(ctx context.Context, run Run) error {
	if r == nil || r.db == nil {
		return nil
	}
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, name, slug, attempt, started, duration_ms, err, final, success)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.Name, run.Slug, run.Attempt,
		run.Started.UnixMilli(), run.Duration.Milliseconds(),
		nullStr(run.Error), boolInt(run.Final), boolInt(run.Success),
	)
	return err
}

func (r *sqliteRecorder) Recent(ctx context.Context, limit int) ([]Run, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, name, slug, attempt, started, duration_ms, COALESCE(err, ''), final, success
		 FROM runs ORDER BY started DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run          Run
			startedMS    int64
			durationMS   int64
			final, succ  int
		)
		if err := rows.Scan(&run.RunID, &run.Name, &run.Slug, &run.Attempt,
			&startedMS, &durationMS, &run.Error, &final, &succ); err != nil {
			return nil, err
		}
		run.Started = time.UnixMilli(startedMS)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.Final = final != 0
		run.Success = succ != 0
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *sqliteRecorder) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE started < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
