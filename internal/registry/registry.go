// Package registry defines the static job list jobd schedules at startup.
//
// A Registry is read-only configuration: it is built once in the
// composition root and handed to the scheduler. Nothing mutates a Job
// after construction and nothing registers jobs at runtime.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Task is one unit of scheduled work. Tasks must be self-contained:
// no shared mutable state between jobs.
type Task func(ctx context.Context) error

// Job describes one recurring task: identity, cron schedule, and retry budget.
//
// Retries is the total number of attempts allowed, not the number of
// re-tries after the first failure. A retry chain stops once
// attempt >= Retries, so Retries of 0 and 1 both mean "fail after the
// first attempt". See executor.Executor for the full contract.
type Job struct {
	Name     string
	Slug     string
	Schedule string // standard 5-field cron expression
	Retries  int
	Task     Task
}

// Registry is the ordered static job list.
type Registry []Job

var (
	ErrEmptyName     = errors.New("job name required")
	ErrEmptySchedule = errors.New("job schedule required")
	ErrNilTask       = errors.New("job task required")
)

// Validate checks every descriptor. It does not parse cron expressions;
// the scheduler reports those errors per job at registration time.
func (r Registry) Validate() error {
	seen := make(map[string]string, len(r))
	for i, j := range r {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			return fmt.Errorf("job[%d]: %w", i, ErrEmptyName)
		}
		if strings.TrimSpace(j.Schedule) == "" {
			return fmt.Errorf("job %q: %w", name, ErrEmptySchedule)
		}
		if j.Task == nil {
			return fmt.Errorf("job %q: %w", name, ErrNilTask)
		}
		if j.Retries < 0 {
			return fmt.Errorf("job %q: retries must be >= 0", name)
		}
		slug := j.Slug
		if slug == "" {
			slug = Slugify(name)
		}
		if prev, dup := seen[slug]; dup {
			return fmt.Errorf("job %q: slug %q already used by %q", name, slug, prev)
		}
		seen[slug] = name
	}
	return nil
}

// WithDefaults returns a copy with empty slugs filled in from names.
func (r Registry) WithDefaults() Registry {
	out := make(Registry, len(r))
	copy(out, r)
	for i := range out {
		if out[i].Slug == "" {
			out[i].Slug = Slugify(out[i].Name)
		}
	}
	return out
}

// Slugify lowercases name and collapses runs of non-alphanumerics to
// single dashes: "Nightly Cleanup!" -> "nightly-cleanup".
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
