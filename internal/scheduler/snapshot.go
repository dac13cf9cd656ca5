package scheduler

import "time"

// ScheduleInfo describes one bound job for the HTTP API.
type ScheduleInfo struct {
	Name    string    `json:"name"`
	Slug    string    `json:"slug"`
	Spec    string    `json:"spec"`
	Retries int       `json:"retries"`
	Next    time.Time `json:"next,omitzero"`
	Prev    time.Time `json:"prev,omitzero"`
}

// Snapshot returns the current bindings with next/prev fire times.
func (s *Service) Snapshot() []ScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScheduleInfo, 0, len(s.bound))
	for _, b := range s.bound {
		e := s.c.Entry(b.entryID)
		out = append(out, ScheduleInfo{
			Name:    b.job.Name,
			Slug:    b.job.Slug,
			Spec:    b.job.Schedule,
			Retries: b.job.Retries,
			Next:    e.Next,
			Prev:    e.Prev,
		})
	}
	return out
}
