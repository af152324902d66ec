package triggers

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs Job once a day at Hour:Minute wall-clock time in Location.
type Scheduler struct {
	Name     string
	Hour     int
	Minute   int
	Location *time.Location
	Job      func(ctx context.Context) error
	Logger   *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// Next returns the first scheduled instant strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, loc)
	}
	return next
}

// Run blocks, firing Job at each scheduled instant, until ctx is cancelled.
// A failing run is logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	now, after := s.now, s.after
	if now == nil {
		now = time.Now
	}
	if after == nil {
		after = time.After
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler", "job", s.Name)

	for {
		next := s.Next(now())
		logger.Debug("next run scheduled", "at", next)

		select {
		case <-ctx.Done():
			return nil
		case <-after(next.Sub(now())):
		}

		if err := s.Job(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	}
}
