package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionSweeper evicts idle review sessions on a cron schedule
type SessionSweeper struct {
	store   *ReviewStore
	maxIdle time.Duration
	cron    *cron.Cron
}

// NewSessionSweeper schedules the sweep. spec accepts descriptors like
// "@every 1m" and five-field expressions.
func NewSessionSweeper(store *ReviewStore, spec string, maxIdle time.Duration) (*SessionSweeper, error) {
	s := &SessionSweeper{
		store:   store,
		maxIdle: maxIdle,
		cron:    cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *SessionSweeper) Start() {
	slog.Info("session sweeper started", "max_idle", s.maxIdle)
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep
func (s *SessionSweeper) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("session sweeper stopped")
}

// Sweep runs one eviction pass
func (s *SessionSweeper) Sweep() {
	if removed := s.store.SweepIdle(s.maxIdle); removed > 0 {
		slog.Info("idle review sessions evicted", "count", removed, "remaining", s.store.Count())
	}
}
