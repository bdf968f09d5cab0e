package history

import (
	"fmt"

	cronlib "github.com/robfig/cron/v3"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// RetentionConfig bounds how much history is kept. Zero values disable
// the corresponding bound.
type RetentionConfig struct {
	MaxAgeDays int    `json:"maxAgeDays"`
	MaxRows    int    `json:"maxRows"`
	Schedule   string `json:"schedule"`
}

const defaultRetentionSchedule = "@hourly"

// Sweeper prunes old history rows on a cron schedule.
type Sweeper struct {
	store *Store
	cfg   RetentionConfig
	cron  *cronlib.Cron
}

// NewSweeper prepares a retention sweeper. Start must be called to
// begin sweeping.
func NewSweeper(store *Store, cfg RetentionConfig) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = defaultRetentionSchedule
	}
	return &Sweeper{store: store, cfg: cfg}
}

// Start schedules the sweep and runs one immediately to clear backlog
// from before the process started.
func (s *Sweeper) Start() error {
	if s.cfg.MaxAgeDays <= 0 && s.cfg.MaxRows <= 0 {
		L_debug("history: retention disabled")
		return nil
	}

	s.cron = cronlib.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()

	L_info("history: retention sweeper started",
		"schedule", s.cfg.Schedule, "maxAgeDays", s.cfg.MaxAgeDays, "maxRows", s.cfg.MaxRows)
	go s.sweep()
	return nil
}

// Stop halts scheduled sweeps. Safe to call when never started.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Sweeper) sweep() {
	if _, err := s.store.Prune(s.cfg.MaxAgeDays, s.cfg.MaxRows); err != nil {
		L_error("history: retention sweep failed", "error", err)
	}
}
