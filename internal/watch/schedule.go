package watch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/yorickpeterse/wobsite/internal/metrics"
)

// Schedule runs fixed-interval rebuilds, typically alongside a Watcher.
type Schedule struct {
	scheduler gocron.Scheduler
	interval  time.Duration
}

// NewSchedule creates a scheduler invoking rebuild every interval.
func NewSchedule(interval time.Duration, rebuild RebuildFunc) (*Schedule, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { rebuild(metrics.TriggerSchedule) }),
		gocron.WithName("interval-rebuild"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("schedule interval rebuilds: %w", err)
	}

	return &Schedule{scheduler: scheduler, interval: interval}, nil
}

// Start begins the interval schedule.
func (s *Schedule) Start() {
	slog.Info("scheduling interval rebuilds", slog.Duration("interval", s.interval))
	s.scheduler.Start()
}

// Stop shuts the schedule down, waiting for a rebuild in flight to finish.
func (s *Schedule) Stop() error {
	return s.scheduler.Shutdown()
}
