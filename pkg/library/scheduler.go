package library

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/depot/pkg/observability"
)

// Scheduler rescans the library on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	logger   *observability.Logger
}

// NewScheduler creates a scheduler running rescanner on schedule, a standard
// five-field cron expression or descriptor such as "@every 5m"
func NewScheduler(schedule string, rescanner Rescanner, logger *observability.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	logger = logger.WithField("component", "scheduler")

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		logger.Debug("Starting scheduled rescan")
		if _, err := rescanner.Rescan(context.Background()); err != nil {
			logger.WithError(err).Error("Scheduled rescan failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule rescans with %q: %w", schedule, err)
	}

	return &Scheduler{cron: c, schedule: schedule, logger: logger}, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infof("Rescan schedule: %s", s.schedule)
}

// Stop stops the scheduler and waits for a running rescan to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
