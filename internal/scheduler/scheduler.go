// Package scheduler refreshes the seal snapshot on a fixed interval
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/service"
)

// Refresher is the part of the seal service the scheduler drives
type Refresher interface {
	Refresh(ctx context.Context) (*service.RefreshResult, error)
}

type Scheduler struct {
	s        gocron.Scheduler
	svc      Refresher
	interval time.Duration
	timeout  time.Duration
}

// NewScheduler creates a scheduler that refreshes every interval. Each run
// is bounded by timeout.
func NewScheduler(svc Refresher, interval, timeout time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		s:        s,
		svc:      svc,
		interval: interval,
		timeout:  timeout,
	}, nil
}

// Start registers the refresh job and starts the scheduler. The first run
// happens one interval from now; the service loads its first snapshot at
// startup.
func (s *Scheduler) Start() error {
	_, err := s.s.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.refresh),
		gocron.WithName("seal-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh job: %w", err)
	}

	s.s.Start()
	logger.Info("Refresh scheduler started", "interval", s.interval)
	return nil
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.svc.Refresh(ctx); err != nil {
		// The service already logged and published the failure
		logger.Debug("Scheduled refresh failed", "error", err)
	}
}
