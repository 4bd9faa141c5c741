package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"trade-memory/internal/domain"
)

// Scheduler runs the reflection cycle on a fixed interval.
//
// A cycle reflects on the previous UTC day, closes the week on Mondays and
// the month on the first, then rediscovers patterns and proposes
// adjustments. Cycles run one at a time on the Run goroutine; ticks missed
// during a long cycle are dropped by the ticker.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	status  SchedulerStatus
	running bool
}

// SchedulerStatus is a snapshot of scheduler progress.
type SchedulerStatus struct {
	Started   time.Time `json:"started"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Running   bool      `json:"running"`
}

// NewScheduler creates a scheduler for svc. logger may be nil.
func NewScheduler(svc *Service, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{svc: svc, interval: interval, logger: logger}
}

// Run executes one cycle immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.status.Started = s.svc.now()
	s.mu.Unlock()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.running
	return st
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	err := s.RunCycle(ctx)
	if err != nil {
		s.logger.Error("scheduled cycle failed", zap.Error(err))
	}

	s.mu.Lock()
	s.running = false
	s.status.Runs++
	s.status.LastRun = s.svc.now()
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()
}

// RunCycle runs every step due at the service clock's current time. Steps
// continue after a failure; the returned error joins all failures.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	now := s.svc.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	var errs []error
	if _, err := s.svc.RunDaily(ctx, yesterday); err != nil {
		errs = append(errs, err)
	}
	if today.Weekday() == time.Monday {
		if _, err := s.svc.RunWeekly(ctx, yesterday); err != nil {
			errs = append(errs, err)
		}
	}
	if today.Day() == 1 {
		if _, err := s.svc.RunMonthly(ctx, yesterday.Year(), yesterday.Month()); err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := s.svc.DiscoverPatterns(ctx, domain.DefaultDimensions); err != nil {
		errs = append(errs, err)
	} else if _, err := s.svc.GenerateAdjustments(ctx); err != nil && !errors.Is(err, ErrNoPatterns) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
