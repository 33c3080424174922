package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-backtest/internal/config"
	"github.com/yourusername/fx-backtest/internal/jobs"
	"github.com/yourusername/fx-backtest/internal/metrics"
)

// Submitter accepts backtest submissions
type Submitter interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*jobs.JobHandle, error)
}

// Scheduler submits recurring rolling-window backtests
type Scheduler struct {
	cron      *cron.Cron
	submitter Submitter
	logger    *logrus.Entry
	clock     func() time.Time
	mu        sync.RWMutex
	isRunning bool
	entries   map[string]cron.EntryID
	runs      map[string]func()
}

// NewScheduler creates a new scheduler
func NewScheduler(submitter Submitter, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		submitter: submitter,
		logger:    logger.WithField("component", "scheduler"),
		clock:     time.Now,
		entries:   make(map[string]cron.EntryID),
		runs:      make(map[string]func()),
	}
}

// ScheduleBacktest registers a recurring backtest over the trailing LookbackDays,
// ending yesterday so that the range never reaches into today.
func (s *Scheduler) ScheduleBacktest(sc config.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.entries[sc.Name]; exists {
		return fmt.Errorf("schedule %q already registered", sc.Name)
	}
	if sc.LookbackDays <= 0 {
		return fmt.Errorf("schedule %q: lookback_days must be positive", sc.Name)
	}

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		end := s.clock().UTC().AddDate(0, 0, -1)
		start := end.AddDate(0, 0, -sc.LookbackDays)

		handle, err := s.submitter.Submit(ctx, jobs.SubmitRequest{
			StartDate:      start,
			EndDate:        end,
			InitialCapital: decimal.NewFromFloat(sc.InitialCapital),
			ModelType:      sc.ModelType,
			ModelConfig:    sc.ModelConfig,
		})
		metrics.RecordScheduledRun(sc.Name, err)

		entry := s.logger.WithFields(logrus.Fields{
			"schedule":   sc.Name,
			"start_date": start.Format(time.DateOnly),
			"end_date":   end.Format(time.DateOnly),
		})
		if err != nil {
			entry.WithError(err).Error("Scheduled backtest submission failed")
			return
		}
		entry.WithField("job_id", handle.JobID).Info("Scheduled backtest submitted")
	}

	entryID, err := s.cron.AddFunc(sc.Cron, run)
	if err != nil {
		return fmt.Errorf("failed to add schedule %q: %w", sc.Name, err)
	}

	s.entries[sc.Name] = entryID
	s.runs[sc.Name] = run
	s.logger.WithFields(logrus.Fields{"schedule": sc.Name, "cron": sc.Cron}).Info("Scheduled recurring backtest")
	return nil
}

// RunNow triggers a registered schedule immediately
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	run, ok := s.runs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown schedule %q", name)
	}
	run()
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.entries) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("schedules", len(s.entries)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running submissions
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled submission
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nextRun := time.Time{}
	if !s.isRunning {
		return nextRun
	}
	for _, id := range s.entries {
		entry := s.cron.Entry(id)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}

// Schedules returns the registered schedule names
func (s *Scheduler) Schedules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}
