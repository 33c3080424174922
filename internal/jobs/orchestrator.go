package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-backtest/internal/backtest"
	"github.com/yourusername/fx-backtest/internal/datasource"
	"github.com/yourusername/fx-backtest/internal/logger"
	"github.com/yourusername/fx-backtest/internal/metrics"
	"github.com/yourusername/fx-backtest/internal/models"
	"github.com/yourusername/fx-backtest/internal/repository"
)

const (
	// MaxPageSize bounds GetTrades page sizes
	MaxPageSize = 1000

	minCoverage          = 0.8
	secondsPerYear       = 60
	minEstimatedSeconds  = 60
	businessDaysFraction = 5.0 / 7.0
)

var earliestStartDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// Options tunes an Orchestrator
type Options struct {
	MaxConcurrent int
	Timeout       time.Duration
	// Clock returns the current time; defaults to time.Now
	Clock func() time.Time
}

// Orchestrator owns the backtest job lifecycle
type Orchestrator struct {
	jobs     repository.JobRepository
	provider datasource.PriceProvider
	engine   *backtest.Engine
	defaults backtest.Params
	worker   *Worker
	validate *validator.Validate
	clock    func() time.Time
	log      *logger.JobLogger

	mu    sync.Mutex
	tasks map[string]*Task
}

// NewOrchestrator creates a job orchestrator
func NewOrchestrator(jobs repository.JobRepository, provider datasource.PriceProvider, defaults backtest.Params, opts Options, log *logrus.Logger) (*Orchestrator, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if log == nil {
		log = logrus.New()
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default parameters: %w", err)
	}
	engine, err := backtest.NewEngine(provider, log)
	if err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Orchestrator{
		jobs:     jobs,
		provider: provider,
		engine:   engine,
		defaults: defaults,
		worker:   NewWorker(opts.MaxConcurrent, opts.Timeout, log),
		validate: validator.New(),
		clock:    clock,
		log:      logger.NewJobLogger(log),
		tasks:    make(map[string]*Task),
	}, nil
}

// Submit validates req, persists a pending job and schedules it in the background.
// Rejections return a *ValidationError and leave no record behind.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*JobHandle, error) {
	params, start, end, err := o.validateRequest(ctx, req)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			o.log.LogJobRejected(vErr.Message)
			metrics.RecordJobRejected(vErr.Reason)
		}
		return nil, err
	}

	if o.worker.Closed() {
		return nil, ErrWorkerClosed
	}

	now := o.clock().UTC()
	job := &models.Job{
		ID:             uuid.NewString(),
		Status:         models.JobStatusPending,
		Pair:           params.Pair,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: req.InitialCapital,
		ModelType:      req.ModelType,
		ModelConfig:    req.ModelConfig,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	o.mu.Lock()
	task, err := o.worker.Go(job.ID, func(taskCtx context.Context, task *Task) error {
		return o.execute(taskCtx, task, job, params)
	})
	if err == nil {
		o.tasks[job.ID] = task
	}
	o.mu.Unlock()
	if err != nil {
		o.abandon(context.WithoutCancel(ctx), job.ID, err)
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}

	metrics.RecordJobSubmitted(job.ModelType)
	o.log.LogJobSubmitted(job.ID, job.Pair, start, end, job.ModelType)

	return &JobHandle{
		JobID:                      job.ID,
		Status:                     job.Status,
		StartDate:                  start,
		EndDate:                    end,
		CreatedAt:                  now,
		EstimatedCompletionSeconds: EstimateCompletionSeconds(start, end),
	}, nil
}

func (o *Orchestrator) validateRequest(ctx context.Context, req SubmitRequest) (backtest.Params, time.Time, time.Time, error) {
	if err := o.validate.Struct(req); err != nil {
		return backtest.Params{}, time.Time{}, time.Time{}, newValidationError(ReasonInvalidRequest, "%v", err)
	}
	if !req.InitialCapital.IsPositive() {
		return backtest.Params{}, time.Time{}, time.Time{}, newValidationError(ReasonInvalidRequest, "initial_capital must be positive")
	}

	start, end := truncateDay(req.StartDate), truncateDay(req.EndDate)
	today := truncateDay(o.clock())
	switch {
	case !end.After(start):
		return backtest.Params{}, start, end, newValidationError(ReasonDateRange, "end_date must be after start_date")
	case start.Before(earliestStartDate):
		return backtest.Params{}, start, end, newValidationError(ReasonDateRange, "start_date must be on or after %s", earliestStartDate.Format(time.DateOnly))
	case end.After(today):
		return backtest.Params{}, start, end, newValidationError(ReasonDateRange, "end_date cannot be in the future")
	}

	params, err := o.defaults.WithOverrides(req.ModelType, req.ModelConfig)
	if err != nil {
		return backtest.Params{}, start, end, newValidationError(ReasonInvalidRequest, "%v", err)
	}

	available, err := o.provider.CountCandles(ctx, params.Pair, start, end)
	if err != nil {
		return backtest.Params{}, start, end, fmt.Errorf("failed to check data availability: %w", err)
	}
	days := end.Sub(start).Hours() / 24
	expected := days * businessDaysFraction
	if float64(available) < expected*minCoverage {
		return backtest.Params{}, start, end, newValidationError(ReasonDataAvailability,
			"insufficient data: %d candles available, need at least %.0f", available, expected*minCoverage)
	}

	return params, start, end, nil
}

// execute is the background pipeline of one job
func (o *Orchestrator) execute(ctx context.Context, task *Task, job *models.Job, params backtest.Params) error {
	defer o.forget(job.ID)

	store := context.WithoutCancel(ctx)
	started := o.clock()

	if err := o.jobs.MarkRunning(store, job.ID, started.UTC()); err != nil {
		o.log.ForJob(job.ID).WithError(err).Error("Failed to mark job running")
		return err
	}
	task.Report(models.JobStatusRunning)
	metrics.RecordJobStarted()
	o.log.LogJobStarted(job.ID)

	result, err := o.runEngine(ctx, job, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = interruptedError(ctxErr, err)
		}
		o.fail(store, job.ID, started, err)
		task.Report(models.JobStatusFailed)
		return err
	}

	finished := o.clock()
	if err := o.jobs.Complete(store, job.ID, result.Metrics, models.NewTradeLog(result.Trades), finished.UTC()); err != nil {
		o.fail(store, job.ID, started, fmt.Errorf("failed to store results: %w", err))
		task.Report(models.JobStatusFailed)
		return err
	}
	task.Report(models.JobStatusCompleted)

	duration := finished.Sub(started)
	metrics.RecordJobFinished(string(models.JobStatusCompleted), duration.Seconds(), len(result.Trades))
	o.log.LogJobCompleted(job.ID, result.Metrics.TotalReturn, result.Metrics.SharpeRatio, result.Metrics.TotalTrades, duration)
	return nil
}

// runEngine converts engine panics into errors so the job can be failed
func (o *Orchestrator) runEngine(ctx context.Context, job *models.Job, params backtest.Params) (result *backtest.RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("backtest panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.engine.Run(ctx, backtest.RunRequest{
		JobID:          job.ID,
		StartDate:      job.StartDate,
		EndDate:        job.EndDate,
		InitialCapital: job.InitialCapital,
		Params:         params,
	})
}

func (o *Orchestrator) fail(ctx context.Context, id string, started time.Time, cause error) {
	now := o.clock()
	if err := o.jobs.Fail(ctx, id, cause.Error(), now.UTC()); err != nil {
		o.log.ForJob(id).WithError(err).Error("Failed to record job failure")
	}
	duration := now.Sub(started)
	metrics.RecordJobFinished(string(models.JobStatusFailed), duration.Seconds(), 0)
	o.log.LogJobFailed(id, cause, duration)
}

// abandon terminates a job that was recorded but could not be scheduled.
// The record still passes through running so its history stays legal.
func (o *Orchestrator) abandon(ctx context.Context, id string, cause error) {
	now := o.clock().UTC()
	if err := o.jobs.MarkRunning(ctx, id, now); err != nil {
		o.log.ForJob(id).WithError(err).Error("Failed to abandon job")
		return
	}
	if err := o.jobs.Fail(ctx, id, "failed to schedule job: "+cause.Error(), now); err != nil {
		o.log.ForJob(id).WithError(err).Error("Failed to abandon job")
	}
}

func interruptedError(ctxErr, cause error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("job timed out: %w", cause)
	}
	return fmt.Errorf("job cancelled: %w", cause)
}

func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	delete(o.tasks, id)
	o.mu.Unlock()
}

// Task returns the background task of an unfinished job
func (o *Orchestrator) Task(id string) (*Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	task, ok := o.tasks[id]
	return task, ok
}

// Cancel aborts an unfinished job; the job ends in failed
func (o *Orchestrator) Cancel(id string) error {
	task, ok := o.Task(id)
	if !ok {
		return fmt.Errorf("no running job %s: %w", id, models.ErrNotFound)
	}
	task.Cancel()
	return nil
}

// Shutdown stops accepting jobs and waits for in-flight ones
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.worker.Shutdown(ctx)
}

// GetResults returns a consistent snapshot of the job
func (o *Orchestrator) GetResults(ctx context.Context, id string) (*models.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return o.jobs.GetByID(ctx, id)
}

// GetMetrics returns the metrics of a completed job, ErrNotFound otherwise
func (o *Orchestrator) GetMetrics(ctx context.Context, id string) (*models.Metrics, error) {
	job, err := o.GetResults(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted || job.Metrics == nil {
		return nil, fmt.Errorf("metrics for job %s (status %s): %w", id, job.Status, models.ErrNotFound)
	}
	return job.Metrics, nil
}

// GetTrades returns one page of the job's trade log
func (o *Orchestrator) GetTrades(ctx context.Context, id string, page, pageSize int) (*TradePage, error) {
	if page < 1 {
		return nil, newValidationError(ReasonInvalidRequest, "page must be at least 1, got %d", page)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, newValidationError(ReasonInvalidRequest, "page_size must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}

	log, err := o.jobs.GetTradeLog(ctx, id)
	if err != nil {
		return nil, err
	}
	return newTradePage(id, log.Trades, page, pageSize), nil
}

// EstimateCompletionSeconds is an advisory estimate of 60s per simulated year, at least 60s
func EstimateCompletionSeconds(start, end time.Time) int {
	years := end.Sub(start).Hours() / 24 / 365
	estimate := int(years * secondsPerYear)
	if estimate < minEstimatedSeconds {
		return minEstimatedSeconds
	}
	return estimate
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
