package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/fx-backtest/internal/models"
)

type memoryRecord struct {
	job      *models.Job
	tradeLog *models.TradeLog
}

// MemoryJobRepository is an in-process job store.
// Records are replaced wholesale on every write, never mutated in place.
type MemoryJobRepository struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
}

// NewMemoryJobRepository creates an empty in-memory job store
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{records: make(map[string]*memoryRecord)}
}

// Create inserts a new job record
func (r *MemoryJobRepository) Create(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[job.ID]; exists {
		return fmt.Errorf("job %s: %w", job.ID, models.ErrDuplicateKey)
	}
	r.records[job.ID] = &memoryRecord{job: job.Clone()}
	return nil
}

// GetByID returns a snapshot of the job
func (r *MemoryJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return rec.job.Clone(), nil
}

// MarkRunning moves a pending job to running
func (r *MemoryJobRepository) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return r.update(id, models.JobStatusRunning, func(job *models.Job, _ *memoryRecord) {
		job.UpdatedAt = at
	})
}

// Complete publishes metrics, trade log and the completed status in one step
func (r *MemoryJobRepository) Complete(ctx context.Context, id string, metrics *models.Metrics, log *models.TradeLog, at time.Time) error {
	return r.update(id, models.JobStatusCompleted, func(job *models.Job, next *memoryRecord) {
		job.Metrics = metrics.Clone()
		job.UpdatedAt = at
		completed := at
		job.CompletedAt = &completed
		next.tradeLog = cloneTradeLog(log)
	})
}

// Fail records the error message and moves the job to failed
func (r *MemoryJobRepository) Fail(ctx context.Context, id string, message string, at time.Time) error {
	return r.update(id, models.JobStatusFailed, func(job *models.Job, _ *memoryRecord) {
		msg := message
		job.ErrorMessage = &msg
		job.UpdatedAt = at
		completed := at
		job.CompletedAt = &completed
	})
}

// GetTradeLog returns the stored trade log, ErrNotFound when none exists yet
func (r *MemoryJobRepository) GetTradeLog(ctx context.Context, id string) (*models.TradeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.tradeLog == nil {
		return nil, fmt.Errorf("trade log for job %s: %w", id, models.ErrNotFound)
	}
	return cloneTradeLog(rec.tradeLog), nil
}

// Ping always succeeds for the in-memory store
func (r *MemoryJobRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryJobRepository) update(id string, next models.JobStatus, apply func(*models.Job, *memoryRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	if err := checkTransition(id, rec.job.Status, next); err != nil {
		return err
	}

	job := rec.job.Clone()
	replacement := &memoryRecord{job: job, tradeLog: rec.tradeLog}
	job.Status = next
	apply(job, replacement)
	r.records[id] = replacement
	return nil
}

func cloneTradeLog(log *models.TradeLog) *models.TradeLog {
	if log == nil {
		return nil
	}
	return &models.TradeLog{
		SchemaVersion: log.SchemaVersion,
		Trades:        append([]models.Trade{}, log.Trades...),
	}
}
