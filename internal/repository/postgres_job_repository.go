package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/fx-backtest/internal/database"
	"github.com/yourusername/fx-backtest/internal/models"
)

const (
	errScanJob        = "failed to scan job: %w"
	pgUniqueViolation = "23505"
)

var pgBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresJobRepository implements JobRepository for PostgreSQL
type PostgresJobRepository struct {
	db *database.DB
}

// NewPostgresJobRepository creates a new job repository
func NewPostgresJobRepository(db *database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

// Create inserts a new job record
func (r *PostgresJobRepository) Create(ctx context.Context, job *models.Job) error {
	modelConfig, err := encodeModelConfig(job.ModelConfig)
	if err != nil {
		return err
	}

	query, args, err := pgBuilder.Insert(jobsTable).
		Columns("job_id", "status", "pair", "start_date", "end_date", "initial_capital",
			"model_type", "model_config", "created_at", "updated_at").
		Values(job.ID, string(job.Status), job.Pair, job.StartDate, job.EndDate, job.InitialCapital,
			job.ModelType, modelConfig, job.CreatedAt, job.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.GetPool().Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("job %s: %w", job.ID, models.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID
func (r *PostgresJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query, args, err := pgBuilder.
		Select("job_id::text", "status", "pair", "start_date", "end_date", "initial_capital",
			"model_type", "model_config", "metrics", "error_message",
			"created_at", "updated_at", "completed_at").
		From(jobsTable).
		Where(sq.Eq{"job_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	var (
		job                  models.Job
		status               string
		modelConfig, metrics []byte
	)
	err = r.db.GetPool().QueryRow(ctx, query, args...).Scan(
		&job.ID, &status, &job.Pair, &job.StartDate, &job.EndDate, &job.InitialCapital,
		&job.ModelType, &modelConfig, &metrics, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf(errScanJob, err)
	}

	job.Status = models.JobStatus(status)
	if job.ModelConfig, err = decodeModelConfig(modelConfig); err != nil {
		return nil, err
	}
	if job.Metrics, err = decodeMetrics(metrics); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkRunning moves a pending job to running
func (r *PostgresJobRepository) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, models.JobStatusRunning, sq.Eq{"updated_at": at})
}

// Complete publishes status, metrics and trade log in a single-row update
func (r *PostgresJobRepository) Complete(ctx context.Context, id string, metrics *models.Metrics, log *models.TradeLog, at time.Time) error {
	metricsData, err := encodeMetrics(metrics)
	if err != nil {
		return err
	}
	logData, err := log.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode trade log: %w", err)
	}

	return r.transition(ctx, id, models.JobStatusCompleted, sq.Eq{
		"metrics":      metricsData,
		"trade_log":    logData,
		"updated_at":   at,
		"completed_at": at,
	})
}

// Fail records the error message and moves the job to failed
func (r *PostgresJobRepository) Fail(ctx context.Context, id string, message string, at time.Time) error {
	return r.transition(ctx, id, models.JobStatusFailed, sq.Eq{
		"error_message": message,
		"updated_at":    at,
		"completed_at":  at,
	})
}

// GetTradeLog returns the stored trade log, ErrNotFound when none exists yet
func (r *PostgresJobRepository) GetTradeLog(ctx context.Context, id string) (*models.TradeLog, error) {
	query, args, err := pgBuilder.Select("trade_log").
		From(jobsTable).
		Where(sq.Eq{"job_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	var data []byte
	err = r.db.GetPool().QueryRow(ctx, query, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(data) == 0) {
		return nil, fmt.Errorf("trade log for job %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trade log: %w", err)
	}
	return models.UnmarshalTradeLog(data)
}

// Ping verifies database connectivity
func (r *PostgresJobRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresJobRepository) transition(ctx context.Context, id string, next models.JobStatus, set sq.Eq) error {
	update := pgBuilder.Update(jobsTable).
		Set("status", string(next)).
		Where(sq.Eq{"job_id": id, "status": string(previousStatus(next))})
	for column, value := range set {
		update = update.Set(column, value)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := r.db.GetPool().Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return resolveMissedUpdate(ctx, r, id, next)
	}
	return nil
}

// previousStatus is the only status from which next may be reached
func previousStatus(next models.JobStatus) models.JobStatus {
	if next == models.JobStatusRunning {
		return models.JobStatusPending
	}
	return models.JobStatusRunning
}
