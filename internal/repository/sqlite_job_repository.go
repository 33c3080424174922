package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"github.com/yourusername/fx-backtest/internal/models"
)

const sqliteDateLayout = "2006-01-02"

var sqliteBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SQLiteJobRepository implements JobRepository on an embedded SQLite file
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository creates a job repository on an opened SQLite database
func NewSQLiteJobRepository(db *sql.DB) *SQLiteJobRepository {
	return &SQLiteJobRepository{db: db}
}

// Create inserts a new job record
func (r *SQLiteJobRepository) Create(ctx context.Context, job *models.Job) error {
	modelConfig, err := encodeModelConfig(job.ModelConfig)
	if err != nil {
		return err
	}

	_, err = sqliteBuilder.Insert(jobsTable).
		Columns("job_id", "status", "pair", "start_date", "end_date", "initial_capital",
			"model_type", "model_config", "created_at", "updated_at").
		Values(job.ID, string(job.Status), job.Pair,
			job.StartDate.Format(sqliteDateLayout), job.EndDate.Format(sqliteDateLayout),
			job.InitialCapital.String(), job.ModelType, string(modelConfig),
			formatTimestamp(job.CreatedAt), formatTimestamp(job.UpdatedAt)).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("job %s: %w", job.ID, models.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID
func (r *SQLiteJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := sqliteBuilder.
		Select("job_id", "status", "pair", "start_date", "end_date", "initial_capital",
			"model_type", "model_config", "metrics", "error_message",
			"created_at", "updated_at", "completed_at").
		From(jobsTable).
		Where(sq.Eq{"job_id": id}).
		RunWith(r.db).
		QueryRowContext(ctx)

	var (
		job                                 models.Job
		status, startDate, endDate, capital string
		modelConfig, createdAt, updatedAt   string
		metrics, errorMessage, completedAt  sql.NullString
	)
	err := row.Scan(&job.ID, &status, &job.Pair, &startDate, &endDate, &capital,
		&job.ModelType, &modelConfig, &metrics, &errorMessage,
		&createdAt, &updatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf(errScanJob, err)
	}

	job.Status = models.JobStatus(status)
	if job.StartDate, err = time.Parse(sqliteDateLayout, startDate); err != nil {
		return nil, fmt.Errorf(errScanJob, err)
	}
	if job.EndDate, err = time.Parse(sqliteDateLayout, endDate); err != nil {
		return nil, fmt.Errorf(errScanJob, err)
	}
	if job.InitialCapital, err = decimal.NewFromString(capital); err != nil {
		return nil, fmt.Errorf(errScanJob, err)
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf(errScanJob, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf(errScanJob, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf(errScanJob, err)
		}
		job.CompletedAt = &t
	}
	if errorMessage.Valid {
		msg := errorMessage.String
		job.ErrorMessage = &msg
	}
	if job.ModelConfig, err = decodeModelConfig([]byte(modelConfig)); err != nil {
		return nil, err
	}
	if metrics.Valid {
		if job.Metrics, err = decodeMetrics([]byte(metrics.String)); err != nil {
			return nil, err
		}
	}
	return &job, nil
}

// MarkRunning moves a pending job to running
func (r *SQLiteJobRepository) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, models.JobStatusRunning, sq.Eq{"updated_at": formatTimestamp(at)})
}

// Complete publishes status, metrics and trade log in a single-row update
func (r *SQLiteJobRepository) Complete(ctx context.Context, id string, metrics *models.Metrics, log *models.TradeLog, at time.Time) error {
	metricsData, err := encodeMetrics(metrics)
	if err != nil {
		return err
	}
	logData, err := log.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode trade log: %w", err)
	}

	return r.transition(ctx, id, models.JobStatusCompleted, sq.Eq{
		"metrics":      string(metricsData),
		"trade_log":    string(logData),
		"updated_at":   formatTimestamp(at),
		"completed_at": formatTimestamp(at),
	})
}

// Fail records the error message and moves the job to failed
func (r *SQLiteJobRepository) Fail(ctx context.Context, id string, message string, at time.Time) error {
	return r.transition(ctx, id, models.JobStatusFailed, sq.Eq{
		"error_message": message,
		"updated_at":    formatTimestamp(at),
		"completed_at":  formatTimestamp(at),
	})
}

// GetTradeLog returns the stored trade log, ErrNotFound when none exists yet
func (r *SQLiteJobRepository) GetTradeLog(ctx context.Context, id string) (*models.TradeLog, error) {
	var data sql.NullString
	err := sqliteBuilder.Select("trade_log").
		From(jobsTable).
		Where(sq.Eq{"job_id": id}).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !data.Valid) {
		return nil, fmt.Errorf("trade log for job %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trade log: %w", err)
	}
	return models.UnmarshalTradeLog([]byte(data.String))
}

// Ping verifies database connectivity
func (r *SQLiteJobRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteJobRepository) transition(ctx context.Context, id string, next models.JobStatus, set sq.Eq) error {
	update := sqliteBuilder.Update(jobsTable).
		Set("status", string(next)).
		Where(sq.Eq{"job_id": id, "status": string(previousStatus(next))})
	for column, value := range set {
		update = update.Set(column, value)
	}

	result, err := update.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return resolveMissedUpdate(ctx, r, id, next)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
