package repository

import (
	"context"
	"time"

	"github.com/yourusername/fx-backtest/internal/models"
)

// JobRepository defines the interface for backtest job persistence.
// Implementations publish status, metrics and trade log together so a reader
// never observes a completed job without its results.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	MarkRunning(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, metrics *models.Metrics, log *models.TradeLog, at time.Time) error
	Fail(ctx context.Context, id string, message string, at time.Time) error
	GetTradeLog(ctx context.Context, id string) (*models.TradeLog, error)
	Ping(ctx context.Context) error
}

// CandleRepository defines the interface for daily candle data access
type CandleRepository interface {
	GetByDateRange(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error)
	CountByDateRange(ctx context.Context, pair string, start, end time.Time) (int, error)
	UpsertBatch(ctx context.Context, candles []models.Candle) error
}
