package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/database"
	"github.com/yourusername/fx-backtest/internal/models"
)

func TestPostgresJobRepositoryLifecycle(t *testing.T) {
	db := database.SetupTestDB(t)
	repo := NewPostgresJobRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job := newTestJob()
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, repo.MarkRunning(ctx, job.ID, testNow))
	require.NoError(t, repo.Complete(ctx, job.ID, &models.Metrics{TotalTrades: 1}, newTestTradeLog(), testNow))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Metrics.TotalTrades)

	assert.ErrorIs(t, repo.Fail(ctx, job.ID, "late failure", testNow), models.ErrInvalidTransition)
}

func TestPostgresCandleRepositoryRoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)
	repo := NewPostgresCandleRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	day := time.Date(1999, 1, 4, 0, 0, 0, 0, time.UTC)
	candles := []models.Candle{
		{Pair: "TEST/PAIR", Date: day, Open: decimal.NewFromFloat(1.1), High: decimal.NewFromFloat(1.2),
			Low: decimal.NewFromFloat(1.0), Close: decimal.NewFromFloat(1.15)},
		{Pair: "TEST/PAIR", Date: day.AddDate(0, 0, 1), Open: decimal.NewFromFloat(1.15), High: decimal.NewFromFloat(1.25),
			Low: decimal.NewFromFloat(1.05), Close: decimal.NewFromFloat(1.2)},
	}
	require.NoError(t, repo.UpsertBatch(ctx, candles))

	count, err := repo.CountByDateRange(ctx, "TEST/PAIR", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := repo.GetByDateRange(ctx, "TEST/PAIR", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Close.Equal(decimal.NewFromFloat(1.2)))
	assert.Nil(t, got[0].Volume)
}
