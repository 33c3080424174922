package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/database"
	"github.com/yourusername/fx-backtest/internal/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestJob() *models.Job {
	return &models.Job{
		ID:             uuid.NewString(),
		Status:         models.JobStatusPending,
		Pair:           "USD/JPY",
		StartDate:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(1_000_000),
		ModelType:      "ensemble",
		ModelConfig:    map[string]any{"short_window": float64(5)},
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func newTestTradeLog() *models.TradeLog {
	exit := decimal.NewFromFloat(110.5)
	pnl := decimal.NewFromFloat(2500)
	days := 3
	return models.NewTradeLog([]models.Trade{
		{
			Date:              time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC),
			Direction:         models.DirectionBuy,
			EntryRate:         decimal.NewFromFloat(108),
			ExitRate:          &exit,
			PositionSize:      decimal.NewFromInt(1000),
			ProfitLoss:        &pnl,
			HoldingPeriodDays: &days,
			Confidence:        0.7,
			MarketVolatility:  0.004,
		},
	})
}

// jobStoreFactories lists every store that runs without external services
func jobStoreFactories(t *testing.T) map[string]func() JobRepository {
	return map[string]func() JobRepository{
		"memory": func() JobRepository { return NewMemoryJobRepository() },
		"sqlite": func() JobRepository {
			db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewSQLiteJobRepository(db)
		},
	}
}

func TestJobRepositoryLifecycle(t *testing.T) {
	for name, factory := range jobStoreFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory()
			job := newTestJob()

			require.NoError(t, repo.Create(ctx, job))

			got, err := repo.GetByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusPending, got.Status)
			assert.True(t, job.InitialCapital.Equal(got.InitialCapital))
			assert.Equal(t, "ensemble", got.ModelType)
			assert.Nil(t, got.Metrics)

			_, err = repo.GetTradeLog(ctx, job.ID)
			assert.ErrorIs(t, err, models.ErrNotFound)

			require.NoError(t, repo.MarkRunning(ctx, job.ID, testNow.Add(time.Second)))

			calmar := 1.5
			metrics := &models.Metrics{TotalReturn: 0.12, TotalTrades: 1, WinningTrades: 1, WinRate: 1, CalmarRatio: &calmar}
			require.NoError(t, repo.Complete(ctx, job.ID, metrics, newTestTradeLog(), testNow.Add(time.Minute)))

			got, err = repo.GetByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusCompleted, got.Status)
			require.NotNil(t, got.Metrics)
			assert.InDelta(t, 0.12, got.Metrics.TotalReturn, 1e-12)
			require.NotNil(t, got.CompletedAt)
			assert.True(t, got.CompletedAt.Equal(testNow.Add(time.Minute)))

			log, err := repo.GetTradeLog(ctx, job.ID)
			require.NoError(t, err)
			require.Len(t, log.Trades, 1)
			assert.Equal(t, models.TradeLogSchemaVersion, log.SchemaVersion)
			assert.True(t, log.Trades[0].ExitRate.Equal(decimal.NewFromFloat(110.5)))
		})
	}
}

func TestJobRepositoryRejectsInvalidTransitions(t *testing.T) {
	for name, factory := range jobStoreFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory()
			job := newTestJob()
			require.NoError(t, repo.Create(ctx, job))

			err := repo.Complete(ctx, job.ID, &models.Metrics{}, models.NewTradeLog(nil), testNow)
			assert.ErrorIs(t, err, models.ErrInvalidTransition)

			require.NoError(t, repo.MarkRunning(ctx, job.ID, testNow))
			require.NoError(t, repo.Fail(ctx, job.ID, "provider unavailable", testNow))

			assert.ErrorIs(t, repo.MarkRunning(ctx, job.ID, testNow), models.ErrInvalidTransition)
			err = repo.Complete(ctx, job.ID, &models.Metrics{}, models.NewTradeLog(nil), testNow)
			assert.ErrorIs(t, err, models.ErrInvalidTransition)

			got, err := repo.GetByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusFailed, got.Status)
			require.NotNil(t, got.ErrorMessage)
			assert.Equal(t, "provider unavailable", *got.ErrorMessage)
			assert.Nil(t, got.Metrics)
		})
	}
}

func TestJobRepositoryNotFoundAndDuplicate(t *testing.T) {
	for name, factory := range jobStoreFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory()

			_, err := repo.GetByID(ctx, uuid.NewString())
			assert.ErrorIs(t, err, models.ErrNotFound)
			assert.ErrorIs(t, repo.MarkRunning(ctx, uuid.NewString(), testNow), models.ErrNotFound)

			job := newTestJob()
			require.NoError(t, repo.Create(ctx, job))
			assert.ErrorIs(t, repo.Create(ctx, job), models.ErrDuplicateKey)
			assert.NoError(t, repo.Ping(ctx))
		})
	}
}

func TestMemoryJobRepositorySnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepository()
	job := newTestJob()
	require.NoError(t, repo.Create(ctx, job))

	job.ModelConfig["short_window"] = float64(99)
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	got.Status = models.JobStatusCompleted

	again, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, again.Status)
	assert.Equal(t, float64(5), again.ModelConfig["short_window"])
}

func TestMemoryJobRepositoryConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepository()
	job := newTestJob()
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, repo.MarkRunning(ctx, job.ID, testNow))

	var wg sync.WaitGroup
	inconsistent := make(chan string, 100)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, err := repo.GetByID(ctx, job.ID)
				if err != nil {
					inconsistent <- err.Error()
					return
				}
				if (got.Status == models.JobStatusCompleted) != (got.Metrics != nil) {
					inconsistent <- "status and metrics published separately"
					return
				}
			}
		}()
	}

	require.NoError(t, repo.Complete(ctx, job.ID, &models.Metrics{TotalTrades: 3}, models.NewTradeLog(nil), testNow))
	wg.Wait()
	close(inconsistent)

	for msg := range inconsistent {
		t.Error(msg)
	}
}

func TestCheckTransition(t *testing.T) {
	err := checkTransition("abc", models.JobStatusCompleted, models.JobStatusRunning)
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	assert.NoError(t, checkTransition("abc", models.JobStatusPending, models.JobStatusRunning))
}
