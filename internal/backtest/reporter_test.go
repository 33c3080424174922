package backtest

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/models"
)

func TestRoundedKeepsSourceIntact(t *testing.T) {
	calmar := 1.234567
	m := &models.Metrics{
		TotalReturn:        0.123456789,
		SharpeRatio:        -1.00006,
		CalmarRatio:        &calmar,
		MonthlyReturns:     []models.MonthlyReturn{{Month: "2020-01", Return: 0.011119}},
		PredictionAccuracy: map[string]float64{"5d": 0.987654},
	}

	r := Rounded(m)

	assert.Equal(t, 0.1235, r.TotalReturn)
	assert.Equal(t, -1.0001, r.SharpeRatio)
	assert.Equal(t, 1.2346, *r.CalmarRatio)
	assert.Equal(t, 0.0111, r.MonthlyReturns[0].Return)
	assert.Equal(t, 0.9877, r.PredictionAccuracy["5d"])

	assert.Equal(t, 0.123456789, m.TotalReturn)
	assert.Equal(t, 1.234567, *m.CalmarRatio)
	assert.Equal(t, 0.011119, m.MonthlyReturns[0].Return)
	assert.Nil(t, Rounded(nil))
}

func TestGenerateConsoleReport(t *testing.T) {
	job := &models.Job{
		ID:        "job-1",
		Pair:      "USD/JPY",
		StartDate: testStart,
		EndDate:   testStart.AddDate(0, 11, 30),
		Status:    models.JobStatusCompleted,
		Metrics: &models.Metrics{
			TotalReturn:        0.05,
			TotalTrades:        4,
			WinningTrades:      1,
			WinRate:            0.25,
			PredictionAccuracy: map[string]float64{"5d": 0.99},
			PredictionHitRate:  map[string]float64{"5d": 0.4},
		},
	}

	report := GenerateConsoleReport(job)

	assert.Contains(t, report, "Job: job-1")
	assert.Contains(t, report, "Pair: USD/JPY (2020-01-01 to 2020-12-31)")
	assert.Contains(t, report, "Total Return: 5.00%")
	assert.Contains(t, report, "Calmar Ratio: n/a")
	assert.Contains(t, report, "Trades: 4 (won 1, lost 0, win rate 25.00%)")
	assert.Contains(t, report, "Prediction Accuracy 5d: 0.9900 (hit rate 0.4000)")
}

func TestExportTradesParquetRoundTrip(t *testing.T) {
	candles := dailyCandles(100, 110)
	signals := []models.Signal{
		signalOn(candles[0], models.DirectionBuy, 0.7),
		signalOn(candles[1], models.DirectionSell, 0.7),
	}
	result := NewSimulator(DefaultParams()).Run(candles, signals, decimal.NewFromInt(1_000_000))

	path := filepath.Join(t.TempDir(), "exports", "trades.parquet")
	require.NoError(t, ExportTradesParquet("job-1", result.Trades, path))

	records, err := ReadTradesParquet(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "job-1", records[0].JobID)
	assert.Equal(t, "buy", records[0].Direction)
	require.NotNil(t, records[0].ProfitLoss)
	assert.InDelta(t, 10_000, *records[0].ProfitLoss, 1e-9)
	require.NotNil(t, records[0].HoldingPeriodDays)
	assert.Equal(t, int32(1), *records[0].HoldingPeriodDays)
	assert.Equal(t, "sell", records[1].Direction)
	assert.True(t, records[0].Date.Equal(candles[0].Date))
}
