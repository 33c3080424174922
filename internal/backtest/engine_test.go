package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/datasource"
	"github.com/yourusername/fx-backtest/internal/models"
)

func TestEngineRunFullYear(t *testing.T) {
	end := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{candles: businessDayCandles(testStart, end)}
	log, hook := test.NewNullLogger()

	engine, err := NewEngine(provider, log)
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), RunRequest{
		JobID:          "job-2020",
		StartDate:      testStart,
		EndDate:        end,
		InitialCapital: decimal.NewFromInt(1_000_000),
		Params:         DefaultParams(),
	})
	require.NoError(t, err)

	m := result.Metrics
	assert.GreaterOrEqual(t, m.TotalTrades, 0)
	assert.GreaterOrEqual(t, m.TotalReturn, -1.0)
	assert.LessOrEqual(t, m.TotalReturn, 5.0)
	assert.Len(t, result.Snapshots, len(provider.candles))
	assert.Len(t, result.EquityCurve, len(provider.candles))
	assert.Equal(t, len(result.Trades), m.TotalTrades)

	stages := map[string]bool{}
	for _, entry := range hook.AllEntries() {
		if stage, ok := entry.Data["stage"].(string); ok {
			stages[stage] = true
		}
	}
	assert.Equal(t, map[string]bool{"load_candles": true, "generate_signals": true, "simulate": true, "metrics": true}, stages)
}

func TestEngineRunErrors(t *testing.T) {
	providerErr := errors.New("connection refused")

	tests := []struct {
		name     string
		provider *fakeProvider
		params   func() Params
		wantIs   error
	}{
		{
			name:     "provider failure",
			provider: &fakeProvider{err: providerErr},
			params:   DefaultParams,
			wantIs:   providerErr,
		},
		{
			name:     "no candles",
			provider: &fakeProvider{},
			params:   DefaultParams,
			wantIs:   datasource.ErrNoData,
		},
		{
			name: "duplicate dates",
			provider: &fakeProvider{candles: func() []models.Candle {
				c := dailyCandles(100, 101, 102)
				c[2].Date = c[1].Date
				return c
			}()},
			params: DefaultParams,
			wantIs: datasource.ErrInvalidData,
		},
		{
			name:     "invalid params",
			provider: &fakeProvider{candles: dailyCandles(100, 101)},
			params: func() Params {
				p := DefaultParams()
				p.ShortWindow = 50
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.provider, nil)
			require.NoError(t, err)

			_, err = engine.Run(context.Background(), RunRequest{
				JobID:          "job",
				StartDate:      testStart,
				EndDate:        testStart.AddDate(0, 1, 0),
				InitialCapital: decimal.NewFromInt(1_000_000),
				Params:         tt.params(),
			})
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestEngineRunHonoursCancelledContext(t *testing.T) {
	provider := &fakeProvider{candles: dailyCandles(100, 101, 102)}
	engine, err := NewEngine(provider, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Run(ctx, RunRequest{
		JobID:          "job",
		StartDate:      testStart,
		EndDate:        testStart.AddDate(0, 0, 2),
		InitialCapital: decimal.NewFromInt(1_000_000),
		Params:         DefaultParams(),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngineRequiresProvider(t *testing.T) {
	_, err := NewEngine(nil, nil)
	assert.Error(t, err)
}
