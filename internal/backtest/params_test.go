package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/config"
)

func TestFromConfigMatchesDefaults(t *testing.T) {
	cfg := &config.BacktestConfig{
		Pair:      "USD/JPY",
		Signal:    config.SignalConfig{ShortWindow: 5, LongWindow: 20, Lookahead: 5, BaselineConfidence: 0.7},
		Simulator: config.SimulatorConfig{MinConfidence: 0.6, MinLotUnits: 1000, BuyFraction: 0.2, SellFraction: 0.5},
		Metrics:   config.AnalyticsConfig{PeriodsPerYear: 365, RollingWindow: 30, VaRConfidence: 0.95, AccuracyErrorBand: 0.02},
	}

	params := FromConfig(cfg)
	defaults := DefaultParams()

	assert.Equal(t, defaults.ShortWindow, params.ShortWindow)
	assert.Equal(t, defaults.LongWindow, params.LongWindow)
	assert.True(t, defaults.MinLotUnits.Equal(params.MinLotUnits))
	assert.True(t, defaults.BuyFraction.Equal(params.BuyFraction))
	assert.True(t, defaults.SellFraction.Equal(params.SellFraction))
	assert.NoError(t, params.Validate())

	assert.Equal(t, defaults, FromConfig(nil))
}

func TestWithOverrides(t *testing.T) {
	base := DefaultParams()

	params, err := base.WithOverrides("ensemble", map[string]any{
		"short_window":  "10",
		"long_window":   30.0,
		"confidence":    "0.8",
		"sell_fraction": 1,
		"weights":       map[string]any{"arima": 0.5},
	})
	require.NoError(t, err)

	assert.Equal(t, "ensemble", params.ModelType)
	assert.Equal(t, 10, params.ShortWindow)
	assert.Equal(t, 30, params.LongWindow)
	assert.Equal(t, 0.8, params.BaselineConfidence)
	assert.True(t, params.SellFraction.Equal(decimal.NewFromInt(1)))

	// the receiver is left untouched
	assert.Equal(t, 5, base.ShortWindow)
	assert.Empty(t, base.ModelType)
}

func TestWithOverridesRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{name: "unparseable window", overrides: map[string]any{"short_window": "five"}},
		{name: "short not below long", overrides: map[string]any{"short_window": 20}},
		{name: "confidence above one", overrides: map[string]any{"confidence": 1.5}},
		{name: "zero buy fraction", overrides: map[string]any{"buy_fraction": 0}},
		{name: "min confidence above one", overrides: map[string]any{"min_confidence": 5}},
		{name: "negative min confidence", overrides: map[string]any{"min_confidence": -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultParams().WithOverrides("ma", tt.overrides)
			assert.Error(t, err)
		})
	}
}

func TestValidateRejectsOutOfRangeThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{name: "min confidence above one", mutate: func(p *Params) { p.MinConfidence = 1.2 }},
		{name: "negative min lot units", mutate: func(p *Params) { p.MinLotUnits = decimal.NewFromInt(-1) }},
		{name: "negative accuracy band", mutate: func(p *Params) { p.AccuracyErrorBand = -0.01 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
