package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/models"
)

func TestMovingAverageGeneratorReservesLookahead(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	candles := dailyCandles(closes...)

	signals, err := NewMovingAverageGenerator(DefaultParams()).Generate(candles)
	require.NoError(t, err)

	// indices 20..24: 20 preceding candles and 5 following ones
	require.Len(t, signals, 5)
	for j, sig := range signals {
		i := 20 + j
		assert.Equal(t, candles[i].Date, sig.PredictionDate)
		assert.Equal(t, candles[i+5].Date, sig.TargetDate)
		assert.Equal(t, models.DirectionBuy, sig.Direction)
		assert.Equal(t, 0.7, sig.Confidence)
		assert.Equal(t, 5, sig.Horizon)
		assert.InDelta(t, mean(closes[i-5:i]), sig.PredictedRate, 1e-9)
	}
}

func TestMovingAverageGeneratorFallingSeriesSells(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 150 - float64(i)
	}

	signals, err := NewMovingAverageGenerator(DefaultParams()).Generate(dailyCandles(closes...))
	require.NoError(t, err)
	require.Len(t, signals, 15)
	for _, sig := range signals {
		assert.Equal(t, models.DirectionSell, sig.Direction)
	}
}

func TestMovingAverageGeneratorShortSeries(t *testing.T) {
	signals, err := NewMovingAverageGenerator(DefaultParams()).Generate(dailyCandles(1, 2, 3, 4, 5))
	require.NoError(t, err)
	assert.Empty(t, signals)
}
