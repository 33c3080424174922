package backtest

import (
	"github.com/yourusername/fx-backtest/internal/models"
)

// SignalGenerator produces directional predictions for a candle series
type SignalGenerator interface {
	Name() string
	Generate(candles []models.Candle) ([]models.Signal, error)
}

// MovingAverageGenerator emits buy when the short SMA is above the long SMA.
// Both averages use the closes strictly before the prediction day.
type MovingAverageGenerator struct {
	params Params
}

// NewMovingAverageGenerator creates a crossover signal generator
func NewMovingAverageGenerator(params Params) *MovingAverageGenerator {
	return &MovingAverageGenerator{params: params}
}

// Name returns the generator name
func (g *MovingAverageGenerator) Name() string {
	return "ma_crossover"
}

// Generate emits one signal per day that has LongWindow preceding candles
// and Lookahead following candles. The trailing Lookahead days are never signaled.
func (g *MovingAverageGenerator) Generate(candles []models.Candle) ([]models.Signal, error) {
	p := g.params
	closes := closePrices(candles)

	var signals []models.Signal
	for i := p.LongWindow; i < len(candles)-p.Lookahead; i++ {
		short := mean(closes[i-p.ShortWindow : i])
		long := mean(closes[i-p.LongWindow : i])

		direction := models.DirectionSell
		if short > long {
			direction = models.DirectionBuy
		}

		signals = append(signals, models.Signal{
			PredictionDate: candles[i].Date,
			TargetDate:     candles[i+p.Lookahead].Date,
			Direction:      direction,
			Confidence:     p.BaselineConfidence,
			PredictedRate:  short,
			Horizon:        p.Lookahead,
		})
	}
	return signals, nil
}

func closePrices(candles []models.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close.InexactFloat64()
	}
	return closes
}
